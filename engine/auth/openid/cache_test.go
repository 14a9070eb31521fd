package openid

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffworkflow/backend/pkg/config"
)

func discoveryServer(t *testing.T, failures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path != DiscoveryPath {
			http.NotFound(w, r)
			return
		}
		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 "http://idp.example.com/realms/spiff",
			"authorization_endpoint": "http://idp.example.com/auth",
			"token_endpoint":         "http://idp.example.com/token",
			"end_session_endpoint":   "http://idp.example.com/logout",
			"jwks_uri":               "http://idp.example.com/certs",
			"scopes_supported":       []string{"openid"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newCache(url string) *EndpointCache {
	return NewEndpointCache(Config{
		ServerURL:     url,
		Identifier:    "default",
		Timeout:       2 * time.Second,
		TTL:           time.Minute,
		WarmUpBackoff: time.Millisecond,
	})
}

func TestEndpointCache_Endpoint(t *testing.T) {
	t.Run("Should fetch discovery once and serve later lookups from cache", func(t *testing.T) {
		srv, calls := discoveryServer(t, 0)
		c := newCache(srv.URL)
		url, err := c.Endpoint(t.Context(), "default", "token_endpoint")
		require.NoError(t, err)
		assert.Equal(t, "http://idp.example.com/token", url)
		url, err = c.Endpoint(t.Context(), "default", "authorization_endpoint")
		require.NoError(t, err)
		assert.Equal(t, "http://idp.example.com/auth", url)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Should reject identifiers other than the configured one", func(t *testing.T) {
		srv, _ := discoveryServer(t, 0)
		_, err := newCache(srv.URL).Endpoint(t.Context(), "other", "token_endpoint")
		assert.ErrorIs(t, err, ErrUnknownIdentifier)
	})

	t.Run("Should report endpoints the provider does not advertise", func(t *testing.T) {
		srv, _ := discoveryServer(t, 0)
		_, err := newCache(srv.URL).Endpoint(t.Context(), "default", "scopes_supported")
		assert.ErrorIs(t, err, ErrUnknownEndpoint)
	})

	t.Run("Should fail without a server url", func(t *testing.T) {
		_, err := newCache("").Endpoint(t.Context(), "default", "token_endpoint")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestEndpointCache_WarmUp(t *testing.T) {
	t.Run("Should retry transient failures", func(t *testing.T) {
		srv, calls := discoveryServer(t, 2)
		c := newCache(srv.URL)
		require.NoError(t, c.WarmUp(t.Context()))
		assert.Equal(t, int32(3), calls.Load())
		assert.Contains(t, c.Snapshot()["default"], "jwks_uri")
	})

	t.Run("Should not retry client errors", func(t *testing.T) {
		srv, calls := discoveryServer(t, 0)
		c := newCache(srv.URL + "/missing")
		require.Error(t, c.WarmUp(t.Context()))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Should give up after the retry budget", func(t *testing.T) {
		srv, calls := discoveryServer(t, 100)
		require.Error(t, newCache(srv.URL).WarmUp(t.Context()))
		assert.Equal(t, int32(warmUpRetries+1), calls.Load())
	})

	t.Run("Should return ErrNotConfigured without a server url", func(t *testing.T) {
		assert.ErrorIs(t, newCache("").WarmUp(t.Context()), ErrNotConfigured)
	})
}

func TestEndpointCache_Snapshot(t *testing.T) {
	t.Run("Should be empty before discovery", func(t *testing.T) {
		assert.Empty(t, newCache("http://unused").Snapshot())
	})

	t.Run("Should return a copy", func(t *testing.T) {
		srv, _ := discoveryServer(t, 0)
		c := newCache(srv.URL)
		require.NoError(t, c.WarmUp(t.Context()))
		snap := c.Snapshot()
		snap["default"]["token_endpoint"] = "mutated"
		url, err := c.Endpoint(t.Context(), "default", "token_endpoint")
		require.NoError(t, err)
		assert.Equal(t, "http://idp.example.com/token", url)
	})

	t.Run("Should build from application config", func(t *testing.T) {
		app := config.Default()
		app.Auth.OpenIDServerURL = "http://idp"
		cfg := FromAppConfig(app)
		assert.Equal(t, "default", cfg.Identifier)
		assert.Equal(t, time.Hour, cfg.TTL)
	})
}
