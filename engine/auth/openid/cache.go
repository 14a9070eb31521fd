// Package openid caches the endpoints advertised by the OpenID provider's
// discovery document, keyed by authentication identifier.
package openid

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sethvargo/go-retry"

	"github.com/spiffworkflow/backend/pkg/config"
	"github.com/spiffworkflow/backend/pkg/logger"
)

const (
	DiscoveryPath = "/.well-known/openid-configuration"
	maxProviders  = 16
	warmUpRetries = 3
)

var (
	ErrNotConfigured     = errors.New("openid: no server url configured")
	ErrUnknownIdentifier = errors.New("openid: unknown authentication identifier")
	ErrUnknownEndpoint   = errors.New("openid: endpoint not advertised by provider")
)

type Config struct {
	ServerURL  string
	Identifier string
	Timeout    time.Duration
	TTL        time.Duration
	// WarmUpBackoff is the base delay between warm-up attempts.
	WarmUpBackoff time.Duration
}

func FromAppConfig(cfg *config.Config) Config {
	return Config{
		ServerURL:     cfg.Auth.OpenIDServerURL,
		Identifier:    cfg.Auth.Identifier,
		Timeout:       cfg.Auth.DiscoveryTimeout,
		TTL:           cfg.Auth.CacheTTL,
		WarmUpBackoff: 500 * time.Millisecond,
	}
}

// EndpointCache maps identifier -> endpoint name -> URL.
type EndpointCache struct {
	cfg     Config
	client  *resty.Client
	entries *expirable.LRU[string, map[string]string]
	// fetchMu serializes discovery so concurrent misses issue one request.
	fetchMu sync.Mutex
}

func NewEndpointCache(cfg Config) *EndpointCache {
	client := resty.New().
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &EndpointCache{
		cfg:     cfg,
		client:  client,
		entries: expirable.NewLRU[string, map[string]string](maxProviders, nil, cfg.TTL),
	}
}

func (c *EndpointCache) Configured() bool {
	return c.cfg.ServerURL != ""
}

// Endpoint returns the URL advertised for name, fetching discovery on a miss.
func (c *EndpointCache) Endpoint(ctx context.Context, identifier, name string) (string, error) {
	if identifier != c.cfg.Identifier {
		return "", fmt.Errorf("%w: %q", ErrUnknownIdentifier, identifier)
	}
	endpoints, ok := c.entries.Get(identifier)
	if !ok {
		var err error
		endpoints, err = c.load(ctx, identifier)
		if err != nil {
			return "", err
		}
	}
	url, ok := endpoints[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
	}
	return url, nil
}

// Snapshot returns a copy of every cached provider.
func (c *EndpointCache) Snapshot() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, id := range c.entries.Keys() {
		if endpoints, ok := c.entries.Peek(id); ok {
			out[id] = maps.Clone(endpoints)
		}
	}
	return out
}

// WarmUp populates the configured identifier, retrying transient failures.
func (c *EndpointCache) WarmUp(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	base := c.cfg.WarmUpBackoff
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(warmUpRetries, retry.NewExponential(base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := c.load(ctx, c.cfg.Identifier)
		var statusErr *discoveryStatusError
		if errors.As(err, &statusErr) && statusErr.status < http.StatusInternalServerError {
			return err
		}
		if err != nil {
			logger.FromContext(ctx).Debug("OpenID discovery attempt failed", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

type discoveryStatusError struct {
	status int
	url    string
}

func (e *discoveryStatusError) Error() string {
	return fmt.Sprintf("openid discovery %s returned status %d", e.url, e.status)
}

func (c *EndpointCache) load(ctx context.Context, identifier string) (map[string]string, error) {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	if endpoints, ok := c.entries.Get(identifier); ok {
		return endpoints, nil
	}
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	url := strings.TrimRight(c.cfg.ServerURL, "/") + DiscoveryPath
	var doc map[string]any
	resp, err := c.client.R().SetContext(ctx).SetResult(&doc).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching openid discovery: %w", err)
	}
	if resp.IsError() {
		return nil, &discoveryStatusError{status: resp.StatusCode(), url: url}
	}
	endpoints := make(map[string]string, len(doc))
	for key, value := range doc {
		if s, ok := value.(string); ok && isEndpointKey(key) {
			endpoints[key] = s
		}
	}
	c.entries.Add(identifier, endpoints)
	logger.FromContext(ctx).Debug("OpenID endpoints cached", "identifier", identifier, "count", len(endpoints))
	return endpoints, nil
}

func isEndpointKey(key string) bool {
	return key == "issuer" || key == "jwks_uri" || strings.HasSuffix(key, "_endpoint")
}
