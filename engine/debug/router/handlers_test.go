package debugrouter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffworkflow/backend/engine/auth/openid"
	"github.com/spiffworkflow/backend/engine/core"
	"github.com/spiffworkflow/backend/engine/infra/objectstore"
	"github.com/spiffworkflow/backend/engine/infra/server/appstate"
	"github.com/spiffworkflow/backend/engine/infra/server/router"
	"github.com/spiffworkflow/backend/engine/taskresult"
	"github.com/spiffworkflow/backend/pkg/config"
	"github.com/spiffworkflow/backend/pkg/logger"
)

type testEnv struct {
	cfg    *config.Config
	engine *gin.Engine
}

func newTestEnv(t *testing.T, mutate func(*config.Config), opts ...taskresult.Option) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Version.InfoFile = filepath.Join(t.TempDir(), "version_info.json")
	if mutate != nil {
		mutate(cfg)
	}
	ctx := logger.ContextWithLogger(t.Context(), logger.NewForTests())
	state, err := appstate.NewState(appstate.NewBaseDeps(
		cfg,
		taskresult.NewService(ctx, cfg, nil, opts...),
		openid.NewEndpointCache(openid.FromAppConfig(cfg)),
	))
	require.NoError(t, err)
	r := gin.New()
	r.Use(appstate.StateMiddleware(state))
	r.Use(router.ErrorHandler())
	Register(r.Group("/v1.0"))
	return &testEnv{cfg: cfg, engine: r}
}

func (e *testEnv) get(t *testing.T, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) core.ProblemDocument {
	t.Helper()
	var doc core.ProblemDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	return doc
}

func TestTestRaiseError(t *testing.T) {
	t.Run("Should always fail with the test error message", func(t *testing.T) {
		env := newTestEnv(t, nil)
		w := env.get(t, "/v1.0/debug/test-raise-error", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		doc := decodeProblem(t, w)
		assert.Equal(t, ErrTestRaiseErrorCode, doc.Code)
		assert.Equal(t, TestRaiseErrorMessage, doc.Details)
	})
}

func TestVersionInfo(t *testing.T) {
	t.Run("Should return build fields when no version file exists", func(t *testing.T) {
		env := newTestEnv(t, nil)
		w := env.get(t, "/v1.0/debug/version-info", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, body, "version")
		assert.Contains(t, body, "commit_hash")
	})

	t.Run("Should merge the version file over build fields", func(t *testing.T) {
		env := newTestEnv(t, nil)
		require.NoError(t, os.WriteFile(env.cfg.Version.InfoFile,
			[]byte(`{"version":"2.1.0","docker_image_tag":"main-abc"}`), 0o600))
		w := env.get(t, "/v1.0/debug/version-info", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "2.1.0", body["version"])
		assert.Equal(t, "main-abc", body["docker_image_tag"])
	})

	t.Run("Should ignore an invalid version file", func(t *testing.T) {
		env := newTestEnv(t, nil)
		require.NoError(t, os.WriteFile(env.cfg.Version.InfoFile, []byte(`{not json`), 0o600))
		w := env.get(t, "/v1.0/debug/version-info", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestURLInfo(t *testing.T) {
	t.Run("Should report the perceived URL and the endpoint cache", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *config.Config) {
			cfg.Server.RootPath = "/api"
		})
		w := env.get(t, "/v1.0/debug/url-info?x=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "/api", body["request.root_path"])
		assert.Equal(t, "http://example.com/", body["request.host_url"])
		assert.Equal(t, "http://example.com/api/v1.0/debug/url-info?x=1", body["request.url"])
		assert.Equal(t, map[string]any{}, body["cache"])
	})

	t.Run("Should honor forwarded headers when trusted", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *config.Config) {
			cfg.Server.TrustForwardedHeaders = true
		})
		w := env.get(t, "/v1.0/debug/url-info", http.Header{
			router.HeaderForwardedProto: {"https"},
			router.HeaderForwardedHost:  {"spiff.example.org"},
		})
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "https://spiff.example.org/", body["request.host_url"])
	})
}

func TestCeleryBackendResults(t *testing.T) {
	t.Run("Should return matching results and failures from redis", func(t *testing.T) {
		s := miniredis.RunT(t)
		require.NoError(t, s.Set("celery-task-meta-a", `{"status":"SUCCESS","result":{"process_instance_id":12}}`))
		require.NoError(t, s.Set("celery-task-meta-b", `{"status":"SUCCESS","result":{"process_instance_id":13}}`))
		require.NoError(t, s.Set("celery-task-meta-c", `{"status":"FAILURE","result":{"exc_type":"KeyError"}}`))
		env := newTestEnv(t, func(cfg *config.Config) {
			cfg.Celery.ResultBackend = config.SensitiveString("redis://" + s.Addr() + "/0")
		})

		w := env.get(t, "/v1.0/debug/celery-backend-results/12", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var all []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
		assert.Len(t, all, 2)

		w = env.get(t, "/v1.0/debug/celery-backend-results/12?include_all_failures=false", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var own []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &own))
		require.Len(t, own, 1)
		assert.Equal(t, "SUCCESS", own[0]["status"])
	})

	t.Run("Should return an empty array when nothing matches", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *config.Config) {
			cfg.Celery.ResultBackend = "s3://results/"
		}, taskresult.WithS3API(objectstore.NewMemoryAPI()))
		w := env.get(t, "/v1.0/debug/celery-backend-results/1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("Should report a missing backend as a 500 problem", func(t *testing.T) {
		env := newTestEnv(t, nil)
		w := env.get(t, "/v1.0/debug/celery-backend-results/1", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		doc := decodeProblem(t, w)
		assert.Equal(t, taskresult.ErrNoResultsBackendCode, doc.Code)
		assert.Equal(t, "No Celery results backend configured.", doc.Details)
	})

	t.Run("Should report too many redis entries as a 400 problem", func(t *testing.T) {
		s := miniredis.RunT(t)
		require.NoError(t, s.Set("celery-task-meta-a", `{}`))
		require.NoError(t, s.Set("celery-task-meta-b", `{}`))
		env := newTestEnv(t, func(cfg *config.Config) {
			cfg.Celery.ResultBackend = config.SensitiveString("redis://" + s.Addr())
			cfg.Celery.MaxRedisEntries = 1
		})
		w := env.get(t, "/v1.0/debug/celery-backend-results/1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, taskresult.ErrTooManyEntriesCode, decodeProblem(t, w).Code)
	})

	t.Run("Should reject unsupported backends", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *config.Config) {
			cfg.Celery.ResultBackend = "rpc://"
		})
		w := env.get(t, "/v1.0/debug/celery-backend-results/1", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, taskresult.ErrUnsupportedBackendCode, decodeProblem(t, w).Code)
	})

	t.Run("Should validate path and query parameters", func(t *testing.T) {
		env := newTestEnv(t, nil)
		w := env.get(t, "/v1.0/debug/celery-backend-results/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrInvalidProcessInstanceIDCode, decodeProblem(t, w).Code)

		w = env.get(t, "/v1.0/debug/celery-backend-results/1?include_all_failures=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrInvalidIncludeFailuresCode, decodeProblem(t, w).Code)
	})
}
