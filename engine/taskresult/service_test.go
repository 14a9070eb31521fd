package taskresult

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/spiffworkflow/backend/engine/core"
	"github.com/spiffworkflow/backend/engine/infra/objectstore"
	"github.com/spiffworkflow/backend/pkg/config"
	"github.com/spiffworkflow/backend/pkg/logger"
)

func testConfig(backend string) *config.Config {
	cfg := config.Default()
	cfg.Celery.ResultBackend = config.SensitiveString(backend)
	return cfg
}

func requireAPIError(t *testing.T, err error, status int, code string) *core.APIError {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := core.AsAPIError(err)
	require.True(t, ok, "expected APIError, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, code, apiErr.Code)
	return apiErr
}

func TestNewBackend(t *testing.T) {
	ctx := logger.ContextWithLogger(t.Context(), logger.NewForTests())

	t.Run("Should fail when no backend is configured", func(t *testing.T) {
		_, err := NewBackend(ctx, testConfig(""))
		apiErr := requireAPIError(t, err, http.StatusInternalServerError, ErrNoResultsBackendCode)
		assert.Equal(t, "No Celery results backend configured.", apiErr.Message)
	})

	t.Run("Should reject unsupported schemes", func(t *testing.T) {
		for _, url := range []string{"amqp://guest@localhost//", "db+postgresql://x", "localhost:6379"} {
			_, err := NewBackend(ctx, testConfig(url))
			apiErr := requireAPIError(t, err, http.StatusInternalServerError, ErrUnsupportedBackendCode)
			assert.Equal(t, "The specified backend is not supported.", apiErr.Message)
		}
	})

	t.Run("Should select redis for redis URLs", func(t *testing.T) {
		s := miniredis.RunT(t)
		b, err := NewBackend(ctx, testConfig("redis://"+s.Addr()+"/0"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		assert.Equal(t, KindRedis, b.Kind())
	})

	t.Run("Should report unreachable redis as redis_error", func(t *testing.T) {
		s := miniredis.RunT(t)
		addr := s.Addr()
		s.Close()
		cfg := testConfig("redis://" + addr)
		cfg.Redis.MaxRetries = -1
		_, err := NewBackend(ctx, cfg)
		requireAPIError(t, err, http.StatusInternalServerError, ErrRedisCode)
	})

	t.Run("Should take the bucket from config before the URL host", func(t *testing.T) {
		cfg := testConfig("s3://from-url/")
		cfg.Celery.ResultS3Bucket = "from-config"
		b, err := NewBackend(ctx, cfg, WithS3API(objectstore.NewMemoryAPI()))
		require.NoError(t, err)
		assert.Equal(t, "from-config", b.(*s3Backend).store.Bucket())

		b, err = NewBackend(ctx, testConfig("s3://from-url/"), WithS3API(objectstore.NewMemoryAPI()))
		require.NoError(t, err)
		assert.Equal(t, "from-url", b.(*s3Backend).store.Bucket())
	})

	t.Run("Should fail without any bucket", func(t *testing.T) {
		_, err := NewBackend(ctx, testConfig("s3://"), WithS3API(objectstore.NewMemoryAPI()))
		requireAPIError(t, err, http.StatusInternalServerError, ErrS3BucketNotConfiguredCode)
	})
}

func TestService_Redis(t *testing.T) {
	ctx := logger.ContextWithLogger(t.Context(), logger.NewForTests())

	t.Run("Should return matching results from redis", func(t *testing.T) {
		s := miniredis.RunT(t)
		require.NoError(t, s.Set("celery-task-meta-1", `{"status":"SUCCESS","result":{"process_instance_id":5}}`))
		require.NoError(t, s.Set("celery-task-meta-2", `{"status":"SUCCESS","result":{"process_instance_id":6}}`))
		require.NoError(t, s.Set("celery-task-meta-3", `{"status":"FAILURE","result":null}`))
		require.NoError(t, s.Set("unrelated", `{"status":"FAILURE"}`))
		svc := NewService(ctx, testConfig("redis://"+s.Addr()+"/0"), nil)

		out, err := svc.Results(ctx, Query{ProcessInstanceID: 5, IncludeAllFailures: true})
		require.NoError(t, err)
		assert.Len(t, out, 2)

		out, err = svc.Results(ctx, Query{ProcessInstanceID: 5, IncludeAllFailures: false})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.JSONEq(t, `{"status":"SUCCESS","result":{"process_instance_id":5}}`, string(out[0]))
	})

	t.Run("Should refuse to fetch more than the configured number of entries", func(t *testing.T) {
		s := miniredis.RunT(t)
		for i := range 4 {
			require.NoError(t, s.Set(fmt.Sprintf("celery-task-meta-%d", i), `{}`))
		}
		cfg := testConfig("redis://" + s.Addr())
		cfg.Celery.MaxRedisEntries = 3
		_, err := NewService(ctx, cfg, nil).Results(ctx, Query{ProcessInstanceID: 1, IncludeAllFailures: true})
		apiErr := requireAPIError(t, err, http.StatusBadRequest, ErrTooManyEntriesCode)
		assert.Equal(t,
			"There are too many redis entries. You probably shouldn't use this api method. count 4",
			apiErr.Message,
		)
	})

	t.Run("Should allow exactly the maximum number of entries", func(t *testing.T) {
		s := miniredis.RunT(t)
		for i := range 3 {
			require.NoError(t, s.Set(fmt.Sprintf("celery-task-meta-%d", i), `{"status":"FAILURE"}`))
		}
		cfg := testConfig("redis://" + s.Addr())
		cfg.Celery.MaxRedisEntries = 3
		out, err := NewService(ctx, cfg, nil).Results(ctx, Query{ProcessInstanceID: 1, IncludeAllFailures: true})
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})

	t.Run("Should return an empty list when redis holds no results", func(t *testing.T) {
		s := miniredis.RunT(t)
		out, err := NewService(ctx, testConfig("redis://"+s.Addr()), nil).
			Results(ctx, Query{ProcessInstanceID: 1, IncludeAllFailures: true})
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestService_S3(t *testing.T) {
	ctx := logger.ContextWithLogger(t.Context(), logger.NewForTests())

	t.Run("Should read and filter objects under the key prefix", func(t *testing.T) {
		api := objectstore.NewMemoryAPI()
		api.Put("celery-task-meta-a", []byte(`{"status":"SUCCESS","result":{"process_instance_id":9}}`))
		api.Put("celery-task-meta-b", []byte(`{"status":"FAILURE","result":{}}`))
		api.Put("elsewhere", []byte(`{"status":"FAILURE"}`))
		cfg := testConfig("s3://results/")
		svc := NewService(ctx, cfg, nil, WithS3API(api))
		out, err := svc.Results(ctx, Query{ProcessInstanceID: 9, IncludeAllFailures: true})
		require.NoError(t, err)
		assert.Len(t, out, 2)
		assert.Equal(t, 1, api.ListCalls)
	})

	t.Run("Should return an empty list for an empty bucket", func(t *testing.T) {
		svc := NewService(ctx, testConfig("s3://results/"), nil, WithS3API(objectstore.NewMemoryAPI()))
		out, err := svc.Results(ctx, Query{ProcessInstanceID: 9, IncludeAllFailures: true})
		require.NoError(t, err)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})

	t.Run("Should not follow truncated listings", func(t *testing.T) {
		api := objectstore.NewMemoryAPI()
		api.PageSize = 1
		api.Put("celery-task-meta-a", []byte(`{"status":"FAILURE"}`))
		api.Put("celery-task-meta-b", []byte(`{"status":"FAILURE"}`))
		svc := NewService(ctx, testConfig("s3://results/"), nil, WithS3API(api))
		out, err := svc.Results(ctx, Query{ProcessInstanceID: 9, IncludeAllFailures: true})
		require.NoError(t, err)
		assert.Len(t, out, 1)
		assert.Equal(t, 1, api.ListCalls)
	})

	t.Run("Should map SDK failures to s3_error with the SDK message", func(t *testing.T) {
		api := objectstore.NewMemoryAPI()
		api.ListErr = errors.New("operation error S3: ListObjectsV2, AccessDenied")
		svc := NewService(ctx, testConfig("s3://results/"), nil, WithS3API(api))
		_, err := svc.Results(ctx, Query{ProcessInstanceID: 9, IncludeAllFailures: true})
		apiErr := requireAPIError(t, err, http.StatusInternalServerError, ErrS3Code)
		assert.Equal(t, "operation error S3: ListObjectsV2, AccessDenied", apiErr.Message)

		api.ListErr = nil
		api.Put("celery-task-meta-a", []byte(`{}`))
		api.GetErr = errors.New("NoSuchKey")
		_, err = svc.Results(ctx, Query{ProcessInstanceID: 9, IncludeAllFailures: true})
		requireAPIError(t, err, http.StatusInternalServerError, ErrS3Code)
	})
}

func TestService_Ping(t *testing.T) {
	ctx := logger.ContextWithLogger(t.Context(), logger.NewForTests())

	t.Run("Should succeed when no backend is configured", func(t *testing.T) {
		assert.NoError(t, NewService(ctx, testConfig(""), nil).Ping(ctx))
	})

	t.Run("Should fail when the bucket cannot be listed", func(t *testing.T) {
		api := objectstore.NewMemoryAPI()
		api.ListErr = errors.New("NoSuchBucket")
		assert.Error(t, NewService(ctx, testConfig("s3://results/"), nil, WithS3API(api)).Ping(ctx))
	})

	t.Run("Should succeed against a live redis", func(t *testing.T) {
		s := miniredis.RunT(t)
		assert.NoError(t, NewService(ctx, testConfig("redis://"+s.Addr()), nil).Ping(ctx))
	})
}

func TestService_Metrics(t *testing.T) {
	t.Run("Should count queries by backend and outcome", func(t *testing.T) {
		ctx := logger.ContextWithLogger(t.Context(), logger.NewForTests())
		reader := sdkmetric.NewManualReader()
		meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
		svc := NewService(ctx, testConfig("s3://results/"), meter, WithS3API(objectstore.NewMemoryAPI()))
		_, err := svc.Results(ctx, Query{ProcessInstanceID: 1, IncludeAllFailures: true})
		require.NoError(t, err)
		_, err = NewService(ctx, testConfig(""), meter).Results(ctx, Query{ProcessInstanceID: 1})
		require.Error(t, err)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(t.Context(), &rm))
		outcomes := map[string]int64{}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name != "celery_result_queries_total" {
					continue
				}
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					backend, _ := dp.Attributes.Value("backend")
					outcome, _ := dp.Attributes.Value("outcome")
					outcomes[backend.AsString()+"/"+outcome.AsString()] += dp.Value
				}
			}
		}
		assert.Equal(t, int64(1), outcomes["s3/success"])
		assert.Equal(t, int64(1), outcomes["none/"+ErrNoResultsBackendCode])
	})
}
