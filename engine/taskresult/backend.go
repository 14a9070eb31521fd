// Package taskresult reads Celery task results from the configured result
// backend and selects the ones relevant to a process instance.
package taskresult

import (
	"context"
	"net/url"
	"strings"

	"github.com/spiffworkflow/backend/engine/infra/cache"
	"github.com/spiffworkflow/backend/engine/infra/objectstore"
	"github.com/spiffworkflow/backend/pkg/config"
	"github.com/spiffworkflow/backend/pkg/logger"
)

// Backend is a single-shot reader over raw Celery result values.
type Backend interface {
	// Kind names the backend for logs and metrics.
	Kind() string
	// Values returns every stored result value. Entries may be nil for
	// keys that vanished between listing and fetching.
	Values(ctx context.Context) ([][]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

const (
	KindRedis = "redis"
	KindS3    = "s3"
)

type factoryOptions struct {
	s3API objectstore.API
}

// Option customizes how backends are constructed.
type Option func(*factoryOptions)

// WithS3API makes S3 backends use api instead of a client built from the AWS default chain.
func WithS3API(api objectstore.API) Option {
	return func(o *factoryOptions) {
		o.s3API = api
	}
}

// NewBackend selects a backend from the scheme of celery.result_backend.
func NewBackend(ctx context.Context, cfg *config.Config, opts ...Option) (Backend, error) {
	fo := &factoryOptions{}
	for _, opt := range opts {
		opt(fo)
	}
	raw := strings.TrimSpace(cfg.Celery.ResultBackend.Value())
	if raw == "" {
		return nil, errNoResultsBackend()
	}
	switch scheme(raw) {
	case "redis", "rediss":
		return newRedisBackend(ctx, cfg, raw)
	case "s3":
		return newS3Backend(ctx, cfg, raw, fo.s3API)
	default:
		return nil, errUnsupportedBackend()
	}
}

func scheme(raw string) string {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(raw[:i])
}

func newRedisBackend(ctx context.Context, cfg *config.Config, raw string) (Backend, error) {
	client, err := cache.NewRedis(ctx, cache.FromAppConfig(raw, cfg))
	if err != nil {
		return nil, errRedis(err)
	}
	return &redisBackend{
		client:     client,
		prefix:     cfg.Celery.KeyPrefix,
		maxEntries: cfg.Celery.MaxRedisEntries,
		log:        logger.FromContext(ctx).With("backend", KindRedis),
	}, nil
}

func newS3Backend(ctx context.Context, cfg *config.Config, raw string, api objectstore.API) (Backend, error) {
	bucket := cfg.Celery.ResultS3Bucket
	if bucket == "" {
		if u, err := url.Parse(raw); err == nil {
			bucket = u.Host
		}
	}
	if bucket == "" {
		return nil, errS3BucketNotConfigured()
	}
	if api == nil {
		client, err := objectstore.NewClient(ctx, objectstore.Config{
			Region:      cfg.Celery.S3Region,
			EndpointURL: cfg.Celery.S3EndpointURL,
		})
		if err != nil {
			return nil, errS3(err)
		}
		api = client
	}
	store, err := objectstore.NewStore(api, bucket)
	if err != nil {
		return nil, errS3BucketNotConfigured()
	}
	return &s3Backend{
		store:  store,
		prefix: cfg.Celery.KeyPrefix,
		log:    logger.FromContext(ctx).With("backend", KindS3, "bucket", bucket),
	}, nil
}
