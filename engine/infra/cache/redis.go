package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spiffworkflow/backend/pkg/logger"
)

// RedisInterface defines the minimal interface needed by the result queries.
// This allows both real redis.Client and test doubles to be used.
type RedisInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Close() error
}

type Redis struct {
	client RedisInterface
	config *Config
	once   sync.Once // guarantees idempotent, race-free Close
	log    logger.Logger
}

const (
	fallbackRedisPingTimeout time.Duration = 10 * time.Second
	defaultScanCount         int64         = 500
)

// NewRedis connects to the server described by cfg.URL and verifies it answers PING.
func NewRedis(ctx context.Context, cfg *Config) (*Redis, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	client, err := buildRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	r := NewRedisFromClient(ctx, client, cfg)
	if err := r.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	r.log.Debug("Redis connection established", "pool_size", cfg.PoolSize)
	return r, nil
}

// NewRedisFromClient wraps an existing client without contacting the server.
func NewRedisFromClient(ctx context.Context, client RedisInterface, cfg *Config) *Redis {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Redis{
		client: client,
		config: cfg,
		log:    logger.FromContext(ctx).With("component", "infra_redis"),
	}
}

// buildRedisClient configures the Redis client from the provided config.
func buildRedisClient(cfg *Config) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, ErrURLRequired
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis URL: %w", err)
	}
	applyConfigToOptions(opt, cfg)
	return redis.NewClient(opt), nil
}

// applyConfigToOptions applies non-zero configuration values to Redis options
func applyConfigToOptions(opt *redis.Options, cfg *Config) {
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}
	opt.MaxRetries = cfg.MaxRetries
	if cfg.TLSConfig != nil {
		opt.TLSConfig = cfg.TLSConfig
	}
}

// Ping validates connectivity within the configured timeout.
func (r *Redis) Ping(ctx context.Context) error {
	timeout := r.config.PingTimeout
	if timeout <= 0 {
		timeout = fallbackRedisPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("pinging Redis server (timeout=%s): %w", timeout, err)
	}
	return nil
}

// ScanKeys returns every key matching pattern, iterating with SCAN.
func (r *Redis) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	it := r.Keys(pattern)
	var out []string
	for {
		keys, done, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		if done {
			return dedupe(out), nil
		}
	}
}

// MGetBytes fetches values for keys in one round trip. Missing keys yield nil entries.
func (r *Redis) MGetBytes(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return [][]byte{}, nil
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("MGET %d keys: %w", len(keys), err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		switch t := v.(type) {
		case string:
			out[i] = []byte(t)
		case []byte:
			out[i] = t
		case nil:
			out[i] = nil
		default:
			out[i] = fmt.Append(nil, t)
		}
	}
	return out, nil
}

// Close shuts down the Redis connection.
func (r *Redis) Close() error {
	var err error
	r.once.Do(func() {
		err = r.client.Close()
		if err != nil {
			r.log.Error("Redis connection close failed", "error", err)
		} else {
			r.log.Debug("Redis connection closed")
		}
	})
	return err
}

// SCAN may return a key more than once.
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
