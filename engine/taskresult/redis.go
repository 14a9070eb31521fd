package taskresult

import (
	"context"

	"github.com/spiffworkflow/backend/engine/infra/cache"
	"github.com/spiffworkflow/backend/pkg/logger"
)

type redisBackend struct {
	client     *cache.Redis
	prefix     string
	maxEntries int
	log        logger.Logger
}

func (b *redisBackend) Kind() string { return KindRedis }

func (b *redisBackend) Values(ctx context.Context) ([][]byte, error) {
	keys, err := b.client.ScanKeys(ctx, b.prefix+"*")
	if err != nil {
		return nil, errRedis(err)
	}
	if len(keys) > b.maxEntries {
		return nil, errTooManyEntries(len(keys))
	}
	b.log.Debug("Fetching Celery results", "keys", len(keys))
	values, err := b.client.MGetBytes(ctx, keys...)
	if err != nil {
		return nil, errRedis(err)
	}
	return values, nil
}

func (b *redisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx); err != nil {
		return errRedis(err)
	}
	return nil
}

func (b *redisBackend) Close() error {
	return b.client.Close()
}
