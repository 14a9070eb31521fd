package taskresult

import (
	"context"

	"github.com/spiffworkflow/backend/engine/infra/objectstore"
	"github.com/spiffworkflow/backend/pkg/logger"
)

type s3Backend struct {
	store  *objectstore.Store
	prefix string
	log    logger.Logger
}

func (b *s3Backend) Kind() string { return KindS3 }

func (b *s3Backend) Values(ctx context.Context) ([][]byte, error) {
	list, err := b.store.List(ctx, b.prefix)
	if err != nil {
		return nil, errS3(err)
	}
	if list.Truncated {
		b.log.Warn("Celery result listing truncated; only the first page is returned", "keys", len(list.Keys))
	}
	values := make([][]byte, 0, len(list.Keys))
	for _, key := range list.Keys {
		data, err := b.store.Get(ctx, key)
		if err != nil {
			return nil, errS3(err)
		}
		values = append(values, data)
	}
	return values, nil
}

func (b *s3Backend) Ping(ctx context.Context) error {
	if err := b.store.Ping(ctx); err != nil {
		return errS3(err)
	}
	return nil
}

func (b *s3Backend) Close() error { return nil }
