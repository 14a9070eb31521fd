package cache

import "context"

// KeyIterator walks keys in batches.
type KeyIterator interface {
	// Next returns the next batch; done is true once the cursor wraps to zero.
	Next(ctx context.Context) (keys []string, done bool, err error)
}

type redisKeysIter struct {
	client  RedisInterface
	pattern string
	cursor  uint64
	done    bool
	count   int64
}

// Keys returns a SCAN-backed iterator over keys matching pattern.
func (r *Redis) Keys(pattern string) KeyIterator {
	count := r.config.ScanCount
	if count <= 0 {
		count = defaultScanCount
	}
	return &redisKeysIter{client: r.client, pattern: pattern, count: count}
}

func (it *redisKeysIter) Next(ctx context.Context) ([]string, bool, error) {
	if it.done {
		return nil, true, nil
	}
	keys, next, err := it.client.Scan(ctx, it.cursor, it.pattern, it.count).Result()
	if err != nil {
		return nil, false, err
	}
	it.cursor = next
	if it.cursor == 0 {
		it.done = true
	}
	return keys, it.done, nil
}
