// Package listcache keeps the listed batch rows in Redis between mutations.
package listcache

import (
	"context"
	"encoding/json"
	"time"

	"batchtrack/store"

	"github.com/redis/go-redis/v9"
)

const rowsKey = "batchtrack:batches:rows"

// LogFunc is the logging callback signature.
type LogFunc func(format string, args ...any)

// RedisCache is a read-through cache of store.BatchRow lists. Any Redis
// error counts as a miss.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logFn  LogFunc
}

// NewRedisCache creates a cache whose entries expire after ttl (0 keeps them
// until invalidated).
func NewRedisCache(client *redis.Client, ttl time.Duration, logFn LogFunc) *RedisCache {
	if logFn == nil {
		logFn = func(string, ...any) {}
	}
	return &RedisCache{client: client, ttl: ttl, logFn: logFn}
}

func (c *RedisCache) Rows(ctx context.Context) ([]store.BatchRow, bool) {
	data, err := c.client.Get(ctx, rowsKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logFn("listcache: get: %v", err)
		return nil, false
	}
	var rows []store.BatchRow
	if err := json.Unmarshal(data, &rows); err != nil {
		c.logFn("listcache: decode: %v", err)
		return nil, false
	}
	return rows, true
}

func (c *RedisCache) SetRows(ctx context.Context, rows []store.BatchRow) {
	data, err := json.Marshal(rows)
	if err != nil {
		c.logFn("listcache: encode: %v", err)
		return
	}
	if err := c.client.Set(ctx, rowsKey, data, c.ttl).Err(); err != nil {
		c.logFn("listcache: set: %v", err)
	}
}

// Invalidate drops the cached rows.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, rowsKey).Err()
}
