package listcache

import (
	"context"
	"testing"
	"time"

	"batchtrack/store"

	"github.com/redis/go-redis/v9"
)

func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestUnavailableRedisIsAMiss(t *testing.T) {
	client := unreachable()
	defer client.Close()

	var logged int
	c := NewRedisCache(client, time.Minute, func(string, ...any) { logged++ })
	ctx := context.Background()

	c.SetRows(ctx, []store.BatchRow{{Batch: store.Batch{ID: 1}}})
	if _, ok := c.Rows(ctx); ok {
		t.Fatal("rows should miss when redis is down")
	}
	if logged == 0 {
		t.Error("redis errors should be logged")
	}
	if err := c.Invalidate(ctx); err == nil {
		t.Error("invalidate should report the connection error")
	}
}
