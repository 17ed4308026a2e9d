// Package cache holds the Redis-backed webhook delivery de-duplication.
package cache

import (
	"context"
	"time"

	"payrelay/internal/store/repositories"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "payrelay:webhook:"

// RedisDeduper claims webhook deliveries with SETNX so repeated deliveries
// of the same event short-circuit before reaching the ledger.
type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

var _ repositories.Deduper = (*RedisDeduper)(nil)

func (d *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	return d.rdb.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	return d.rdb.Del(ctx, keyPrefix+key).Err()
}

// Noop never deduplicates; used when Redis is not configured.
type Noop struct{}

func (Noop) Claim(context.Context, string) (bool, error) { return true, nil }
func (Noop) Release(context.Context, string) error       { return nil }
