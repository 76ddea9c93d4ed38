package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores encoded report results under a generation. Callers read the
// generation before computing a result and write it back under that same
// generation, so a result computed before an invalidation is never served
// after it.
type Cache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, key string) ([]byte, bool, error)
	Set(ctx context.Context, gen int64, key string, value []byte, ttl time.Duration) error
	// Invalidate drops every cached report.
	Invalidate(ctx context.Context) error
}

// RedisCache keeps reports in redis under a generation prefix; invalidation
// bumps the generation and lets old keys expire.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a cache using keys under prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "reports"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) generationKey() string {
	return c.prefix + ":generation"
}

// Generation returns the current generation, zero before the first
// invalidation.
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return gen, nil
}

func (c *RedisCache) key(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key)
}

// Get returns the value cached under gen and whether it was present.
func (c *RedisCache) Get(ctx context.Context, gen int64, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.key(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores value under gen for ttl. A stale gen writes a key nobody reads.
func (c *RedisCache) Set(ctx context.Context, gen int64, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(gen, key), value, ttl).Err()
}

// Invalidate bumps the generation counter.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.generationKey()).Err()
}
