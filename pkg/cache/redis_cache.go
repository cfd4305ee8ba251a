package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache backed by a Redis client, grounded on
// pkg/kernel/limiter_redis.go's client-construction convention (same
// redis.Options shape; no Lua script here since the cache layer has no
// quota semantics, just get/set).
type RedisCache struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisCache creates a Cache backed by Redis at addr.
func NewRedisCache(addr, password string, db int, log *slog.Logger) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{client: rdb, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WarnContext(ctx, "cache get failed, degrading to live fetch", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (c *RedisCache) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "cache set failed, continuing without cache write", "key", key, "error", err)
	}
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
