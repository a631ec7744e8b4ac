package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"OutdoorAPI/internal/logger"
	"OutdoorAPI/internal/plan"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// Cache stores encoded responses. Failures are logged and treated as
// misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// RedisCache is a Cache backed by Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("cache_get_failed", map[string]any{"key": key, "error": err.Error()})
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		logger.Warn("cache_set_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// CacheKey derives the key of a plan's result. Equal plans give equal keys.
func CacheKey(kind string, p *plan.Plan) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("outdoorapi:%s:%s:%016x", kind, p.Entity, xxhash.Sum64(data)), nil
}
