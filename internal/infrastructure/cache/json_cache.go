package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisJSONCache stores JSON documents under a key prefix. It backs values that
// several API instances should share, such as the FX rate table.
type RedisJSONCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisJSONCache creates a cache with an existing Redis client
func NewRedisJSONCache(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisJSONCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisJSONCache{client: client, keyPrefix: keyPrefix, logger: logger}
}

// Get decodes the cached value into dst. found is false on a miss.
func (c *RedisJSONCache) Get(ctx context.Context, key string, dst any) (found bool, err error) {
	cacheKey := c.keyPrefix + key

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Cache miss", zap.String("key", cacheKey))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s from cache: %w", cacheKey, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		// corrupted entry, drop it so the next write heals the cache
		_ = c.client.Del(ctx, cacheKey)
		return false, fmt.Errorf("failed to unmarshal %s: %w", cacheKey, err)
	}
	return true, nil
}

// Set stores v for ttl
func (c *RedisJSONCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (c *RedisJSONCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.keyPrefix+key).Err()
}
