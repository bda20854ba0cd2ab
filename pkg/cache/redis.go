package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the shared cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// RedisCache is the optional shared response cache. Multiple client instances
// pointed at the same Redis see each other's fetches, which keeps the combined
// request rate against the origin down. It sits behind the in-process layer:
// consulted on a local miss, filled after a successful fetch.
type RedisCache struct {
	redis *redis.Client
}

// NewRedisCache creates a shared cache backed by the given Redis client.
func NewRedisCache(redisClient *redis.Client) *RedisCache {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisCache{
		redis: redisClient,
	}
}

// Get retrieves a cached entry by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired.
func (c *RedisCache) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues(LayerRedis).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Redis evicts on TTL itself, but guard against clock skew between writers.
	if entry.IsExpired() {
		_ = c.Delete(ctx, key)
		CacheMisses.WithLabelValues(LayerRedis).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(LayerRedis).Inc()
	return &entry, nil
}

// Set stores an entry under key with a Redis TTL matching the entry's expiry.
// An already-expired entry is not stored.
func (c *RedisCache) Set(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cached entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
