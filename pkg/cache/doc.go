// Package cache provides the two caching layers of the catalog client.
//
// BoundedTTLCache is a generic in-process cache bounded by entry count and
// TTL. Eviction is FIFO by insertion order with lazy expiry; there is no
// background sweeper. It is used both for raw response bodies and for parsed
// domain values.
//
// RedisCache is an optional shared layer for raw responses, so that multiple
// client processes pointed at the same Redis do not refetch each other's
// pages.
//
// # Basic usage
//
//	// In-process cache for parsed values
//	c := cache.NewBoundedTTLCache[string](100, time.Hour)
//	c.Set("key", "value")
//	v, ok := c.Get("key")
//
//	// Shared response cache
//	shared := cache.NewRedisCache(redisClient)
//	entry, err := shared.Get(ctx, key.String())
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from origin
//	}
//
// # Keys
//
// Key builds deterministic key strings: parameters are sorted, paths are
// normalized, so logically equal requests always map to the same entry.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - catalog_cache_hits_total{layer} / catalog_cache_misses_total{layer}
//   - catalog_cache_evictions_total - entries dropped at capacity
//   - catalog_cache_expirations_total - entries dropped after TTL expiry
//   - catalog_cache_errors_total{operation} - shared cache operation errors
package cache
