package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache layer labels.
const (
	// LayerMemory is the per-client in-process cache.
	LayerMemory = "memory"

	// LayerRedis is the optional shared Redis cache.
	LayerRedis = "redis"
)

var (
	// CacheHits tracks cache hits by layer.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses by layer.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
		[]string{"layer"},
	)

	// CacheEvictions tracks entries evicted by capacity pressure.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_evictions_total",
			Help: "Total number of cache entries evicted at capacity",
		},
	)

	// CacheExpirations tracks entries removed because their TTL elapsed.
	CacheExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_expirations_total",
			Help: "Total number of cache entries dropped after TTL expiry",
		},
	)

	// CacheErrors tracks shared-cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
