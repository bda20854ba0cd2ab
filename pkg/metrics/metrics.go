// Package metrics provides the centralized Prometheus metrics registry for
// the catalog client. All metrics are defined in their respective packages
// (client, cache, ratelimit, batch, stream) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the catalog client.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total{layer} (Counter): Cache hits by layer (memory, redis)
//   - catalog_cache_misses_total{layer} (Counter): Cache misses by layer
//   - catalog_cache_evictions_total (Counter): Entries evicted at capacity
//   - catalog_cache_expirations_total (Counter): Entries dropped after TTL expiry
//   - catalog_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_ratelimit_acquires_total (Counter): Permits granted
//   - catalog_ratelimit_wait_seconds (Histogram): Time spent waiting for a permit
//   - catalog_ratelimit_timeouts_total (Counter): Acquires abandoned on timeout
//
// Request Metrics (pkg/client):
//   - catalog_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catalog_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - catalog_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_retry_exhausted_total{error_class} (Counter): Fetches that exhausted max attempts
//
// Batch Metrics (pkg/batch):
//   - catalog_batches_total{outcome} (Counter): Batch runs by outcome (success, failure)
//   - catalog_batch_items_total (Counter): Items processed across all batches
//
// Stream Metrics (pkg/stream):
//   - catalog_stream_pages_total (Counter): Pages fetched by streaming walks
//   - catalog_stream_items_total (Counter): Items delivered by streaming walks
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_cache_hits_total[5m])) /
//   (sum(rate(catalog_cache_hits_total[5m])) + sum(rate(catalog_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(catalog_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
//
//   # Rate Limit Wait P99
//   histogram_quantile(0.99, rate(catalog_ratelimit_wait_seconds_bucket[5m]))
