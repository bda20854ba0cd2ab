// Package client provides the core catalog HTTP client with rate limiting,
// caching, retries, and error classification.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mkatze/catalog-client/pkg/cache"
	"github.com/mkatze/catalog-client/pkg/logging"
	"github.com/mkatze/catalog-client/pkg/ratelimit"
)

// Prometheus metrics for catalog requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total catalog errors by class",
	}, []string{"class"})
)

// Config holds the client configuration. All values are plain data; no
// network or file I/O happens until the client is used.
type Config struct {
	// BaseURL is the catalog origin (e.g. "https://catalog.example.com").
	BaseURL string

	// UserAgent identifies this client to the origin.
	UserAgent string

	// Redis enables the shared response cache when non-nil.
	Redis *redis.Client

	// RequestTimeout bounds a single HTTP request.
	RequestTimeout time.Duration

	// MaxIdleConnsPerHost configures the transport's connection pool.
	MaxIdleConnsPerHost int

	// CacheCapacity and CacheTTL bound the in-process response cache.
	CacheCapacity int
	CacheTTL      time.Duration

	// RequestsPerSecond and Burst configure the token-bucket limiter.
	RequestsPerSecond float64
	Burst             int

	// AcquireTimeout bounds a single rate-limit wait. Zero waits forever.
	AcquireTimeout time.Duration

	// Retry configures the retry executor.
	Retry RetryConfig

	// MaxBatchConcurrency bounds concurrent fetches in batch operations.
	MaxBatchConcurrency int

	// DedupeInFlight collapses concurrent misses per key into one fetch.
	DedupeInFlight bool
}

// DefaultConfig returns a safe default configuration for the given origin.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:             baseURL,
		UserAgent:           "catalog-client/0.3.0",
		RequestTimeout:      30 * time.Second,
		MaxIdleConnsPerHost: 10,
		CacheCapacity:       100,
		CacheTTL:            time.Hour,
		RequestsPerSecond:   2,
		Burst:               1,
		Retry:               DefaultRetryConfig(),
		MaxBatchConcurrency: 4,
	}
}

// Client is the catalog HTTP client. The in-process cache and the rate
// limiter are created once per client and shared by every fetch made through
// it; separate clients are fully independent.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	limiter    *ratelimit.Limiter
	pipeline   *Pipeline[string]
	shared     *cache.RedisCache
	logger     zerolog.Logger
}

// New creates a catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive (got %v)", cfg.RequestsPerSecond)
	}
	if cfg.CacheCapacity < 1 {
		return nil, fmt.Errorf("cache capacity must be >= 1 (got %d)", cfg.CacheCapacity)
	}

	logger := logging.NewLogger("catalog-client")

	limiter := ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Burst, logger)
	if cfg.AcquireTimeout > 0 {
		limiter.SetAcquireTimeout(cfg.AcquireTimeout)
	}

	responses := cache.NewBoundedTTLCache[string](cfg.CacheCapacity, cfg.CacheTTL)

	var opts []PipelineOption
	if cfg.DedupeInFlight {
		opts = append(opts, WithInFlightDedupe())
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			},
		},
		baseURL: cfg.BaseURL,
		config:  cfg,
		limiter: limiter,
		logger:  logger,
	}
	c.pipeline = NewPipeline(responses, limiter, cfg.Retry, logger, opts...)

	if cfg.Redis != nil {
		c.shared = cache.NewRedisCache(cfg.Redis)
	}

	return c, nil
}

// Get fetches path relative to the base URL and returns the response body.
// The full pipeline applies: in-process cache, optional shared Redis cache,
// rate limiting, and classified retries.
func (c *Client) Get(ctx context.Context, path string) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", &FetchError{
			Class:   ErrorClassClient,
			Message: fmt.Sprintf("invalid path %q", path),
			Err:     err,
		}
	}
	key := cache.Key{Path: u.Path, Query: u.Query()}.String()

	return c.pipeline.Fetch(ctx, key, func(ctx context.Context) (string, error) {
		return c.fetchOrigin(ctx, key, path)
	})
}

// fetchOrigin is the single-attempt fetch run under the retry executor:
// shared cache lookup first, then the network, then a shared cache fill.
func (c *Client) fetchOrigin(ctx context.Context, key, path string) (string, error) {
	if c.shared != nil {
		entry, err := c.shared.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("key", key).Msg("Shared cache hit")
			return string(entry.Body), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("key", key).Msg("Shared cache get error")
		}
	}

	entry, err := c.doRequest(ctx, path)
	if err != nil {
		return "", err
	}

	if c.shared != nil {
		if err := c.shared.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Shared cache fill failed")
		}
	}

	return string(entry.Body), nil
}

// doRequest performs one HTTP GET and classifies any failure. A successful
// response is returned as a cache entry valid for the configured TTL.
func (c *Client) doRequest(ctx context.Context, path string) (*cache.Entry, error) {
	endpoint := path
	if u, err := url.Parse(path); err == nil {
		endpoint = u.Path
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &FetchError{
			Class:   ErrorClassClient,
			Message: "create request",
			Err:     err,
		}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/json")

	c.logger.Debug().Str("endpoint", endpoint).Msg("Executing catalog request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &FetchError{
			Class:   ErrorClassNetwork,
			Message: "http request",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Catalog request error")
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		}
	}

	entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &FetchError{
			Class:   ErrorClassNetwork,
			Message: "read response body",
			Err:     err,
		}
	}

	return entry, nil
}

// Close releases idle connections held by the transport. The client must not
// be used afterwards.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// ClearCache removes all entries from the in-process response cache.
func (c *Client) ClearCache() {
	c.pipeline.cache.Clear()
}

// CacheLen returns the number of entries in the in-process response cache.
func (c *Client) CacheLen() int {
	return c.pipeline.cache.Len()
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.config
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
