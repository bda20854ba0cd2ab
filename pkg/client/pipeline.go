package client

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mkatze/catalog-client/pkg/cache"
	"github.com/mkatze/catalog-client/pkg/ratelimit"
)

// FetchFunc produces the value for a single fetch attempt.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// PipelineOption configures optional pipeline behavior.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	dedupe bool
}

// WithInFlightDedupe collapses concurrent misses for the same key into a
// single fetch. Off by default: without it two concurrent callers missing on
// the same key both fetch and the last write wins, which is an accepted
// tradeoff for lower tail latency.
func WithInFlightDedupe() PipelineOption {
	return func(o *pipelineOptions) {
		o.dedupe = true
	}
}

// Pipeline composes the cache, rate limiter, and retry executor around a
// single logical fetch-by-key operation:
//
//  1. Cache hit returns immediately, with no rate-limit or network cost.
//  2. On a miss the caller acquires a rate-limit permit, then the fetch runs
//     under the retry executor.
//  3. A successful result is inserted into the cache before returning.
//  4. Failures are returned uncached, so a transient upstream error cannot
//     poison future lookups.
//
// Neither the cache lock nor any limiter state is held across the network
// call; the pipeline only ever suspends in Acquire, in retry backoff, and in
// the fetch itself.
type Pipeline[V any] struct {
	cache   *cache.BoundedTTLCache[V]
	limiter *ratelimit.Limiter
	retry   RetryConfig
	group   *singleflight.Group
	logger  zerolog.Logger
}

// NewPipeline creates a pipeline over the given cache and limiter. Both are
// owned by the surrounding client instance and may be shared by many
// pipelines.
func NewPipeline[V any](c *cache.BoundedTTLCache[V], limiter *ratelimit.Limiter, retry RetryConfig, logger zerolog.Logger, opts ...PipelineOption) *Pipeline[V] {
	var o pipelineOptions
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline[V]{
		cache:   c,
		limiter: limiter,
		retry:   retry,
		logger:  logger,
	}
	if o.dedupe {
		p.group = &singleflight.Group{}
	}
	return p
}

// Fetch returns the cached value for key, or runs fn under the rate limiter
// and retry executor and caches the result. key must be deterministic for the
// logical query (see cache.Key).
func (p *Pipeline[V]) Fetch(ctx context.Context, key string, fn FetchFunc[V]) (V, error) {
	if v, ok := p.cache.Get(key); ok {
		p.logger.Debug().Str("key", key).Msg("Cache hit")
		return v, nil
	}

	if p.group == nil {
		return p.fetchAndFill(ctx, key, fn)
	}

	// In-flight dedup: followers attach to the leader's result. The leader's
	// context drives the shared fetch; an abandoned follower just discards
	// the value.
	v, err, shared := p.group.Do(key, func() (interface{}, error) {
		return p.fetchAndFill(ctx, key, fn)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	if shared {
		p.logger.Debug().Str("key", key).Msg("Joined in-flight fetch")
	}
	return v.(V), nil
}

func (p *Pipeline[V]) fetchAndFill(ctx context.Context, key string, fn FetchFunc[V]) (V, error) {
	var zero V

	if err := p.limiter.Acquire(ctx); err != nil {
		return zero, err
	}

	v, err := retryFetch(ctx, p.retry, p.logger, fn)
	if err != nil {
		// Never cache failures.
		var fe *FetchError
		if errors.As(err, &fe) && fe.Key == "" {
			fe.Key = key
		}
		return zero, err
	}

	p.cache.Set(key, v)
	return v, nil
}
