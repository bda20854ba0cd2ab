// Package batch provides bounded-concurrency fan-out over independent
// catalog fetches. Results preserve input order regardless of completion
// order; failure handling is fail-fast by default with an explicit
// partial-results mode.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_batches_total",
		Help: "Total batch runs by outcome",
	}, []string{"outcome"}) // "ok", "error"

	batchItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_batch_items_total",
		Help: "Total items fetched across batch runs",
	})
)

// DefaultMaxConcurrency bounds batch fan-out when the caller does not
// configure one. Kept low so a batch cannot blow through the rate limiter's
// burst budget or the fetcher's connection pool.
const DefaultMaxConcurrency = 4

// Error wraps the first terminal failure of a batch run.
type Error struct {
	// Key is the input key whose fetch failed.
	Key string

	// Index is the position of Key in the input.
	Index int

	// Attempted is the total number of keys in the batch.
	Attempted int

	// Completed is the number of fetches that had succeeded when the batch
	// was cancelled.
	Completed int

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("batch failed at key %q (index %d, %d/%d completed): %v",
		e.Key, e.Index, e.Completed, e.Attempted, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// FetchFunc fetches the value for one key.
type FetchFunc[V any] func(ctx context.Context, key string) (V, error)

// Result pairs one input key with its outcome, for partial-results mode.
type Result[V any] struct {
	Key   string
	Value V
	Err   error
}

// Run fetches every key concurrently, bounded by maxConcurrency
// (DefaultMaxConcurrency when <= 0). The returned slice is aligned to the
// input order. The first failure cancels outstanding work and is returned as
// a *Error; completed values are discarded.
func Run[V any](ctx context.Context, maxConcurrency int, keys []string, fetch FetchFunc[V]) ([]V, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	results := make([]V, len(keys))
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			v, err := fetch(gctx, key)
			if err != nil {
				return &Error{
					Key:       key,
					Index:     i,
					Attempted: len(keys),
					Err:       err,
				}
			}
			results[i] = v
			completed.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var be *Error
		if errors.As(err, &be) {
			be.Completed = int(completed.Load())
		}
		batchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	batchesTotal.WithLabelValues("ok").Inc()
	batchItemsTotal.Add(float64(len(keys)))
	return results, nil
}

// RunPartial fetches every key concurrently like Run, but never cancels on
// failure: every key is attempted and the returned slice carries a per-key
// outcome, aligned to the input order.
func RunPartial[V any](ctx context.Context, maxConcurrency int, keys []string, fetch FetchFunc[V]) []Result[V] {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	results := make([]Result[V], len(keys))

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrency)

	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			v, err := fetch(ctx, key)
			results[i] = Result[V]{Key: key, Value: v, Err: err}
			return nil
		})
	}

	_ = g.Wait()

	batchesTotal.WithLabelValues("ok").Inc()
	return results
}
