// Package stream drives sequential page fetches, delivering items to a
// consumer callback as each page resolves. At most one page of items is held
// in memory at a time, independent of total result-set size.
package stream

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_stream_pages_total",
		Help: "Total pages fetched by streaming runs",
	})

	streamItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_stream_items_total",
		Help: "Total items delivered to streaming consumers",
	})
)

// PageFunc fetches one page of items for the given query.
type PageFunc[Q, T any] func(ctx context.Context, query Q) ([]T, error)

// AdvanceFunc produces the query for the next page after a page delivered
// itemCount items. Returning false ends the stream.
type AdvanceFunc[Q any] func(query Q, itemCount int) (Q, bool)

// ConsumeFunc receives one item. Returning an error aborts the stream; items
// already delivered are not rolled back.
type ConsumeFunc[T any] func(item T) error

// Run walks pages sequentially starting from initial: page N+1 is requested
// only after every item of page N has been delivered to consume. The stream
// ends when a page yields zero items, when advance reports no further pages,
// or on the first error. It returns the total number of items delivered;
// on error, items delivered before the failure are counted and not rolled
// back.
func Run[Q, T any](ctx context.Context, initial Q, fetch PageFunc[Q, T], advance AdvanceFunc[Q], consume ConsumeFunc[T]) (int, error) {
	query := initial
	delivered := 0

	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		items, err := fetch(ctx, query)
		if err != nil {
			return delivered, err
		}
		streamPagesTotal.Inc()

		if len(items) == 0 {
			return delivered, nil
		}

		for _, item := range items {
			if err := consume(item); err != nil {
				return delivered, fmt.Errorf("consumer aborted stream: %w", err)
			}
			delivered++
			streamItemsTotal.Inc()
		}

		next, ok := advance(query, len(items))
		if !ok {
			return delivered, nil
		}
		query = next
	}
}
