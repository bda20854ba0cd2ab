package catalog

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/mkatze/catalog-client/pkg/batch"
	"github.com/mkatze/catalog-client/pkg/cache"
	"github.com/mkatze/catalog-client/pkg/client"
	"github.com/mkatze/catalog-client/pkg/logging"
	"github.com/mkatze/catalog-client/pkg/stream"
)

// searchEnvelope is the origin's search endpoint payload: a rendered HTML
// fragment plus pagination metadata.
type searchEnvelope struct {
	SearchResult string `json:"search_result"`
	PageInfo     struct {
		Count int `json:"count"`
	} `json:"page_info"`
}

// Service exposes the catalog domain operations on top of a Client. Parsed
// results get their own cache layer above the client's raw response cache, so
// a repeated query skips both the network and the HTML parse.
type Service struct {
	client           *client.Client
	searches         *cache.BoundedTTLCache[SearchResult]
	products         *cache.BoundedTTLCache[Product]
	circles          *cache.BoundedTTLCache[Circle]
	batchConcurrency int
	logger           zerolog.Logger
}

// NewService creates a catalog service over the given client. The parsed
// caches inherit the client's capacity and TTL settings.
func NewService(c *client.Client) *Service {
	cfg := c.Config()
	return &Service{
		client:           c,
		searches:         cache.NewBoundedTTLCache[SearchResult](cfg.CacheCapacity, cfg.CacheTTL),
		products:         cache.NewBoundedTTLCache[Product](cfg.CacheCapacity, cfg.CacheTTL),
		circles:          cache.NewBoundedTTLCache[Circle](cfg.CacheCapacity, cfg.CacheTTL),
		batchConcurrency: cfg.MaxBatchConcurrency,
		logger:           logging.NewLogger("catalog-service"),
	}
}

// Search runs one search query and returns the parsed result page.
//
// The parsed cache is keyed by the canonical query path, the same key the
// client uses for the raw response, so both layers agree on query identity.
func (s *Service) Search(ctx context.Context, q SearchQuery) (SearchResult, error) {
	path := q.Path()

	if result, ok := s.searches.Get(path); ok {
		s.logger.Debug().Str("path", path).Msg("Parsed search cache hit")
		return result, nil
	}

	body, err := s.client.Get(ctx, path)
	if err != nil {
		return SearchResult{}, err
	}

	var env searchEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return SearchResult{}, &ParseError{What: "search envelope", Err: err}
	}

	items, err := ParseSearchHTML(env.SearchResult)
	if err != nil {
		return SearchResult{}, err
	}

	result := SearchResult{
		Items:     items,
		Count:     env.PageInfo.Count,
		QueryPath: path,
	}
	s.searches.Set(path, result)

	s.logger.Debug().
		Str("path", path).
		Int("items", len(items)).
		Int("total", result.Count).
		Msg("Search page parsed")

	return result, nil
}

// SearchBatch runs the queries concurrently and returns results aligned with
// the input order. The first failure cancels the remaining queries and is
// returned as a *batch.Error carrying the failing query path and index.
func (s *Service) SearchBatch(ctx context.Context, queries []SearchQuery) ([]SearchResult, error) {
	keys, byPath := batchKeys(queries)
	return batch.Run(ctx, s.batchConcurrency, keys, func(ctx context.Context, path string) (SearchResult, error) {
		return s.Search(ctx, byPath[path])
	})
}

// SearchBatchPartial runs the queries concurrently and returns a per-query
// outcome; one failing query does not stop the others.
func (s *Service) SearchBatchPartial(ctx context.Context, queries []SearchQuery) []batch.Result[SearchResult] {
	keys, byPath := batchKeys(queries)
	return batch.RunPartial(ctx, s.batchConcurrency, keys, func(ctx context.Context, path string) (SearchResult, error) {
		return s.Search(ctx, byPath[path])
	})
}

func batchKeys(queries []SearchQuery) ([]string, map[string]SearchQuery) {
	keys := make([]string, len(queries))
	byPath := make(map[string]SearchQuery, len(queries))
	for i, q := range queries {
		path := q.Path()
		keys[i] = path
		byPath[path] = q
	}
	return keys, byPath
}

// SearchStream walks every result page of the query sequentially and hands
// each item to consume, holding at most one page in memory. It returns the
// number of items delivered, which is valid even when the walk stops early on
// an error.
func (s *Service) SearchStream(ctx context.Context, q SearchQuery, consume func(SearchItem) error) (int, error) {
	if q.Page < 1 {
		q.Page = 1
	}

	total := -1
	seen := 0

	fetch := func(ctx context.Context, q SearchQuery) ([]SearchItem, error) {
		result, err := s.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		total = result.Count
		return result.Items, nil
	}

	advance := func(q SearchQuery, itemCount int) (SearchQuery, bool) {
		seen += itemCount
		if total >= 0 && seen >= total {
			return SearchQuery{}, false
		}
		return q.NextPage(), true
	}

	return stream.Run(ctx, q, fetch, advance, consume)
}

// ClearParsedCaches drops all parsed search, product, and circle entries.
// The client's raw response cache is unaffected.
func (s *Service) ClearParsedCaches() {
	s.searches.Clear()
	s.products.Clear()
	s.circles.Clear()
}
