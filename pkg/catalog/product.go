package catalog

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/mkatze/catalog-client/pkg/batch"
)

// productInfoPath builds the product info endpoint path. The endpoint returns
// a JSON object keyed by product ID.
func productInfoPath(id string) string {
	params := url.Values{}
	params.Set("product_id", id)
	return "/product/info/ajax?" + params.Encode()
}

// Product fetches a single work's metadata from the JSON product API.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	path := productInfoPath(id)

	if p, ok := s.products.Get(path); ok {
		s.logger.Debug().Str("product_id", id).Msg("Parsed product cache hit")
		return p, nil
	}

	body, err := s.client.Get(ctx, path)
	if err != nil {
		return Product{}, err
	}

	var payload map[string]Product
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return Product{}, &ParseError{What: "product info payload", Err: err}
	}

	p, ok := payload[id]
	if !ok {
		return Product{}, &ParseError{What: "product " + id + " missing from payload"}
	}
	p.ID = id

	s.products.Set(path, p)
	return p, nil
}

// ProductBatch fetches several products concurrently, results aligned with
// the input order. The first failure cancels the rest.
func (s *Service) ProductBatch(ctx context.Context, ids []string) ([]Product, error) {
	return batch.Run(ctx, s.batchConcurrency, ids, s.Product)
}
