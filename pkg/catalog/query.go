package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// SearchQuery describes a product search. The zero value searches everything.
type SearchQuery struct {
	// Keyword filters by free text. Whitespace is normalized so visually
	// identical queries hit the same cache entry.
	Keyword string

	// Category filters by work category slug (e.g. "voice", "game").
	Category string

	// AgeRating restricts results to one rating band.
	AgeRating AgeRating

	// Page selects the result page, 1-based. Zero means page 1.
	Page int

	// PerPage is the page size. Zero uses the origin default.
	PerPage int

	// Sort names the sort field (e.g. "release_date", "dl_count").
	Sort string

	// OnSale limits results to discounted works.
	OnSale bool
}

// Path renders the canonical request path for the query. Parameters are
// emitted in sorted order and normalized, so logically equal queries always
// produce identical paths; the path is used directly as the pipeline key.
func (q SearchQuery) Path() string {
	params := url.Values{}

	if kw := normalizeKeyword(q.Keyword); kw != "" {
		params.Set("keyword", kw)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.AgeRating != "" {
		params.Set("age", string(q.AgeRating))
	}
	if q.Page > 1 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.OnSale {
		params.Set("on_sale", "1")
	}

	path := "/search/ajax"
	if len(params) == 0 {
		return path
	}
	// url.Values.Encode sorts by key.
	return path + "?" + params.Encode()
}

// NextPage returns the query for the following page.
func (q SearchQuery) NextPage() SearchQuery {
	next := q
	if next.Page < 1 {
		next.Page = 1
	}
	next.Page++
	return next
}

// normalizeKeyword trims and collapses internal whitespace.
func normalizeKeyword(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
