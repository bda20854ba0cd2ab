package catalog

import "fmt"

// AgeRating classifies a work's audience rating.
type AgeRating string

const (
	AgeRatingGeneral AgeRating = "general"
	AgeRatingR15     AgeRating = "r15"
	AgeRatingAdult   AgeRating = "adult"
)

// SearchItem is one work as it appears in a search result listing.
type SearchItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CircleID    string    `json:"circle_id"`
	CircleName  string    `json:"circle_name"`
	Creator     string    `json:"creator,omitempty"`
	Price       int       `json:"price"`
	SalePrice   *int      `json:"sale_price,omitempty"`
	AgeRating   AgeRating `json:"age_rating"`
	Rating      *float64  `json:"rating,omitempty"`
	DLCount     *int      `json:"dl_count,omitempty"`
	ReviewCount *int      `json:"review_count,omitempty"`
}

// SearchResult is a parsed search page.
type SearchResult struct {
	Items []SearchItem `json:"items"`

	// Count is the total number of works matching the query, across all
	// pages, as reported by the origin.
	Count int `json:"count"`

	// QueryPath is the canonical request path the result was fetched from.
	// It doubles as the cache key for the parsed result.
	QueryPath string `json:"query_path"`
}

// Product is the JSON API representation of a single work.
type Product struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	CircleID   string   `json:"circle_id"`
	CircleName string   `json:"circle_name"`
	Price      int      `json:"price"`
	SalePrice  *int     `json:"sale_price,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	DLCount    *int     `json:"dl_count,omitempty"`
	WishCount  *int     `json:"wish_count,omitempty"`
}

// Circle is a creator group's profile.
type Circle struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	WorkCount int    `json:"work_count"`
}

// ParseError indicates a response body could not be parsed. It is never
// retried: refetching cannot change a parse outcome.
type ParseError struct {
	What string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("parse error: %s", e.What)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}
