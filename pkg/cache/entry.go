package cache

import (
	"net/http"
	"time"
)

// Entry is a cached catalog HTTP response, as stored in the shared Redis
// layer. The in-process layer stores decoded values directly and does not use
// Entry.
type Entry struct {
	// Body is the response body.
	Body []byte `json:"body"`

	// StatusCode is the HTTP status code of the cached response.
	StatusCode int `json:"status_code"`

	// Header are the response headers.
	Header http.Header `json:"header"`

	// FetchedAt is when the response was fetched from the origin.
	FetchedAt time.Time `json:"fetched_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the entry has passed its expiry time.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
