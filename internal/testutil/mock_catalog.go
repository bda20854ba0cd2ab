// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock catalog endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is a configurable mock catalog origin for testing.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
}

// NewMockCatalog creates a new mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// SetHandler sets a custom handler for a specific path. Handlers match on the
// request path only; query parameters are up to the handler.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// defaultHandler answers anything unconfigured with an empty 200.
func (m *MockCatalog) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{}`))
}

// NewFlakyHandler returns a handler that fails with failStatus the first
// failures times it is called, then delegates to then. It is used to exercise
// retry behavior.
func NewFlakyHandler(failures int, failStatus int, then func(w http.ResponseWriter, r *http.Request)) func(w http.ResponseWriter, r *http.Request) {
	var mu sync.Mutex
	remaining := failures
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		fail := remaining > 0
		if fail {
			remaining--
		}
		mu.Unlock()

		if fail {
			w.WriteHeader(failStatus)
			w.Write([]byte(fmt.Sprintf(`{"error": "scripted failure %d"}`, failStatus)))
			return
		}
		then(w, r)
	}
}

// MockSearchItem describes one work to render into a search result fragment.
// The rendered markup matches what the parser expects.
type MockSearchItem struct {
	ID          string
	Title       string
	CircleID    string
	CircleName  string
	Creator     string
	Price       int
	SalePrice   int    // rendered as discounted when > 0
	AgeTitle    string // "All ages", "R-15", or empty for adult
	Rating      string // data-score attribute, empty to omit
	DLCount     string // e.g. "1,234", empty to omit
	ReviewCount string // e.g. "(56)", empty to omit
}

// RenderSearchHTML renders the items as a search result list fragment.
func RenderSearchHTML(items []MockSearchItem) string {
	var b strings.Builder
	b.WriteString(`<ul id="search-result-list">`)
	for _, item := range items {
		b.WriteString(`<li><div class="work" data-work-id="` + item.ID + `">`)
		b.WriteString(`<a class="work-title" href="/work/` + item.ID + `.html" title="` + item.Title + `">` + item.Title + `</a>`)
		b.WriteString(`<div class="maker-name"><a href="/circle/profile/` + item.CircleID + `.html">` + item.CircleName + `</a></div>`)
		if item.Creator != "" {
			b.WriteString(`<span class="author-name">` + item.Creator + `</span>`)
		}
		b.WriteString(`<div class="work-price-wrap">`)
		if item.SalePrice > 0 {
			b.WriteString(`<span class="strike"><span class="price-base">` + formatPrice(item.Price) + `</span></span>`)
			b.WriteString(`<span class="work-price"><span class="price-base">` + formatPrice(item.SalePrice) + `</span></span>`)
		} else {
			b.WriteString(`<span class="work-price"><span class="price-base">` + formatPrice(item.Price) + `</span></span>`)
		}
		b.WriteString(`</div>`)
		if item.AgeTitle != "" {
			b.WriteString(`<span class="age-rating" title="` + item.AgeTitle + `"></span>`)
		}
		if item.Rating != "" {
			b.WriteString(`<span class="star-rating" data-score="` + item.Rating + `"></span>`)
		}
		if item.DLCount != "" {
			b.WriteString(`<span class="dl-count">` + item.DLCount + `</span>`)
		}
		if item.ReviewCount != "" {
			b.WriteString(`<span class="review-count">` + item.ReviewCount + `</span>`)
		}
		b.WriteString(`</div></li>`)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

// RenderSearchEnvelope renders the JSON envelope the search endpoint returns.
func RenderSearchEnvelope(items []MockSearchItem, totalCount int) string {
	payload := map[string]interface{}{
		"search_result": RenderSearchHTML(items),
		"page_info":     map[string]int{"count": totalCount},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// RenderProductInfo renders the product info endpoint payload for one work.
func RenderProductInfo(id string, fields map[string]interface{}) string {
	data, _ := json.Marshal(map[string]interface{}{id: fields})
	return string(data)
}

// RenderCircleHTML renders a circle profile page.
func RenderCircleHTML(name string, workCount int) string {
	return fmt.Sprintf(
		`<html><body><h1 class="circle-name">%s</h1><span class="work-count">%d</span></body></html>`,
		name, workCount)
}

// NewSearchHandler returns a handler answering with a fixed search envelope.
func NewSearchHandler(items []MockSearchItem, totalCount int) func(w http.ResponseWriter, r *http.Request) {
	body := RenderSearchEnvelope(items, totalCount)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}
}

// NewPagedSearchHandler returns a handler that serves pages out of items,
// honoring the page and per_page query parameters.
func NewPagedSearchHandler(items []MockSearchItem, perPage int) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			fmt.Sscanf(p, "%d", &page)
		}
		size := perPage
		if pp := r.URL.Query().Get("per_page"); pp != "" {
			fmt.Sscanf(pp, "%d", &size)
		}

		start := (page - 1) * size
		end := start + size
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(RenderSearchEnvelope(items[start:end], len(items))))
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

func formatPrice(v int) string {
	s := fmt.Sprintf("%d", v)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
