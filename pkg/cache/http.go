package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ResponseToEntry converts an HTTP response to an Entry valid for ttl.
// The response body is read fully and restored so the caller can still
// consume it.
func ResponseToEntry(resp *http.Response, ttl time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	return &Entry{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		FetchedAt:  now,
		Expires:    now.Add(ttl),
	}, nil
}

// EntryToResponse reconstructs an HTTP response from a cached entry.
func EntryToResponse(entry *Entry) *http.Response {
	if entry == nil {
		return nil
	}
	return &http.Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Header.Clone(),
		Body:       io.NopCloser(bytes.NewReader(entry.Body)),
	}
}
