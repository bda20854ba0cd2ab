package client

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors. Terminal: retrying a
	// malformed or unauthorized request cannot change the outcome.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors. Transient.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses from the origin. Transient.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network and timeout errors. Transient.
	ErrorClassNetwork ErrorClass = "network"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a retry backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// FetchError is a classified failure of a single logical fetch.
type FetchError struct {
	// StatusCode is the HTTP status, 0 for transport-level failures.
	StatusCode int

	// Class drives retry behavior.
	Class ErrorClass

	// Key is the pipeline key of the failed fetch, when known.
	Key string

	// Attempts is the number of attempts made before giving up.
	Attempts int

	Message string
	Err     error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("catalog %s error", e.Class)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Key)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *FetchError) Retryable() bool {
	return shouldRetry(e.Class)
}

// classifyStatus categorizes an HTTP status code.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == 429:
		return ErrorClassRateLimit
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error class should be retried.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// Client errors and anything unclassified are terminal. Fetches are
		// idempotent reads, so this is purely about not wasting attempts.
		return false
	}
}

// retryable reports whether err is a transient failure. Context cancellation
// and unclassified errors are terminal.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return false
}
