package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic. It is immutable after
// construction; every execution computes its own delay sequence from it.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff.
	MaxBackoff time.Duration

	// BackoffMultiplier is the factor applied per attempt.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Backoff returns the base delay after the given attempt (1-based), before
// jitter: min(InitialBackoff * BackoffMultiplier^(attempt-1), MaxBackoff).
func (cfg RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := float64(cfg.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= cfg.BackoffMultiplier
		if backoff >= float64(cfg.MaxBackoff) {
			return cfg.MaxBackoff
		}
	}
	if backoff > float64(cfg.MaxBackoff) {
		return cfg.MaxBackoff
	}
	return time.Duration(backoff)
}

// retryFetch executes op with bounded retries. Transient failures are retried
// after an exponential backoff plus random jitter in [0, backoff); terminal
// failures and exhaustion return the last error with its attempt count set.
// The operation must be an idempotent read.
func retryFetch[V any](ctx context.Context, cfg RetryConfig, logger zerolog.Logger, op func(ctx context.Context) (V, error)) (V, error) {
	var zero V
	var lastErr error

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Fetch succeeded after retry")
			}
			return v, nil
		}
		lastErr = err

		if !retryable(err) {
			setAttempts(err, attempt)
			return zero, err
		}

		if attempt >= attempts {
			break
		}

		class := errorClassOf(err)
		retriesTotal.WithLabelValues(string(class)).Inc()

		backoff := cfg.Backoff(attempt)
		wait := backoff + time.Duration(rand.Float64()*float64(backoff))
		retryBackoffSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())

		logger.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying fetch after backoff")

		select {
		case <-ctx.Done():
			logger.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return zero, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(wait):
		}
	}

	class := errorClassOf(lastErr)
	retryExhaustedTotal.WithLabelValues(string(class)).Inc()
	setAttempts(lastErr, attempts)
	logger.Warn().
		Str("error_class", string(class)).
		Int("max_attempts", attempts).
		Msg("Retry attempts exhausted")

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}

// setAttempts records the attempt count on the error when it is a FetchError.
func setAttempts(err error, attempts int) {
	var fe *FetchError
	if errors.As(err, &fe) {
		fe.Attempts = attempts
	}
}

// errorClassOf extracts the error class, defaulting to network for
// unclassified errors.
func errorClassOf(err error) ErrorClass {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ErrorClassNetwork
}
