// Package ratelimit implements a token-bucket limiter that paces outbound
// catalog requests. The catalog origin bans IPs that hammer it, so every
// network fetch must pass through Acquire before it goes out.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request pacing.
var (
	acquiresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_ratelimit_acquires_total",
		Help: "Total number of permits granted by the rate limiter",
	})

	acquireWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_ratelimit_wait_seconds",
		Help:    "Time spent waiting for a rate limit permit",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	acquireTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_ratelimit_timeouts_total",
		Help: "Total number of permit waits that hit the acquire timeout",
	})
)

// ErrAcquireTimeout is returned when a configured acquire timeout elapses
// before a permit becomes available.
var ErrAcquireTimeout = errors.New("rate limit acquire timeout")

// Limiter is a token-bucket rate limiter. Tokens accumulate continuously at
// rate per second up to burst; each Acquire consumes one token, sleeping until
// one is available. It never fails unless the context is cancelled or an
// acquire timeout is configured.
//
// The mutex guards only the token accounting. It is never held while
// sleeping, so concurrent callers cannot block each other beyond the pacing
// itself.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // tokens per second
	burst  float64
	tokens float64
	last   time.Time

	acquireTimeout time.Duration
	logger         zerolog.Logger
}

// NewLimiter creates a limiter granting rate permits per second with the
// given burst allowance. The bucket starts full. Burst below 1 is clamped
// to 1; rate must be positive.
func NewLimiter(rate float64, burst int, logger zerolog.Logger) *Limiter {
	if rate <= 0 {
		panic("ratelimit: rate must be positive")
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
		logger: logger,
	}
}

// SetAcquireTimeout bounds how long a single Acquire may wait. Zero (the
// default) means wait indefinitely, subject only to the context.
func (l *Limiter) SetAcquireTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquireTimeout = d
}

// Acquire blocks until a permit is available, the context is cancelled, or
// the configured acquire timeout elapses.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	timeout := l.acquireTimeout
	l.mu.Unlock()

	var deadline time.Time
	if timeout > 0 {
		deadline = start.Add(timeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait, ok := l.tryTake()
		if ok {
			acquiresTotal.Inc()
			acquireWaitSeconds.Observe(time.Since(start).Seconds())
			return nil
		}

		if !deadline.IsZero() && time.Now().Add(wait).After(deadline) {
			acquireTimeoutsTotal.Inc()
			l.logger.Warn().
				Dur("waited", time.Since(start)).
				Dur("timeout", timeout).
				Msg("Rate limit acquire timed out")
			return ErrAcquireTimeout
		}

		// Sleep outside the lock, then recheck. Another caller may take the
		// token first; the loop simply waits for the next one.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// tryTake consumes a token if one is available. Otherwise it returns how long
// to wait until the next token accrues.
func (l *Limiter) tryTake() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now

	if l.tokens >= 1 {
		l.tokens--
		return 0, true
	}

	wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
	return wait, false
}

// Tokens returns the currently accrued token count. Intended for tests and
// introspection.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := time.Since(l.last).Seconds()
	tokens := l.tokens + elapsed*l.rate
	if tokens > l.burst {
		tokens = l.burst
	}
	return tokens
}
