package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestLimiter_FirstAcquireImmediate(t *testing.T) {
	l := NewLimiter(1, 1, testLogger())

	start := time.Now()
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("first Acquire() took %v, want immediate", elapsed)
	}
}

func TestLimiter_Spacing(t *testing.T) {
	// rate=2/s, burst=1: 5 sequential acquires spend one initial token and
	// wait 500ms for each of the remaining 4, so >= 2s total.
	l := NewLimiter(2, 1, testLogger())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() #%d error = %v", i+1, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 1900*time.Millisecond {
		t.Errorf("5 acquires at 2/s took %v, want >= ~2s", elapsed)
	}
}

func TestLimiter_BurstAllowsImmediateCalls(t *testing.T) {
	l := NewLimiter(1, 3, testLogger())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() #%d error = %v", i+1, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("3 burst acquires took %v, want immediate", elapsed)
	}
}

func TestLimiter_ContextCancellation(t *testing.T) {
	l := NewLimiter(0.5, 1, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	// Drain the initial token.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := l.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestLimiter_AcquireTimeout(t *testing.T) {
	l := NewLimiter(0.2, 1, testLogger()) // 5s per token once drained
	l.SetAcquireTimeout(100 * time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	start := time.Now()
	err := l.Acquire(ctx)
	if !errors.Is(err, ErrAcquireTimeout) {
		t.Fatalf("Acquire() error = %v, want ErrAcquireTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timed-out Acquire() took %v, want well under the 5s token interval", elapsed)
	}
}

func TestLimiter_TokensCapAtBurst(t *testing.T) {
	l := NewLimiter(100, 5, testLogger())

	time.Sleep(100 * time.Millisecond) // would accrue 10 tokens uncapped

	if tokens := l.Tokens(); tokens > 5 {
		t.Errorf("Tokens() = %v, want <= burst 5", tokens)
	}
}

func TestLimiter_ConcurrentAcquires(t *testing.T) {
	// 8 concurrent callers at 20/s with burst 1: last permit should arrive
	// after roughly 7/20s, and nobody errors or deadlocks.
	l := NewLimiter(20, 1, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(ctx); err != nil {
				t.Errorf("Acquire() error = %v", err)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	if elapsed < 300*time.Millisecond {
		t.Errorf("8 concurrent acquires finished in %v, want >= ~350ms of pacing", elapsed)
	}
}

func TestNewLimiter_PanicsOnZeroRate(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewLimiter should panic with non-positive rate")
		}
	}()
	NewLimiter(0, 1, testLogger())
}
