package fetch

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiterEnforcesSpacing(t *testing.T) {
	// 600 requests/minute refills ten tokens per second, so four
	// sequential acquires from a fresh limiter need three refills:
	// at least (4-1)*60/600 = 300ms.
	limiter := NewLimiter(600)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// Allow a small scheduling slack below the theoretical floor.
	if elapsed < 280*time.Millisecond {
		t.Fatalf("4 acquires took %v, want at least ~300ms", elapsed)
	}
}

func TestLimiterConcurrentCallersShareTokens(t *testing.T) {
	limiter := NewLimiter(600)
	ctx := context.Background()

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(ctx); err != nil {
				t.Errorf("acquire: %v", err)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	// Four callers can never finish faster than the refill rate allows,
	// no matter how they interleave.
	if elapsed < 280*time.Millisecond {
		t.Fatalf("4 concurrent acquires took %v, want at least ~300ms", elapsed)
	}
}

func TestLimiterAcquireHonoursCancellation(t *testing.T) {
	// One request/minute makes the second acquire wait ~60s, so only
	// cancellation can release it quickly.
	limiter := NewLimiter(1)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := limiter.Acquire(ctx)
	if err == nil {
		t.Fatalf("expected context error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancelled acquire took %v", elapsed)
	}
}
