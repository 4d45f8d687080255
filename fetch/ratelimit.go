package fetch

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket bounding outbound request frequency.
// Capacity equals the configured requests per minute and the bucket
// refills continuously at capacity/60 tokens per second. The bucket
// starts with a single token so a fresh limiter enforces the configured
// spacing from the second request on instead of letting the whole
// minute's budget burst at once.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // tokens per second
	burst  float64
	tokens float64
	last   time.Time
}

// NewLimiter builds a limiter for the given requests-per-minute ceiling.
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Limiter{
		rate:   float64(perMinute) / 60.0,
		burst:  float64(perMinute),
		tokens: 1,
		last:   time.Now(),
	}
}

// Acquire blocks until one token is available, then debits it.
// Token accounting happens under the lock, so concurrent callers can
// never spend the same refilled token; the sleep happens outside the
// lock so waiters do not serialize behind each other's naps.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refillLocked()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	if elapsed > 0 {
		l.tokens += elapsed * l.rate
		if l.tokens > l.burst {
			l.tokens = l.burst
		}
		l.last = now
	}
}
