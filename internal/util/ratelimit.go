package util

import (
	"context"
	"math"
	"sync"
	"time"
)

// RateLimiter spaces upstream price-window fetches with a token bucket.
// Tokens refill continuously at perMinute/60 per second up to burst; an
// empty bucket sleeps exactly until the next token is due.
type RateLimiter struct {
	mu     sync.Mutex
	rate   float64 // tokens per second; <= 0 disables limiting
	burst  float64
	tokens float64
	last   time.Time

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewRateLimiter creates a RateLimiter allowing perMinute fetches per minute
// with up to burst fetches back to back. The bucket starts full. A
// non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return newRateLimiter(perMinute, burst, time.Now, time.After)
}

func newRateLimiter(perMinute, burst int, now func() time.Time, after func(time.Duration) <-chan time.Time) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:   float64(perMinute) / 60.0,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   now(),
		now:    now,
		after:  after,
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rl.rate <= 0 {
		return nil
	}
	for {
		delay := rl.reserve()
		if delay == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rl.after(delay):
		}
	}
}

// reserve takes a token when one is available and returns 0, otherwise it
// returns how long until the next one accrues.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.tokens = math.Min(rl.burst, rl.tokens+now.Sub(rl.last).Seconds()*rl.rate)
	rl.last = now

	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	return time.Duration(math.Ceil((1 - rl.tokens) / rl.rate * float64(time.Second)))
}
