package util

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryStopsOnPermanent(t *testing.T) {
	attempts := 0
	sentinel := errors.New("bad symbol")

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		return Permanent(sentinel)
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("Retry error = %v, want %v", err, sentinel)
	}
	if attempts != 1 {
		t.Errorf("Retry called fn %d times, want 1", attempts)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return errors.New("transient error")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry error = %v, want context.Canceled", err)
	}
}

// fakeClock advances only when the limiter sleeps on it.
type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) after(d time.Duration) <-chan time.Time {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.t
	return ch
}

func TestRateLimiterBurstThenSpaced(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)}
	rl := newRateLimiter(60, 2, clock.now, clock.after)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d returned %v, want nil", i, err)
		}
	}
	if len(clock.slept) != 0 {
		t.Fatalf("burst Waits slept %v, want no sleep", clock.slept)
	}

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("third Wait returned %v, want nil", err)
	}
	if len(clock.slept) != 1 || clock.slept[0] != time.Second {
		t.Errorf("third Wait slept %v, want [1s]", clock.slept)
	}
}

func TestRateLimiterRefillCapsAtBurst(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)}
	rl := newRateLimiter(60, 1, clock.now, clock.after)
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned %v", err)
	}
	clock.t = clock.t.Add(time.Hour)
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned %v", err)
	}
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Wait returned %v", err)
	}
	if len(clock.slept) != 1 || clock.slept[0] != time.Second {
		t.Errorf("slept %v, want [1s] after an idle hour with burst 1", clock.slept)
	}
}

func TestRateLimiterRealClock(t *testing.T) {
	rl := NewRateLimiter(60000, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d returned %v, want nil", i, err)
		}
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait returned %v, want nil", err)
		}
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait error = %v, want context.DeadlineExceeded", err)
	}

	done, stop := context.WithCancel(context.Background())
	stop()
	if err := NewRateLimiter(1, 5).Wait(done); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestPickWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(1))

	earliest := now.AddDate(0, -6, -365)
	latest := now.AddDate(0, -6, 0)

	for i := 0; i < 500; i++ {
		start, end := PickWindow(now, rng)
		if start.Before(earliest.Truncate(24*time.Hour)) || start.After(latest) {
			t.Fatalf("start %s outside [%s, %s]", start, earliest, latest)
		}
		if got := end.Sub(start); got != WindowSpanDays*24*time.Hour {
			t.Fatalf("window span = %s, want %d days", got, WindowSpanDays)
		}
		if start.Hour() != 0 || start.Minute() != 0 {
			t.Fatalf("start %s not truncated to midnight", start)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn", "text")
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") {
		t.Errorf("expected text-format warn message, got %q", out)
	}

	buf.Reset()
	newLogger(&buf, "bogus", "json").Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}
