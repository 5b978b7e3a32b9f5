package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JaimeStill/mathlens/internal/resilience"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newBreaker(clock *fakeClock) *resilience.Breaker {
	b := resilience.NewBreaker("inference", resilience.DefaultBreakerConfig(), discard())
	return b.WithClock(clock.Now)
}

func failingOp(calls *int) resilience.Operation[string] {
	return func(ctx context.Context) (string, error) {
		*calls++
		return "", errors.New("503 service unavailable")
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newBreaker(clock)

	calls := 0
	for range 5 {
		if _, err := resilience.Guard(context.Background(), b, failingOp(&calls)); err == nil {
			t.Fatal("Guard succeeded, want failure")
		}
	}

	snap := b.Snapshot()
	if snap.State != resilience.StateOpen {
		t.Fatalf("State = %q, want open", snap.State)
	}
	if snap.FailureCount != 5 {
		t.Errorf("FailureCount = %d, want 5", snap.FailureCount)
	}

	// Within the recovery window the wrapped operation must not run.
	_, err := resilience.Guard(context.Background(), b, failingOp(&calls))
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5 (fail-fast must not invoke op)", calls)
	}
}

func TestBreakerHalfOpenTrial(t *testing.T) {
	t.Run("failed trial reopens", func(t *testing.T) {
		clock := &fakeClock{now: time.Now()}
		b := newBreaker(clock)

		calls := 0
		for range 5 {
			_, _ = resilience.Guard(context.Background(), b, failingOp(&calls))
		}

		clock.Advance(61 * time.Second)

		_, err := resilience.Guard(context.Background(), b, failingOp(&calls))
		if errors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatal("trial call was rejected, want admission after recovery timeout")
		}
		if calls != 6 {
			t.Errorf("calls = %d, want 6 (exactly one trial)", calls)
		}
		if snap := b.Snapshot(); snap.State != resilience.StateOpen {
			t.Errorf("State = %q, want open after failed trial", snap.State)
		}

		// Reopened circuit fails fast again.
		_, err = resilience.Guard(context.Background(), b, failingOp(&calls))
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			t.Errorf("error = %v, want ErrCircuitOpen", err)
		}
		if calls != 6 {
			t.Errorf("calls = %d, want 6", calls)
		}
	})

	t.Run("successful trial closes", func(t *testing.T) {
		clock := &fakeClock{now: time.Now()}
		b := newBreaker(clock)

		calls := 0
		for range 5 {
			_, _ = resilience.Guard(context.Background(), b, failingOp(&calls))
		}

		clock.Advance(61 * time.Second)

		result, err := resilience.Guard(context.Background(), b,
			func(ctx context.Context) (string, error) {
				return "2 + 2", nil
			})
		if err != nil {
			t.Fatalf("Guard error: %v", err)
		}
		if result != "2 + 2" {
			t.Errorf("result = %q, want %q", result, "2 + 2")
		}

		snap := b.Snapshot()
		if snap.State != resilience.StateClosed {
			t.Errorf("State = %q, want closed", snap.State)
		}
		if snap.FailureCount != 0 {
			t.Errorf("FailureCount = %d, want 0", snap.FailureCount)
		}
	})
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newBreaker(clock)

	calls := 0
	for range 4 {
		_, _ = resilience.Guard(context.Background(), b, failingOp(&calls))
	}

	_, err := resilience.Guard(context.Background(), b,
		func(ctx context.Context) (string, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("Guard error: %v", err)
	}

	snap := b.Snapshot()
	if snap.State != resilience.StateClosed {
		t.Errorf("State = %q, want closed", snap.State)
	}
	if snap.FailureCount != 0 {
		t.Errorf("FailureCount = %d, want 0", snap.FailureCount)
	}
}

func TestBreakerReset(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	b := newBreaker(clock)

	calls := 0
	for range 5 {
		_, _ = resilience.Guard(context.Background(), b, failingOp(&calls))
	}

	b.Reset()

	snap := b.Snapshot()
	if snap.State != resilience.StateClosed {
		t.Errorf("State = %q, want closed after Reset", snap.State)
	}

	if _, err := resilience.Guard(context.Background(), b,
		func(ctx context.Context) (string, error) { return "ok", nil }); err != nil {
		t.Errorf("Guard error after Reset: %v", err)
	}
}
