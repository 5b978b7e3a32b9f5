package resilience

import (
	"context"
	"time"
)

// Test hooks for deterministic clock, sleep, and jitter control.

func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.now = now
	return b
}

func (e *Executor) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Executor {
	e.sleep = fn
	return e
}

func (e *Executor) WithJitter(fn func() float64) *Executor {
	e.jitter = fn
	return e
}
