package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the circuit breaker state.
type State string

// Breaker states.
const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrCircuitOpen is returned without invoking the wrapped operation while
// the circuit is open or a half-open trial is already in flight.
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerConfig holds circuit breaker tuning for one guarded dependency.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultBreakerConfig returns the standard breaker tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// Snapshot is a point-in-time view of breaker state for observability.
type Snapshot struct {
	State           State     `json:"state"`
	FailureCount    int       `json:"failure_count"`
	LastFailureTime time.Time `json:"last_failure_time,omitzero"`
}

// Breaker guards one dependency: consecutive failures open the circuit,
// calls fail fast until the recovery timeout elapses, then a single trial
// call decides whether to close it again. Safe for concurrent use; shared
// process-wide and owned by the infrastructure layer.
type Breaker struct {
	name   string
	config BreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailure   time.Time
	trialInFlight bool
}

// NewBreaker creates a closed Breaker for the named dependency.
func NewBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultBreakerConfig().RecoveryTimeout
	}

	return &Breaker{
		name:   name,
		config: cfg,
		logger: logger.With("system", "breaker", "dependency", name),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Guard runs op through the breaker. While open it fails fast with
// ErrCircuitOpen; once the recovery timeout has elapsed exactly one trial
// call is admitted, whose outcome closes or reopens the circuit.
func Guard[T any](ctx context.Context, b *Breaker, op Operation[T]) (T, error) {
	var zero T

	if err := b.admit(); err != nil {
		return zero, err
	}

	result, err := op(ctx)
	b.record(err == nil)
	if err != nil {
		return zero, err
	}
	return result, nil
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.config.RecoveryTimeout {
			return fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
		b.logger.Info("circuit half-open, admitting trial call")
		return nil
	default: // half-open
		if b.trialInFlight {
			return fmt.Errorf("%w: %s trial in flight", ErrCircuitOpen, b.name)
		}
		b.trialInFlight = true
		return nil
	}
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false

	if success {
		if b.state != StateClosed {
			b.logger.Info("circuit closed after successful trial")
		}
		b.state = StateClosed
		b.failureCount = 0
		return
	}

	b.failureCount++
	b.lastFailure = b.now()

	if b.state == StateHalfOpen || b.failureCount >= b.config.FailureThreshold {
		if b.state != StateOpen {
			b.logger.Warn(
				"circuit opened",
				"failures", b.failureCount,
				"recovery_timeout", b.config.RecoveryTimeout,
			)
		}
		b.state = StateOpen
	}
}

// Snapshot returns the current breaker state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:           b.state,
		FailureCount:    b.failureCount,
		LastFailureTime: b.lastFailure,
	}
}

// Reset returns the breaker to closed with cleared counters. Called at
// shutdown so state never leaks across process lifecycles.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.lastFailure = time.Time{}
	b.trialInFlight = false
}
