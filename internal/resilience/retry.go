// Package resilience provides the retry executor and circuit breaker that
// guard calls to the vision inference dependency. Both are generic over the
// wrapped operation; failure classification stays with the caller.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

// Class selects the retry profile for an operation.
type Class string

// Operation classes with distinct retry profiles.
const (
	ClassInference Class = "inference"
	ClassUpload    Class = "upload"
	ClassGeneric   Class = "generic"
)

// RetryConfig holds the retry profile for one operation class.
type RetryConfig struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            float64
}

// DefaultRetryConfigs returns the per-class retry profiles.
func DefaultRetryConfigs() map[Class]RetryConfig {
	return map[Class]RetryConfig{
		ClassInference: {MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second, BackoffMultiplier: 2, Jitter: 0.3},
		ClassUpload:    {MaxAttempts: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second, BackoffMultiplier: 2, Jitter: 0.3},
		ClassGeneric:   {MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, BackoffMultiplier: 1.5, Jitter: 0.3},
	}
}

// ErrRetriesExhausted wraps the final failure after the attempt budget is spent.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Executor runs operations with class-specific retry and backoff policies.
type Executor struct {
	configs map[Class]RetryConfig
	logger  *slog.Logger

	// Injection points for deterministic tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64

	retryable func(error) bool
}

// NewExecutor creates an Executor. Missing classes fall back to the default
// profiles; a nil retryable predicate uses DefaultRetryable.
func NewExecutor(configs map[Class]RetryConfig, logger *slog.Logger) *Executor {
	merged := DefaultRetryConfigs()
	for class, cfg := range configs {
		merged[class] = cfg
	}

	return &Executor{
		configs:   merged,
		logger:    logger.With("system", "resilience"),
		sleep:     sleepContext,
		jitter:    rand.Float64,
		retryable: DefaultRetryable,
	}
}

// WithRetryable overrides the retryability predicate.
func (e *Executor) WithRetryable(fn func(error) bool) *Executor {
	e.retryable = fn
	return e
}

// Operation is a retryable unit of work returning a typed result.
type Operation[T any] func(ctx context.Context) (T, error)

// Execute runs op under the retry profile of its class. Attempts stop on
// success, on a non-retryable failure, on context cancellation, or when the
// attempt budget is exhausted; exhaustion is reported via ErrRetriesExhausted
// annotated with the operation name and attempt count.
func Execute[T any](ctx context.Context, e *Executor, class Class, name string, op Operation[T]) (T, error) {
	var zero T

	cfg, ok := e.configs[class]
	if !ok {
		cfg = DefaultRetryConfigs()[ClassGeneric]
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !e.retryable(err) {
			e.logger.Warn(
				"operation failed, not retryable",
				"operation", name,
				"attempt", attempt,
				"error", err,
			)
			return zero, err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := e.backoff(cfg, attempt)
		e.logger.Info(
			"operation failed, retrying",
			"operation", name,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		if err := e.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%s: %w after %d attempts: %w", name, ErrRetriesExhausted, cfg.MaxAttempts, lastErr)
}

// backoff computes the delay before the next attempt:
// min(base × multiplier^(attempt−1) × (1 + jitter×rand), maxDelay).
func (e *Executor) backoff(cfg RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay)
	for range attempt - 1 {
		delay *= cfg.BackoffMultiplier
	}
	delay *= 1 + cfg.Jitter*e.jitter()

	if capped := float64(cfg.MaxDelay); delay > capped {
		delay = capped
	}
	return time.Duration(delay)
}

var transientStatus = regexp.MustCompile(`\b(408|429|5\d\d)\b`)

var transientPatterns = []string{
	"connection reset",
	"connection refused",
	"temporarily unavailable",
	"service unavailable",
	"unexpected eof",
	"network",
	"timeout",
	"timed out",
	"deadline exceeded",
}

var permanentPatterns = []string{
	"unauthorized",
	"forbidden",
	"api key",
	"invalid request",
	"malformed",
	"bad request",
	"no_math_found",
	"no expression found",
}

// DefaultRetryable reports whether a failure is worth retrying: transient
// HTTP status codes (408/429/5xx) or transient text patterns qualify;
// authentication failures, malformed requests, the no-expression sentinel,
// an open circuit, and context cancellation abort immediately.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return false
	}

	message := strings.ToLower(err.Error())
	for _, p := range permanentPatterns {
		if strings.Contains(message, p) {
			return false
		}
	}

	if transientStatus.MatchString(message) {
		return true
	}
	for _, p := range transientPatterns {
		if strings.Contains(message, p) {
			return true
		}
	}

	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
