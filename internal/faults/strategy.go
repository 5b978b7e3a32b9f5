package faults

import "time"

// RecoveryStrategy describes how the caller should respond to a classified
// error: whether to retry automatically, how often, after what delay, which
// fallback paths to offer, and what to tell the user.
type RecoveryStrategy struct {
	AutoRetry       bool          `json:"auto_retry"`
	MaxRetries      int           `json:"max_retries"`
	RetryDelay      time.Duration `json:"retry_delay"`
	FallbackOptions []string      `json:"fallback_options"`
	UserActions     []string      `json:"user_actions"`
}

// Strategy success-rate thresholds. Below the low watermark the classifier
// stops recommending automatic retries; above the high watermark it grants
// one extra attempt.
const (
	lowSuccessRate  = 0.3
	highSuccessRate = 0.8
)

var baseStrategies = map[Kind]RecoveryStrategy{
	KindRateLimitExceeded: {
		AutoRetry:       true,
		MaxRetries:      1,
		RetryDelay:      30 * time.Second,
		FallbackOptions: []string{"manual-input"},
		UserActions:     []string{"Wait for the rate limit to clear"},
	},
	KindCaptureFailed: {
		AutoRetry:       true,
		MaxRetries:      2,
		RetryDelay:      time.Second,
		FallbackOptions: []string{"manual-input"},
		UserActions:     []string{"Hold the camera steady", "Improve the lighting"},
	},
	KindLLMServiceError: {
		AutoRetry:       true,
		MaxRetries:      2,
		RetryDelay:      2 * time.Second,
		FallbackOptions: []string{"manual-input", "simplified-ocr"},
		UserActions:     []string{"Try again shortly"},
	},
	KindTimeout: {
		AutoRetry:       true,
		MaxRetries:      2,
		RetryDelay:      5 * time.Second,
		FallbackOptions: []string{"manual-input"},
		UserActions:     []string{"Check your connection speed"},
	},
	KindNetworkError: {
		AutoRetry:       true,
		MaxRetries:      3,
		RetryDelay:      2 * time.Second,
		FallbackOptions: []string{"manual-input"},
		UserActions:     []string{"Check your network connection"},
	},
	KindInsufficientConfidence: {
		AutoRetry:       false,
		MaxRetries:      1,
		RetryDelay:      0,
		FallbackOptions: []string{"manual-input"},
		UserActions:     []string{"Retake the photo with better lighting and focus"},
	},
	KindProcessingFailed: {
		AutoRetry:       true,
		MaxRetries:      1,
		RetryDelay:      time.Second,
		FallbackOptions: []string{"manual-input"},
		UserActions:     []string{"Try again"},
	},
}

// CreateRecoveryStrategy produces the tuned recovery strategy for an error.
// The per-kind base strategy is adjusted by the rolling success rate: below
// 0.3 automatic retries are disabled and the budget shrinks by one; above
// 0.8 the budget grows by one.
func (c *Classifier) CreateRecoveryStrategy(e *Error) RecoveryStrategy {
	s, ok := baseStrategies[e.Kind]
	if !ok {
		s = RecoveryStrategy{
			FallbackOptions: []string{"manual-input"},
			UserActions:     []string{e.SuggestedAction},
		}
	}

	if !e.Retryable {
		s.AutoRetry = false
		s.MaxRetries = 0
	}

	rate := c.SuccessRate(e.Kind)
	switch {
	case rate < lowSuccessRate:
		s.AutoRetry = false
		s.MaxRetries = max(s.MaxRetries-1, 0)
	case rate > highSuccessRate:
		s.MaxRetries++
	}

	return s
}

// ShouldAutoRetry reports whether the caller should re-run the pipeline for
// this error given how many retries it has already spent.
func (c *Classifier) ShouldAutoRetry(e *Error, retryCount int) bool {
	if e == nil || !e.Retryable {
		return false
	}
	s := c.CreateRecoveryStrategy(e)
	return s.AutoRetry && retryCount < s.MaxRetries
}
