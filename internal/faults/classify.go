package faults

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Classifier converts raw failures into typed Errors and tunes recovery
// strategies from observed outcomes. It is an explicit service owned by the
// process infrastructure: created at startup, shared by all pipeline runs,
// and safe for concurrent use.
type Classifier struct {
	logger *slog.Logger

	mu    sync.Mutex
	stats map[Kind]*kindStats
}

// NewClassifier creates a Classifier with empty outcome history.
func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{
		logger: logger.With("system", "faults"),
		stats:  make(map[Kind]*kindStats),
	}
}

// Override adjusts per-site fields on a classified error before it is
// surfaced. Zero values leave the kind defaults in place.
type Override struct {
	Recoverable     *bool
	Retryable       *bool
	SuggestedAction string
}

// New creates a classified error of the given kind with its fixed defaults.
func (c *Classifier) New(kind Kind, stage, message string, cause error) *Error {
	class, recoverable, retryable, action := Definition(kind)
	return &Error{
		Class:           class,
		Kind:            kind,
		Message:         message,
		Stage:           stage,
		Recoverable:     recoverable,
		Retryable:       retryable,
		SuggestedAction: action,
		Cause:           cause,
		Timestamp:       time.Now(),
	}
}

// NewWithOverride creates a classified error and applies call-site overrides.
func (c *Classifier) NewWithOverride(kind Kind, stage, message string, cause error, o Override) *Error {
	e := c.New(kind, stage, message, cause)
	if o.Recoverable != nil {
		e.Recoverable = *o.Recoverable
	}
	if o.Retryable != nil {
		e.Retryable = *o.Retryable
	}
	if o.SuggestedAction != "" {
		e.SuggestedAction = o.SuggestedAction
	}
	return e
}

// Inference message cues, checked in priority order against lowercased text.
var inferenceCues = []struct {
	kind     Kind
	override *Override
	patterns []string
}{
	{KindRateLimitExceeded, nil, []string{"429", "rate limit", "quota", "too many requests"}},
	{KindTimeout, nil, []string{"timeout", "timed out", "deadline exceeded"}},
	{KindLLMServiceError, &Override{Retryable: boolPtr(false), SuggestedAction: "Check the recognition service credentials"},
		[]string{"401", "403", "unauthorized", "forbidden", "api key", "authentication"}},
	{KindParsingFailed, nil, []string{"unmarshal", "malformed", "unexpected format", "invalid json"}},
}

// ClassifyInference maps an opaque inference-service failure into the
// taxonomy by scanning its message for authentication, quota, timeout, and
// format cues. Anything unmatched surfaces as llm-service-error.
func (c *Classifier) ClassifyInference(stage string, cause error) *Error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	lower := strings.ToLower(message)

	for _, cue := range inferenceCues {
		for _, p := range cue.patterns {
			if strings.Contains(lower, p) {
				if cue.override != nil {
					return c.NewWithOverride(cue.kind, stage, message, cause, *cue.override)
				}
				return c.New(cue.kind, stage, message, cause)
			}
		}
	}

	return c.New(KindLLMServiceError, stage, message, cause)
}

// Coerce guarantees a typed error: an existing *Error passes through with
// its stage filled in if empty; anything else becomes a generic
// processing-failed error tagged with the active stage.
func (c *Classifier) Coerce(err error, stage string) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		if typed.Stage == "" {
			clone := *typed
			clone.Stage = stage
			return &clone
		}
		return typed
	}

	return c.New(KindProcessingFailed, stage, err.Error(), err)
}

func boolPtr(b bool) *bool { return &b }
