// Package faults defines the closed error taxonomy for the capture and
// processing pipeline, and the classifier service that maps raw failures
// into it. Every failure path in the pipeline terminates in exactly one
// typed *Error; nothing unclassified escapes to callers.
package faults

import (
	"fmt"
	"time"
)

// Class distinguishes the two halves of the taxonomy.
type Class string

// Error classes.
const (
	ClassCamera     Class = "camera"
	ClassProcessing Class = "processing"
)

// Kind identifies a failure within a closed set. Camera kinds cover frame
// acquisition; processing kinds cover the recognition pipeline.
// KindProcessingFailed appears in both sets as the generic terminal kind.
type Kind string

// Camera kinds.
const (
	KindPermissionDenied    Kind = "permission-denied"
	KindHardwareUnavailable Kind = "hardware-unavailable"
	KindPlatformUnsupported Kind = "platform-unsupported"
	KindCaptureFailed       Kind = "capture-failed"
	KindNetworkError        Kind = "network-error"
	KindConfigurationError  Kind = "configuration-error"
)

// Processing kinds.
const (
	KindImageInvalid           Kind = "image-invalid"
	KindLLMServiceError        Kind = "llm-service-error"
	KindParsingFailed          Kind = "parsing-failed"
	KindValidationFailed       Kind = "validation-failed"
	KindTimeout                Kind = "timeout"
	KindRateLimitExceeded      Kind = "rate-limit-exceeded"
	KindInsufficientConfidence Kind = "insufficient-confidence"
	KindProcessingFailed       Kind = "processing-failed"
)

// Error is a classified pipeline failure. Instances are created once by the
// Classifier and never mutated afterward.
type Error struct {
	Class           Class     `json:"class"`
	Kind            Kind      `json:"kind"`
	Message         string    `json:"message"`
	Stage           string    `json:"stage,omitempty"`
	Recoverable     bool      `json:"recoverable"`
	Retryable       bool      `json:"retryable"`
	SuggestedAction string    `json:"suggested_action"`
	Cause           error     `json:"-"`
	Timestamp       time.Time `json:"timestamp"`
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// definition fixes the per-kind defaults: class membership, recoverability,
// retryability, and the default user-facing action.
type definition struct {
	class       Class
	recoverable bool
	retryable   bool
	action      string
}

var definitions = map[Kind]definition{
	KindPermissionDenied:    {ClassCamera, true, false, "Grant camera permission in system settings, or upload an image file instead"},
	KindHardwareUnavailable: {ClassCamera, true, false, "Connect a camera, or upload an image file instead"},
	KindPlatformUnsupported: {ClassCamera, false, false, "Camera capture is not supported here; enter the expression manually"},
	KindCaptureFailed:       {ClassCamera, true, true, "Hold the camera steady and capture again"},
	KindNetworkError:        {ClassCamera, true, true, "Check your network connection and try again"},
	KindConfigurationError:  {ClassCamera, false, false, "Review the service configuration"},

	KindImageInvalid:           {ClassProcessing, true, false, "Retake the photo with the full expression in frame"},
	KindLLMServiceError:        {ClassProcessing, true, true, "The recognition service is unavailable; try again shortly"},
	KindParsingFailed:          {ClassProcessing, true, false, "Retake the photo, or enter the expression manually"},
	KindValidationFailed:       {ClassProcessing, true, false, "The recognized expression is not calculable; enter it manually"},
	KindTimeout:                {ClassProcessing, true, true, "The request timed out; try again"},
	KindRateLimitExceeded:      {ClassProcessing, true, true, "Too many requests; wait a moment before retrying"},
	KindInsufficientConfidence: {ClassProcessing, true, true, "Retake the photo with better lighting and focus"},
	KindProcessingFailed:       {ClassProcessing, true, true, "Something went wrong; try again"},
}

// Definition returns the fixed defaults for a kind. Unknown kinds resolve to
// the generic processing-failed defaults so the taxonomy stays total.
func Definition(kind Kind) (Class, bool, bool, string) {
	def, ok := definitions[kind]
	if !ok {
		def = definitions[KindProcessingFailed]
	}
	return def.class, def.recoverable, def.retryable, def.action
}
