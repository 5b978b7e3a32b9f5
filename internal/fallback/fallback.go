// Package fallback maps classified pipeline errors to ranked alternative
// recovery paths. Manual input is the universal last resort: it survives
// every capability filter and terminates every ranked list.
package fallback

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/mathlens/internal/faults"
)

// Option identifies one alternative recovery path.
type Option string

// Recovery options, ordered roughly from least to most user effort.
const (
	OptionRetryCapture  Option = "retry-capture"
	OptionFileUpload    Option = "file-upload"
	OptionSimplifiedOCR Option = "simplified-ocr"
	OptionManualInput   Option = "manual-input"
)

// Capabilities describes what the runtime environment can actually do.
// The resolver filters candidate options against it.
type Capabilities struct {
	Camera        bool `json:"camera"`
	FileRead      bool `json:"file_read"`
	ScreenCapture bool `json:"screen_capture"`
}

// Strategy is the derived recovery plan for one classified error.
type Strategy struct {
	TriggeringKind faults.Kind         `json:"triggering_kind"`
	RankedOptions  []Option            `json:"ranked_options"`
	Recommended    Option              `json:"recommended"`
	UserMessage    string              `json:"user_message"`
	Instructions   map[Option][]string `json:"instructions"`
}

// Outcome reports the result of executing a fallback option.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Action performs the side effect behind a fallback option.
type Action func(ctx context.Context) error

// Fixed step-by-step instructions per option, independent of execution outcome.
var instructions = map[Option][]string{
	OptionRetryCapture: {
		"Position the expression fully inside the frame",
		"Hold the camera steady and avoid shadows",
		"Capture the photo again",
	},
	OptionFileUpload: {
		"Save or export the photo as a PNG or JPEG file",
		"Choose the file from the upload dialog",
		"Wait for recognition to complete",
	},
	OptionSimplifiedOCR: {
		"Rewrite the expression in large print on plain paper",
		"Capture the rewritten expression",
	},
	OptionManualInput: {
		"Type the expression using digits, + - * /, and parentheses",
		"Press calculate",
	},
}

// Ranked candidates per coarsened failure category. Manual input is appended
// for any kind missing from this table.
var ranked = map[faults.Kind][]Option{
	faults.KindPermissionDenied:    {OptionFileUpload, OptionManualInput},
	faults.KindHardwareUnavailable: {OptionFileUpload, OptionManualInput},
	faults.KindPlatformUnsupported: {OptionFileUpload, OptionManualInput},
	faults.KindCaptureFailed:       {OptionRetryCapture, OptionFileUpload, OptionManualInput},
	faults.KindImageInvalid:        {OptionRetryCapture, OptionFileUpload, OptionManualInput},

	faults.KindLLMServiceError:   {OptionManualInput, OptionSimplifiedOCR},
	faults.KindTimeout:           {OptionManualInput, OptionSimplifiedOCR},
	faults.KindRateLimitExceeded: {OptionManualInput, OptionSimplifiedOCR},
	faults.KindNetworkError:      {OptionManualInput, OptionSimplifiedOCR},

	faults.KindParsingFailed:          {OptionRetryCapture, OptionManualInput},
	faults.KindValidationFailed:       {OptionRetryCapture, OptionManualInput},
	faults.KindInsufficientConfidence: {OptionRetryCapture, OptionManualInput},
}

var messages = map[faults.Kind]string{
	faults.KindPermissionDenied:       "Camera access was denied. You can upload a photo or type the expression instead.",
	faults.KindHardwareUnavailable:    "No camera was found. You can upload a photo or type the expression instead.",
	faults.KindPlatformUnsupported:    "Camera capture is not supported here. Upload a photo or type the expression.",
	faults.KindCaptureFailed:          "The photo could not be captured. Try again, or pick an alternative below.",
	faults.KindImageInvalid:           "The photo could not be used. Retake it, or pick an alternative below.",
	faults.KindLLMServiceError:        "The recognition service is unavailable. You can type the expression instead.",
	faults.KindTimeout:                "Recognition took too long. You can type the expression instead.",
	faults.KindRateLimitExceeded:      "The service is busy right now. You can type the expression instead.",
	faults.KindNetworkError:           "The service could not be reached. You can type the expression instead.",
	faults.KindParsingFailed:          "No calculable expression was recognized. Retake the photo or type it in.",
	faults.KindValidationFailed:       "The recognized expression is not calculable. Retake the photo or type it in.",
	faults.KindInsufficientConfidence: "The recognition was too uncertain to trust. Retake the photo or type it in.",
}

// Resolver derives and executes fallback strategies. Option side effects are
// registered by the host application; unregistered options execute as
// guidance-only successes.
type Resolver struct {
	logger  *slog.Logger
	actions map[Option]Action
}

// NewResolver creates a Resolver with no registered actions.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{
		logger:  logger.With("system", "fallback"),
		actions: make(map[Option]Action),
	}
}

// Register binds the side effect executed for an option.
func (r *Resolver) Register(option Option, action Action) {
	r.actions[option] = action
}

// GetFallbackStrategy returns the ranked recovery plan for a classified
// error. The first ranked option is the recommendation.
func (r *Resolver) GetFallbackStrategy(e *faults.Error) Strategy {
	options, ok := ranked[e.Kind]
	if !ok {
		options = []Option{OptionManualInput}
	}

	message, ok := messages[e.Kind]
	if !ok {
		message = "Something went wrong. You can type the expression instead."
	}

	steps := make(map[Option][]string, len(options))
	for _, opt := range options {
		steps[opt] = Instructions(opt)
	}

	return Strategy{
		TriggeringKind: e.Kind,
		RankedOptions:  options,
		Recommended:    options[0],
		UserMessage:    message,
		Instructions:   steps,
	}
}

// GetAvailableFallbacks filters the ranked options for an error by runtime
// capabilities. Manual input is always present, even when every other
// candidate is filtered out.
func (r *Resolver) GetAvailableFallbacks(e *faults.Error, caps Capabilities) []Option {
	strategy := r.GetFallbackStrategy(e)

	var available []Option
	for _, opt := range strategy.RankedOptions {
		if supported(opt, caps) {
			available = append(available, opt)
		}
	}

	if !containsOption(available, OptionManualInput) {
		available = append(available, OptionManualInput)
	}

	return available
}

// ExecuteFallback performs the option's registered side effect and returns
// the outcome with a user-facing message.
func (r *Resolver) ExecuteFallback(ctx context.Context, option Option) Outcome {
	if _, known := instructions[option]; !known {
		return Outcome{Message: fmt.Sprintf("Unknown recovery option %q", option)}
	}

	action, ok := r.actions[option]
	if !ok {
		return Outcome{
			Success: true,
			Message: fmt.Sprintf("Follow the steps for %s to continue", option),
		}
	}

	if err := action(ctx); err != nil {
		r.logger.Warn("fallback action failed", "option", option, "error", err)
		return Outcome{Message: fmt.Sprintf("The %s option failed: %v", option, err)}
	}

	r.logger.Info("fallback action completed", "option", option)
	return Outcome{Success: true, Message: fmt.Sprintf("Switched to %s", option)}
}

// Instructions returns the fixed step-by-step instructions for an option.
func Instructions(option Option) []string {
	return instructions[option]
}

func supported(option Option, caps Capabilities) bool {
	switch option {
	case OptionRetryCapture:
		return caps.Camera
	case OptionFileUpload:
		return caps.FileRead
	case OptionSimplifiedOCR:
		return caps.Camera || caps.FileRead
	default:
		return true
	}
}

func containsOption(options []Option, want Option) bool {
	for _, o := range options {
		if o == want {
			return true
		}
	}
	return false
}
