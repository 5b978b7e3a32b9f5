package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/mathlens/internal/expression"
	"github.com/JaimeStill/mathlens/internal/faults"
	"github.com/JaimeStill/mathlens/internal/imaging"
	"github.com/JaimeStill/mathlens/internal/resilience"
	"github.com/JaimeStill/mathlens/internal/vision"
)

// State bag keys shared across pipeline nodes.
const (
	KeyImage          = "image"
	KeySource         = "source"
	KeyProcessed      = "processed"
	KeyAnalysis       = "analysis"
	KeyParsed         = "parsed"
	KeyFailedAttempts = "failed_attempts"
	KeyResult         = "result"
)

// run carries the per-capture execution context: the shared runtime, the
// capture's tracker, and the orchestrator options in force.
type run struct {
	rt      *Runtime
	opts    Options
	tracker *tracker
}

// PreprocessNode returns a state node that validates the captured image and
// normalizes it into a data URI for inference.
func PreprocessNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		r.tracker.advance(StagePreprocessing, progressPreprocessing, "validating image")

		image, err := extractImage(s)
		if err != nil {
			return s, r.rt.Classifier.New(faults.KindImageInvalid, string(StagePreprocessing), err.Error(), err)
		}

		processed, err := r.rt.Preprocessor.Process(ctx, image)
		if err != nil {
			return s, r.rt.Classifier.New(faults.KindImageInvalid, string(StagePreprocessing), err.Error(), err)
		}

		r.rt.Logger.InfoContext(
			ctx, "preprocess node complete",
			"source_format", processed.SourceFormat,
			"processed_bytes", processed.ProcessedBytes,
		)

		s = s.Set(KeyProcessed, processed)
		return s, nil
	})
}

// InferNode returns a state node that runs vision inference through the
// retry executor and circuit breaker, with a per-call timeout.
func InferNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		r.tracker.advance(StageProcessing, progressProcessing, "recognizing expression")

		processed, err := extractProcessed(s)
		if err != nil {
			return s, r.rt.Classifier.New(faults.KindProcessingFailed, string(StageProcessing), err.Error(), err)
		}

		var failed atomic.Int64
		analysis, err := resilience.Execute(ctx, r.rt.Executor, resilience.ClassInference, "analyze-image",
			func(ctx context.Context) (*vision.Analysis, error) {
				callCtx, cancel := context.WithTimeout(ctx, r.opts.InferenceTimeout)
				defer cancel()

				a, err := resilience.Guard(callCtx, r.rt.Breaker,
					func(ctx context.Context) (*vision.Analysis, error) {
						return r.rt.Engine.Analyze(ctx, processed.DataURI)
					})
				if err != nil {
					n := failed.Add(1)
					r.tracker.retries(int(n))
					r.tracker.advance(StageProcessing, inferProgress(int(n)), "retrying recognition")
				}
				return a, err
			})

		s = s.Set(KeyFailedAttempts, int(failed.Load()))

		if err != nil {
			return s, classifyInferFailure(r, err)
		}

		r.rt.Logger.InfoContext(
			ctx, "infer node complete",
			"confidence", analysis.Confidence,
			"failed_attempts", failed.Load(),
		)

		s = s.Set(KeyAnalysis, analysis)
		return s, nil
	})
}

// ParseNode returns a state node that turns the recognized text into a
// structured expression. Empty or syntactically invalid recognitions fail
// here as parsing faults.
func ParseNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		r.tracker.advance(StageParsing, progressParsing, "parsing expression")

		analysis, err := extractAnalysis(s)
		if err != nil {
			return s, r.rt.Classifier.New(faults.KindProcessingFailed, string(StageParsing), err.Error(), err)
		}

		if strings.TrimSpace(analysis.Expression) == "" ||
			strings.EqualFold(strings.TrimSpace(analysis.Expression), expression.NoExpressionSentinel) {
			return s, r.rt.Classifier.New(
				faults.KindParsingFailed,
				string(StageParsing),
				"no math expression found in image",
				nil,
			)
		}

		parsed := expression.Parse(analysis.Expression)
		if !parsed.IsValid {
			return s, r.rt.Classifier.NewWithOverride(
				faults.KindParsingFailed,
				string(StageParsing),
				fmt.Sprintf("recognized expression is not calculable: %s", parsed.Err),
				nil,
				faults.Override{SuggestedAction: suggestionAction(analysis.Expression)},
			)
		}

		r.rt.Logger.InfoContext(
			ctx, "parse node complete",
			"normalized", parsed.Normalized,
			"valid", parsed.IsValid,
		)

		s = s.Set(KeyParsed, parsed)
		return s, nil
	})
}

// ValidateNode returns a state node that applies the confidence policy,
// evaluates the parsed expression, and assembles the Result.
func ValidateNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		r.tracker.advance(StageValidating, progressValidating, "validating expression")

		analysis, err := extractAnalysis(s)
		if err != nil {
			return s, r.rt.Classifier.New(faults.KindProcessingFailed, string(StageValidating), err.Error(), err)
		}

		parsed, err := extractParsed(s)
		if err != nil {
			return s, r.rt.Classifier.New(faults.KindProcessingFailed, string(StageValidating), err.Error(), err)
		}

		if analysis.Confidence < r.opts.ConfidenceReject {
			return s, r.rt.Classifier.New(
				faults.KindInsufficientConfidence,
				string(StageValidating),
				fmt.Sprintf("recognition confidence %.2f is below the %.2f threshold",
					analysis.Confidence, r.opts.ConfidenceReject),
				nil,
			)
		}

		value, evalErr := expression.Evaluate(parsed.Normalized)
		if evalErr != nil {
			return s, r.rt.Classifier.New(
				faults.KindValidationFailed,
				string(StageValidating),
				evalErr.Error(),
				evalErr,
			)
		}

		result := &Result{
			Expression: parsed.Normalized,
			Confidence: analysis.Confidence,
			Value:      value,
			Complexity: parsed.Complexity,
			RetryCount: extractFailedAttempts(s),
		}

		if r.opts.SurfaceWarnings && analysis.Confidence < r.opts.ConfidenceWarn {
			result.Warning = fmt.Sprintf(
				"Recognition confidence was %.0f%%; verify the expression before trusting the result",
				analysis.Confidence*100,
			)
		}

		r.rt.Logger.InfoContext(
			ctx, "validate node complete",
			"expression", result.Expression,
			"value", result.Value,
			"warning", result.Warning != "",
		)

		s = s.Set(KeyResult, result)
		return s, nil
	})
}

func classifyInferFailure(r *run, err error) *faults.Error {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		retryable := false
		return r.rt.Classifier.NewWithOverride(
			faults.KindLLMServiceError,
			string(StageProcessing),
			"recognition service suspended after repeated failures",
			err,
			faults.Override{
				Retryable:       &retryable,
				SuggestedAction: "Wait a minute before trying again, or enter the expression manually",
			},
		)
	}
	return r.rt.Classifier.ClassifyInference(string(StageProcessing), err)
}

// inferProgress advances the processing checkpoint fractionally per failed
// attempt without crossing into the parsing checkpoint.
func inferProgress(failedAttempts int) float64 {
	p := progressProcessing + 0.1*float64(failedAttempts)
	if p > 0.7 {
		p = 0.7
	}
	return p
}

func suggestionAction(raw string) string {
	suggestions := expression.Suggestions(raw)
	if len(suggestions) == 0 {
		return ""
	}
	return strings.Join(suggestions, "; ")
}

func extractImage(s state.State) ([]byte, error) {
	val, ok := s.Get(KeyImage)
	if !ok {
		return nil, fmt.Errorf("missing %s in state", KeyImage)
	}

	image, ok := val.([]byte)
	if !ok {
		return nil, fmt.Errorf("%s is not []byte", KeyImage)
	}

	return image, nil
}

func extractProcessed(s state.State) (*imaging.Processed, error) {
	val, ok := s.Get(KeyProcessed)
	if !ok {
		return nil, fmt.Errorf("missing %s in state", KeyProcessed)
	}

	processed, ok := val.(*imaging.Processed)
	if !ok {
		return nil, fmt.Errorf("%s is not *imaging.Processed", KeyProcessed)
	}

	return processed, nil
}

func extractAnalysis(s state.State) (*vision.Analysis, error) {
	val, ok := s.Get(KeyAnalysis)
	if !ok {
		return nil, fmt.Errorf("missing %s in state", KeyAnalysis)
	}

	analysis, ok := val.(*vision.Analysis)
	if !ok {
		return nil, fmt.Errorf("%s is not *vision.Analysis", KeyAnalysis)
	}

	return analysis, nil
}

func extractParsed(s state.State) (*expression.Parsed, error) {
	val, ok := s.Get(KeyParsed)
	if !ok {
		return nil, fmt.Errorf("missing %s in state", KeyParsed)
	}

	parsed, ok := val.(*expression.Parsed)
	if !ok {
		return nil, fmt.Errorf("%s is not *expression.Parsed", KeyParsed)
	}

	return parsed, nil
}

func extractFailedAttempts(s state.State) int {
	val, ok := s.Get(KeyFailedAttempts)
	if !ok {
		return 0
	}

	attempts, ok := val.(int)
	if !ok {
		return 0
	}

	return attempts
}
