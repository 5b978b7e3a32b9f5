// Package pipeline orchestrates a photographed math expression through
// preprocessing, vision inference, parsing, and validation, producing either
// a calculable result or a classified error with recovery options.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/mathlens/internal/expression"
	"github.com/JaimeStill/mathlens/internal/fallback"
	"github.com/JaimeStill/mathlens/internal/faults"
)

// Capture sources.
const (
	SourceCamera     = "camera"
	SourceFileUpload = "file-upload"
	SourceManual     = "manual"
)

// Options tune the confidence policy and inference deadline.
type Options struct {
	ConfidenceReject float64
	ConfidenceWarn   float64
	SurfaceWarnings  bool
	InferenceTimeout time.Duration
}

// DefaultOptions returns the standard pipeline policy: reject below 0.3,
// warn below 0.6, 30 second inference deadline.
func DefaultOptions() Options {
	return Options{
		ConfidenceReject: 0.3,
		ConfidenceWarn:   0.6,
		SurfaceWarnings:  true,
		InferenceTimeout: 30 * time.Second,
	}
}

// ProcessRequest is one captured image submitted for recognition.
type ProcessRequest struct {
	Image  []byte
	Source string
}

// Result is a completed capture: the validated expression and its computed
// value, plus recognition metadata.
type Result struct {
	ID             uuid.UUID             `json:"id"`
	Expression     string                `json:"expression"`
	Confidence     float64               `json:"confidence"`
	Value          float64               `json:"value"`
	Complexity     expression.Complexity `json:"complexity"`
	ProcessingTime time.Duration         `json:"processing_time"`
	RetryCount     int                   `json:"retry_count"`
	Source         string                `json:"source"`
	Warning        string                `json:"warning,omitempty"`
	CompletedAt    time.Time             `json:"completed_at"`
}

// BatchItem pairs one batch entry with its outcome.
type BatchItem struct {
	Index  int           `json:"index"`
	Result *Result       `json:"result,omitempty"`
	Error  *faults.Error `json:"error,omitempty"`
}

// System is the public contract of the capture pipeline.
type System interface {
	Process(ctx context.Context, req ProcessRequest) (*Result, *faults.Error)
	ProcessManual(ctx context.Context, raw string) (*Result, *faults.Error)
	ProcessBatch(ctx context.Context, reqs []ProcessRequest) []BatchItem
	State() ProcessingState
	Cancel()
	RecoveryStrategy(e *faults.Error) faults.RecoveryStrategy
	RetrySuggestions(e *faults.Error) []string
	ShouldAutoRetry(e *faults.Error, retryCount int) bool
	FallbackStrategy(e *faults.Error) fallback.Strategy
	AvailableFallbacks(e *faults.Error, caps fallback.Capabilities) []fallback.Option
	ExecuteFallback(ctx context.Context, option fallback.Option) fallback.Outcome
}

type system struct {
	rt   *Runtime
	opts Options

	tracker *tracker

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
}

// New creates the pipeline system. Zero option fields fall back to defaults.
func New(rt *Runtime, opts Options) System {
	def := DefaultOptions()
	if opts.ConfidenceReject <= 0 {
		opts.ConfidenceReject = def.ConfidenceReject
	}
	if opts.ConfidenceWarn <= 0 {
		opts.ConfidenceWarn = def.ConfidenceWarn
	}
	if opts.InferenceTimeout <= 0 {
		opts.InferenceTimeout = def.InferenceTimeout
	}

	return &system{
		rt:      rt,
		opts:    opts,
		tracker: newTracker(),
	}
}

// Process runs one capture through the full pipeline. Only one tracked
// capture runs at a time; batch processing goes through ProcessBatch.
func (s *system) Process(ctx context.Context, req ProcessRequest) (*Result, *faults.Error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil, s.rt.Classifier.New(
			faults.KindProcessingFailed,
			string(StageCapturing),
			"another capture is already processing",
			nil,
		)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.active = true
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active = false
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	started := time.Now()
	s.tracker.begin()

	result, err := s.execute(runCtx, req, s.tracker)
	if err != nil {
		e := s.rt.Classifier.Coerce(err, string(StageProcessing))

		// Cancellation is not a pipeline failure: the state returns to
		// idle, nothing is recorded against the error statistics, and the
		// fault is never retryable.
		if runCtx.Err() != nil && ctx.Err() == nil {
			stage := s.tracker.snapshot().Stage
			s.tracker.reset()
			retryable := false
			return nil, s.rt.Classifier.NewWithOverride(
				faults.KindCaptureFailed,
				string(stage),
				"capture cancelled",
				runCtx.Err(),
				faults.Override{Retryable: &retryable},
			)
		}

		s.tracker.fail(e)
		s.rt.Classifier.RecordOutcome(e.Kind, false)
		s.rt.Logger.WarnContext(ctx, "capture failed", "kind", e.Kind, "stage", e.Stage)
		return nil, e
	}

	result.ID = uuid.New()
	result.Source = req.Source
	result.ProcessingTime = time.Since(started)
	result.CompletedAt = time.Now()

	s.tracker.complete()
	if result.RetryCount > 0 {
		s.rt.Classifier.RecordOutcome(faults.KindLLMServiceError, true)
	}

	s.record(ctx, result, req.Image)

	s.rt.Logger.InfoContext(
		ctx, "capture complete",
		"id", result.ID,
		"expression", result.Expression,
		"value", result.Value,
		"duration", result.ProcessingTime,
	)

	return result, nil
}

// ProcessManual evaluates a typed expression directly, skipping capture and
// inference. It backs the manual-input fallback.
func (s *system) ProcessManual(ctx context.Context, raw string) (*Result, *faults.Error) {
	started := time.Now()

	parsed := expression.Parse(raw)
	if !parsed.IsValid {
		return nil, s.rt.Classifier.NewWithOverride(
			faults.KindValidationFailed,
			string(StageValidating),
			fmt.Sprintf("expression is not calculable: %s", parsed.Err),
			nil,
			faults.Override{SuggestedAction: suggestionAction(raw)},
		)
	}

	value, err := expression.Evaluate(parsed.Normalized)
	if err != nil {
		return nil, s.rt.Classifier.New(faults.KindValidationFailed, string(StageValidating), err.Error(), err)
	}

	result := &Result{
		ID:             uuid.New(),
		Expression:     parsed.Normalized,
		Confidence:     1.0,
		Value:          value,
		Complexity:     parsed.Complexity,
		ProcessingTime: time.Since(started),
		Source:         SourceManual,
		CompletedAt:    time.Now(),
	}

	s.record(ctx, result, nil)

	return result, nil
}

// ProcessBatch runs independent captures concurrently, bounded by CPU count.
// Each entry gets its own tracker so batch items never disturb the
// observable single-capture state.
func (s *system) ProcessBatch(ctx context.Context, reqs []ProcessRequest) []BatchItem {
	items := make([]BatchItem, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(len(reqs)))

	for i, req := range reqs {
		items[i].Index = i

		g.Go(func() error {
			if gctx.Err() != nil {
				items[i].Error = s.rt.Classifier.Coerce(gctx.Err(), string(StageProcessing))
				return nil
			}

			result, err := s.execute(gctx, req, newTracker())
			if err != nil {
				e := s.rt.Classifier.Coerce(err, string(StageProcessing))
				s.rt.Classifier.RecordOutcome(e.Kind, false)
				items[i].Error = e
				return nil
			}

			result.ID = uuid.New()
			result.Source = req.Source
			result.CompletedAt = time.Now()

			s.record(ctx, result, req.Image)
			items[i].Result = result
			return nil
		})
	}

	_ = g.Wait()
	return items
}

// State returns a snapshot of the active capture.
func (s *system) State() ProcessingState {
	return s.tracker.snapshot()
}

// Cancel aborts the active capture, if any, and returns the observable state
// to idle.
func (s *system) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.tracker.reset()
}

// RecoveryStrategy derives the adaptive retry plan for a classified error.
func (s *system) RecoveryStrategy(e *faults.Error) faults.RecoveryStrategy {
	return s.rt.Classifier.CreateRecoveryStrategy(e)
}

// RetrySuggestions lists the user-facing steps worth taking before
// resubmitting after a failure: the strategy's user actions, plus any
// expression correction hints carried on parse and validation faults.
func (s *system) RetrySuggestions(e *faults.Error) []string {
	if e == nil {
		return nil
	}

	strategy := s.rt.Classifier.CreateRecoveryStrategy(e)

	// Expression faults carry correction hints joined into SuggestedAction;
	// split those back out rather than echoing the joined string.
	suggestions := make([]string, 0, len(strategy.UserActions))
	for _, action := range strategy.UserActions {
		if action == "" {
			continue
		}
		for _, hint := range strings.Split(action, "; ") {
			if hint != "" && !slices.Contains(suggestions, hint) {
				suggestions = append(suggestions, hint)
			}
		}
	}

	return suggestions
}

// ShouldAutoRetry reports whether an automatic retry is still warranted.
func (s *system) ShouldAutoRetry(e *faults.Error, retryCount int) bool {
	return s.rt.Classifier.ShouldAutoRetry(e, retryCount)
}

// FallbackStrategy returns the ranked alternative recovery paths for an error.
func (s *system) FallbackStrategy(e *faults.Error) fallback.Strategy {
	return s.rt.Resolver.GetFallbackStrategy(e)
}

// AvailableFallbacks filters the ranked options by runtime capabilities.
func (s *system) AvailableFallbacks(e *faults.Error, caps fallback.Capabilities) []fallback.Option {
	return s.rt.Resolver.GetAvailableFallbacks(e, caps)
}

// ExecuteFallback performs a fallback option's registered side effect.
func (s *system) ExecuteFallback(ctx context.Context, option fallback.Option) fallback.Outcome {
	return s.rt.Resolver.ExecuteFallback(ctx, option)
}

// execute builds and runs the capture graph, extracting the Result from the
// final state bag.
func (s *system) execute(ctx context.Context, req ProcessRequest, t *tracker) (*Result, error) {
	r := &run{rt: s.rt, opts: s.opts, tracker: t}

	graph, err := buildGraph(r)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	initial := state.New(nil)
	initial = initial.Set(KeyImage, req.Image)
	initial = initial.Set(KeySource, req.Source)

	final, err := graph.Execute(ctx, initial)
	if err != nil {
		return nil, err
	}

	return extractResult(final)
}

func buildGraph(r *run) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("mathlens-capture")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("preprocess", PreprocessNode(r)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("infer", InferNode(r)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("parse", ParseNode(r)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("validate", ValidateNode(r)); err != nil {
		return nil, err
	}

	// preprocess → infer → parse → validate
	if err := graph.AddEdge("preprocess", "infer", nil); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("infer", "parse", nil); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("parse", "validate", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("preprocess"); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint("validate"); err != nil {
		return nil, err
	}

	return graph, nil
}

func extractResult(s state.State) (*Result, error) {
	val, ok := s.Get(KeyResult)
	if !ok {
		return nil, fmt.Errorf("missing %s in final state", KeyResult)
	}

	result, ok := val.(*Result)
	if !ok {
		return nil, fmt.Errorf("%s is not *Result", KeyResult)
	}

	return result, nil
}

// record persists the capture when a Recorder is configured. History is
// best-effort: failures are logged, never surfaced.
func (s *system) record(ctx context.Context, result *Result, image []byte) {
	if s.rt.Recorder == nil {
		return
	}

	rec := Record{
		ID:         result.ID,
		Expression: result.Expression,
		Confidence: result.Confidence,
		Value:      result.Value,
		Source:     result.Source,
		RetryCount: result.RetryCount,
		Duration:   result.ProcessingTime,
		Image:      image,
	}

	if err := s.rt.Recorder.Record(ctx, rec); err != nil {
		s.rt.Logger.WarnContext(ctx, "capture history record failed", "id", result.ID, "error", err)
	}
}

func workerCount(n int) int {
	return max(min(runtime.NumCPU(), n), 1)
}
