package pipeline

import (
	"sync"
	"time"

	"github.com/JaimeStill/mathlens/internal/faults"
)

// Stage identifies where a capture currently sits in the pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageIdle          Stage = "idle"
	StageCapturing     Stage = "capturing"
	StagePreprocessing Stage = "preprocessing"
	StageProcessing    Stage = "processing"
	StageParsing       Stage = "parsing"
	StageValidating    Stage = "validating"
	StageComplete      Stage = "complete"
	StageError         Stage = "error"
)

// Progress checkpoints per stage. Processing advances fractionally between
// checkpoints as inference attempts complete.
const (
	progressCapturing     = 0.05
	progressPreprocessing = 0.15
	progressProcessing    = 0.30
	progressParsing       = 0.80
	progressValidating    = 0.90
	progressComplete      = 1.0
)

// ProcessingState is an observable snapshot of the active capture.
type ProcessingState struct {
	Stage      Stage         `json:"stage"`
	Progress   float64       `json:"progress"`
	Message    string        `json:"message,omitempty"`
	RetryCount int           `json:"retry_count"`
	StartedAt  time.Time     `json:"started_at,omitzero"`
	UpdatedAt  time.Time     `json:"updated_at,omitzero"`
	Error      *faults.Error `json:"error,omitempty"`
}

// tracker owns the mutable processing state. All pipeline stages report
// through it; readers always see a consistent snapshot.
type tracker struct {
	mu    sync.Mutex
	state ProcessingState
}

func newTracker() *tracker {
	return &tracker{state: ProcessingState{Stage: StageIdle}}
}

func (t *tracker) begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.state = ProcessingState{
		Stage:     StageCapturing,
		Progress:  progressCapturing,
		StartedAt: now,
		UpdatedAt: now,
	}
}

func (t *tracker) advance(stage Stage, progress float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Stage = stage
	t.state.Progress = progress
	t.state.Message = message
	t.state.UpdatedAt = time.Now()
}

func (t *tracker) retries(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.RetryCount = count
	t.state.UpdatedAt = time.Now()
}

func (t *tracker) complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Stage = StageComplete
	t.state.Progress = progressComplete
	t.state.Message = ""
	t.state.Error = nil
	t.state.UpdatedAt = time.Now()
}

func (t *tracker) fail(e *faults.Error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Stage = StageError
	t.state.Message = e.Message
	t.state.Error = e
	t.state.UpdatedAt = time.Now()
}

// reset returns the tracker to idle. Used after cancellation so a stale
// capture never lingers in an observable state.
func (t *tracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = ProcessingState{Stage: StageIdle}
}

func (t *tracker) snapshot() ProcessingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
