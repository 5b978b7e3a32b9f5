package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/mathlens/internal/fallback"
	"github.com/JaimeStill/mathlens/internal/faults"
	"github.com/JaimeStill/mathlens/internal/imaging"
	"github.com/JaimeStill/mathlens/internal/resilience"
	"github.com/JaimeStill/mathlens/internal/vision"
)

// Runtime bundles the services pipeline stages require. It is assembled by
// higher-level composition code from infrastructure and domain systems.
type Runtime struct {
	Engine       vision.Engine
	Preprocessor *imaging.Preprocessor
	Classifier   *faults.Classifier
	Resolver     *fallback.Resolver
	Executor     *resilience.Executor
	Breaker      *resilience.Breaker
	Recorder     Recorder
	Logger       *slog.Logger
}

// Recorder persists completed captures. A nil Recorder disables history;
// recording failures never fail the capture itself.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Record is the capture history payload handed to the Recorder.
type Record struct {
	ID         uuid.UUID
	Expression string
	Confidence float64
	Value      float64
	Source     string
	RetryCount int
	Duration   time.Duration
	Image      []byte
}
