package api

import (
	"context"

	"github.com/JaimeStill/mathlens/internal/captures"
	"github.com/JaimeStill/mathlens/internal/imaging"
	"github.com/JaimeStill/mathlens/internal/pipeline"
	"github.com/JaimeStill/mathlens/internal/vision"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Pipeline pipeline.System
	Captures captures.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	capturesSystem := captures.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	validator := imaging.NewValidator(runtime.Pipeline.Imaging(), runtime.Logger)

	pipelineSystem := pipeline.New(
		&pipeline.Runtime{
			Engine:       vision.NewEngine(&runtime.Agent, runtime.Logger),
			Preprocessor: imaging.NewPreprocessor(validator, runtime.Logger),
			Classifier:   runtime.Classifier,
			Resolver:     runtime.Resolver,
			Executor:     runtime.Executor,
			Breaker:      runtime.Breaker,
			Recorder:     &captureRecorder{captures: capturesSystem},
			Logger:       runtime.Logger,
		},
		runtime.Pipeline.Options(),
	)

	return &Domain{
		Pipeline: pipelineSystem,
		Captures: capturesSystem,
	}
}

// captureRecorder adapts the capture history system to the pipeline's
// Recorder interface so the pipeline stays decoupled from persistence.
type captureRecorder struct {
	captures captures.System
}

func (r *captureRecorder) Record(ctx context.Context, rec pipeline.Record) error {
	_, err := r.captures.Record(ctx, captures.RecordCommand{
		ID:         rec.ID,
		Expression: rec.Expression,
		Confidence: rec.Confidence,
		Value:      rec.Value,
		Source:     rec.Source,
		RetryCount: rec.RetryCount,
		Duration:   rec.Duration,
		Image:      rec.Image,
	})
	return err
}
