// Package vision sends captured expression images to a vision language model
// and extracts the transcribed expression with the model's self-reported
// confidence.
package vision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/mathlens/pkg/formatting"
)

// Analysis is the structured result of one vision inference call. When the
// image contains no math, Expression carries the NO_MATH_FOUND sentinel and
// downstream parsing decides how to surface it.
type Analysis struct {
	Expression string  `json:"expression"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale,omitempty"`
}

// Engine performs vision inference over a data-URI encoded image.
type Engine interface {
	Analyze(ctx context.Context, dataURI string) (*Analysis, error)
}

type analysisResponse struct {
	Expression string  `json:"expression"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

type agentEngine struct {
	config gaconfig.AgentConfig
	logger *slog.Logger
}

// NewEngine creates an Engine backed by a go-agents vision agent. The agent
// is constructed per call so concurrent inferences never share connection
// state.
func NewEngine(cfg *gaconfig.AgentConfig, logger *slog.Logger) Engine {
	return &agentEngine{
		config: *cfg,
		logger: logger.With("system", "vision"),
	}
}

func (e *agentEngine) Analyze(ctx context.Context, dataURI string) (*Analysis, error) {
	a, err := agent.New(&e.config)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Vision(ctx, AnalysisPrompt, []string{dataURI})
	if err != nil {
		return nil, fmt.Errorf("vision call: %w", err)
	}

	parsed, err := formatting.Parse[analysisResponse](resp.Content())
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	analysis := &Analysis{
		Expression: parsed.Expression,
		Confidence: clampConfidence(parsed.Confidence),
		Rationale:  parsed.Rationale,
	}

	e.logger.InfoContext(
		ctx, "vision analysis complete",
		"expression", analysis.Expression,
		"confidence", analysis.Confidence,
	)

	return analysis, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
