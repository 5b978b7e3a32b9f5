package api

import (
	"github.com/JaimeStill/mathlens/internal/config"
	"github.com/JaimeStill/mathlens/internal/infrastructure"
	"github.com/JaimeStill/mathlens/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Pipeline   config.PipelineConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle:  infra.Lifecycle,
			Logger:     infra.Logger.With("module", "api"),
			Database:   infra.Database,
			Storage:    infra.Storage,
			Agent:      infra.Agent,
			Classifier: infra.Classifier,
			Executor:   infra.Executor,
			Breaker:    infra.Breaker,
			Resolver:   infra.Resolver,
		},
		Pagination: cfg.API.Pagination,
		Pipeline:   cfg.Pipeline,
	}
}
