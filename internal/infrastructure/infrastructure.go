// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, resilience) that
// domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/mathlens/internal/config"
	"github.com/JaimeStill/mathlens/internal/fallback"
	"github.com/JaimeStill/mathlens/internal/faults"
	"github.com/JaimeStill/mathlens/internal/resilience"
	"github.com/JaimeStill/mathlens/pkg/database"
	"github.com/JaimeStill/mathlens/pkg/lifecycle"
	"github.com/JaimeStill/mathlens/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, file storage, and the shared resilience state
// guarding the inference dependency. The Breaker and Classifier are process
// singletons: every capture flows through the same failure accounting.
type Infrastructure struct {
	Lifecycle  *lifecycle.Coordinator
	Logger     *slog.Logger
	Database   database.System
	Storage    storage.System
	Agent      gaconfig.AgentConfig
	Classifier *faults.Classifier
	Executor   *resilience.Executor
	Breaker    *resilience.Breaker
	Resolver   *fallback.Resolver
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle:  lc,
		Logger:     logger,
		Database:   db,
		Storage:    store,
		Agent:      cfg.Agent,
		Classifier: faults.NewClassifier(logger),
		Executor:   resilience.NewExecutor(cfg.Resilience.RetryConfigs(), logger),
		Breaker:    resilience.NewBreaker("inference", cfg.Resilience.BreakerConfig(), logger),
		Resolver:   fallback.NewResolver(logger),
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and storage hooks are registered for startup and shutdown coordination.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
