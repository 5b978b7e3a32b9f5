package api

import (
	"net/http"

	"github.com/JaimeStill/mathlens/internal/config"
	"github.com/JaimeStill/mathlens/internal/pipeline"
	"github.com/JaimeStill/mathlens/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	storage := newStorageHandler(
		runtime.Storage,
		runtime.Logger,
		cfg.Storage.MaxListSize,
	)

	routes.Register(
		mux,
		pipeline.NewHandler(domain.Pipeline, runtime.Logger).Routes(),
		domain.Captures.Handler().Routes(),
		storage.routes(),
	)
}
