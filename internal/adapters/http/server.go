package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/issacompass/promptloop/internal/adapters/http/handlers"
	"github.com/issacompass/promptloop/internal/adapters/http/middleware"
	"github.com/issacompass/promptloop/internal/application/services"
	"github.com/issacompass/promptloop/internal/config"
	"github.com/issacompass/promptloop/internal/ports"
)

// Deps are the collaborators the router wires handlers to.
type Deps struct {
	Prompts   *services.PromptService
	Optimizer *services.OptimizationService
	Progress  ports.ProgressPublisher
	Runs      ports.RunRepository
	Hub       *Hub
}

// NewRouter builds the full HTTP surface: the /api/v1 endpoints behind the
// access-key gate, plus /health, /metrics, and the /ws progress feed.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	promptHandler := handlers.NewPromptHandler(deps.Prompts)
	replyHandler := handlers.NewReplyHandler(deps.Prompts)
	improveHandler := handlers.NewImproveHandler(deps.Optimizer, deps.Progress)
	runsHandler := handlers.NewRunsHandler(deps.Runs)

	gate := middleware.AccessKey(cfg.Server.AccessKey)

	r := chi.NewRouter()
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))

	r.Get("/health", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	if deps.Hub != nil {
		r.With(gate).Get("/ws", deps.Hub.HandleWS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(gate)

		r.Get("/prompt", promptHandler.Get)
		r.Put("/prompt", promptHandler.Put)
		r.Post("/prompt/improve", promptHandler.Improve)

		r.Post("/reply", replyHandler.Generate)

		r.Post("/improve", improveHandler.Run)
		r.Post("/improve/stream", improveHandler.Stream)

		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
	})

	return r
}
