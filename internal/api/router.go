// Package api assembles the routegrade HTTP API.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/internal/api/handler"
	"github.com/routegrade/routegrade/internal/api/middleware"
	"github.com/routegrade/routegrade/internal/api/models"
	"github.com/routegrade/routegrade/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// TokenValidator guards the scoring routes. Nil leaves them open.
	TokenValidator middleware.TokenValidator

	// Scorer runs route scoring; nil disables /v1/routes:difficulty.
	Scorer   handler.RouteScorer
	Registry *resilience.Registry
	Backends models.BackendStatus

	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "routegrade-api"
	}

	// Order matters: request ID first so every later layer can log it.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Backends:  cfg.Backends,
	})
	difficultyHandler := handler.NewDifficultyHandler(cfg.Scorer, cfg.Logger)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(middleware.RateLimitByIP(middleware.StandardRateLimit)).Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			if cfg.TokenValidator != nil {
				r.Use(middleware.Auth(cfg.TokenValidator))
			}
			r.Use(middleware.RequireJSON)

			r.With(middleware.RateLimitByClient(middleware.StandardRateLimit)).
				Post("/difficulty:estimate", difficultyHandler.Estimate)
			r.With(middleware.RateLimitByClient(middleware.ExpensiveRateLimit)).
				Post("/routes:difficulty", difficultyHandler.RouteDifficulty)
		})
	})

	return r
}
