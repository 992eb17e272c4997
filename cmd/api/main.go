// Package main provides the entrypoint for the RouteGrade API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/internal/api"
	"github.com/routegrade/routegrade/internal/api/middleware"
	"github.com/routegrade/routegrade/internal/api/models"
	"github.com/routegrade/routegrade/internal/auth"
	"github.com/routegrade/routegrade/internal/config"
	"github.com/routegrade/routegrade/internal/pipeline"
	"github.com/routegrade/routegrade/internal/provider/resilience"
	"github.com/routegrade/routegrade/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "routegrade-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting RouteGrade API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
		Logger:         &log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	pipelineMetrics, err := pipeline.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize pipeline metrics")
		os.Exit(1)
	}

	registry := resilience.NewRegistry()

	routerCfg := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		Registry:    registry,
		RequireTLS:  cfg.RequireTLS,
	}

	maxRetries := cfg.ProviderMaxRetries
	backends, err := pipeline.NewBackends(pipeline.BackendConfig{
		Provider:              cfg.RouteProvider,
		GoogleAPIKey:          cfg.GoogleAPIKey,
		MapboxToken:           cfg.MapboxToken,
		ORSAPIKey:             cfg.ORSAPIKey,
		RouteTimeout:          cfg.RouteTimeout,
		ElevationTimeout:      cfg.ElevationTimeout,
		TileTimeout:           cfg.TileTimeout,
		MaxRetries:            &maxRetries,
		TerrainZoom:           cfg.TerrainZoom,
		TileWorkers:           cfg.TileWorkers,
		TileRequestsPerSecond: cfg.TileRequestsPerSecond,
		Registry:              registry,
		Metrics:               pipelineMetrics,
		Logger:                log,
	})
	if err != nil {
		// Pure estimation still works without provider credentials.
		log.Warn().Err(err).Msg("route scoring disabled")
	} else {
		routerCfg.Scorer = pipeline.New(pipeline.Config{
			Router:           backends.Router,
			Elevation:        backends.Elevation,
			SampleStepMeters: cfg.SampleStepMeters,
			Metrics:          pipelineMetrics,
			Logger:           log,
		})
		routerCfg.Backends = models.BackendStatus{
			Route:     backends.Router.Name(),
			Elevation: backends.Elevation.Name(),
		}
		log.Info().
			Str("route_backend", routerCfg.Backends.Route).
			Str("elevation_backend", routerCfg.Backends.Elevation).
			Msg("route scoring initialized")
	}

	if cfg.JWTSigningKey != "" {
		routerCfg.TokenValidator = auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.JWTSigningKey,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
		})
		log.Info().Msg("bearer authentication enabled")
	} else {
		log.Warn().Msg("JWT_SIGNING_KEY not set - scoring endpoints are unauthenticated")
	}

	router := api.NewRouter(routerCfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
