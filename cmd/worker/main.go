// Package main provides the entrypoint for the RouteGrade scoring worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/internal/config"
	"github.com/routegrade/routegrade/internal/pipeline"
	"github.com/routegrade/routegrade/internal/provider/resilience"
	"github.com/routegrade/routegrade/internal/telemetry"
	"github.com/routegrade/routegrade/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "routegrade-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting RouteGrade worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.PubSubProjectID == "" || cfg.PubSubSubscription == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION are required")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	pipelineMetrics, err := pipeline.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pipeline metrics")
	}

	registry := resilience.NewRegistry()
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
		log.Fatal().Err(err).Msg("failed to configure backends")
	}

	processor := worker.NewProcessor(worker.ProcessorConfig{
		Config: worker.Config{
			Concurrency: cfg.WorkerConcurrency,
			JobTimeout:  cfg.WorkerJobTimeout,
		},
		Scorer: pipeline.New(pipeline.Config{
			Router:           backends.Router,
			Elevation:        backends.Elevation,
			SampleStepMeters: cfg.SampleStepMeters,
			Metrics:          pipelineMetrics,
			Logger:           log,
		}),
		Logger: log,
	})

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.PubSubProjectID,
		SubscriptionName: cfg.PubSubSubscription,
		ResultTopic:      cfg.PubSubResultTopic,
		MaxOutstanding:   cfg.WorkerConcurrency * 2,
		Processor:        processor,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer func() {
		if err := handler.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close pubsub client")
		}
	}()

	// Worker also exposes a health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "healthy",
			"version": Version,
			"stats":   processor.StatsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- handler.Start(ctx)
	}()

	// Wait for interrupt signal or subscriber exit
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info().Msg("shutting down worker")
		cancel()
		// Receive returns once in-flight messages are handled.
		if err := <-done; err != nil {
			log.Error().Err(err).Msg("subscriber stopped with error")
		}
	case err := <-done:
		log.Error().Err(err).Msg("subscriber stopped")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
