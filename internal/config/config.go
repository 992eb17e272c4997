// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is shared by cmd/api and cmd/worker.
type Config struct {
	Port        string `mapstructure:"APP_PORT"`
	Environment string `mapstructure:"APP_ENV"`
	Version     string `mapstructure:"APP_VERSION"`

	OTelEnabled     bool    `mapstructure:"OTEL_ENABLED"`
	OTLPEndpoint    string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSampleRatio float64 `mapstructure:"OTEL_SAMPLE_RATIO"`

	RouteProvider string `mapstructure:"ROUTE_PROVIDER"`
	GoogleAPIKey  string `mapstructure:"GOOGLE_MAPS_API_KEY"`
	MapboxToken   string `mapstructure:"MAPBOX_ACCESS_TOKEN"`
	ORSAPIKey     string `mapstructure:"ORS_API_KEY"`

	SampleStepMeters      float64       `mapstructure:"SAMPLE_STEP_METERS"`
	TerrainZoom           int           `mapstructure:"TERRAIN_ZOOM"`
	TileWorkers           int           `mapstructure:"TILE_WORKERS"`
	TileRequestsPerSecond float64       `mapstructure:"TILE_REQUESTS_PER_SECOND"`
	RouteTimeout          time.Duration `mapstructure:"ROUTE_TIMEOUT"`
	ElevationTimeout      time.Duration `mapstructure:"ELEVATION_TIMEOUT"`
	TileTimeout           time.Duration `mapstructure:"TILE_TIMEOUT"`
	ProviderMaxRetries    uint64        `mapstructure:"PROVIDER_MAX_RETRIES"`

	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`

	PubSubProjectID    string        `mapstructure:"PUBSUB_PROJECT_ID"`
	PubSubSubscription string        `mapstructure:"PUBSUB_SUBSCRIPTION"`
	PubSubResultTopic  string        `mapstructure:"PUBSUB_RESULT_TOPIC"`
	WorkerConcurrency  int           `mapstructure:"WORKER_CONCURRENCY"`
	WorkerJobTimeout   time.Duration `mapstructure:"WORKER_JOB_TIMEOUT"`

	RequireTLS bool `mapstructure:"REQUIRE_TLS"`
}

var defaults = map[string]any{
	"APP_PORT":    "8080",
	"APP_ENV":     "development",
	"APP_VERSION": "dev",

	"OTEL_ENABLED":                false,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
	"OTEL_SAMPLE_RATIO":           1.0,

	"ROUTE_PROVIDER":      "google",
	"GOOGLE_MAPS_API_KEY": "",
	"MAPBOX_ACCESS_TOKEN": "",
	"ORS_API_KEY":         "",

	"SAMPLE_STEP_METERS":       30.0,
	"TERRAIN_ZOOM":             14,
	"TILE_WORKERS":             8,
	"TILE_REQUESTS_PER_SECOND": 0.0,
	"ROUTE_TIMEOUT":            "10s",
	"ELEVATION_TIMEOUT":        "20s",
	"TILE_TIMEOUT":             "15s",
	"PROVIDER_MAX_RETRIES":     2,

	"JWT_SIGNING_KEY": "",
	"JWT_ISSUER":      "routegrade",
	"JWT_AUDIENCE":    "routegrade-api",

	"PUBSUB_PROJECT_ID":   "",
	"PUBSUB_SUBSCRIPTION": "",
	"PUBSUB_RESULT_TOPIC": "",
	"WORKER_CONCURRENCY":  3,
	"WORKER_JOB_TIMEOUT":  "2m",

	"REQUIRE_TLS": false,
}

var knownProviders = []string{"google", "mapbox", "openrouteservice", "ors"}

// Load reads the environment over the defaults and validates the result.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.RouteProvider = strings.ToLower(strings.TrimSpace(cfg.RouteProvider))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.SampleStepMeters <= 0 {
		errs = append(errs, fmt.Errorf("SAMPLE_STEP_METERS must be positive, got %v", c.SampleStepMeters))
	}
	if c.TerrainZoom <= 0 || c.TerrainZoom > 22 {
		errs = append(errs, fmt.Errorf("TERRAIN_ZOOM must be in [1, 22], got %d", c.TerrainZoom))
	}
	if c.TileWorkers <= 0 {
		errs = append(errs, fmt.Errorf("TILE_WORKERS must be positive, got %d", c.TileWorkers))
	}
	if c.TileRequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("TILE_REQUESTS_PER_SECOND must not be negative, got %v", c.TileRequestsPerSecond))
	}
	if c.WorkerConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.WorkerConcurrency))
	}
	valid := false
	for _, p := range knownProviders {
		if c.RouteProvider == p {
			valid = true
			break
		}
	}
	if !valid {
		errs = append(errs, fmt.Errorf("ROUTE_PROVIDER %q is not one of %s", c.RouteProvider, strings.Join(knownProviders[:3], ", ")))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
