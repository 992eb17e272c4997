package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/internal/elevation"
	elevgoogle "github.com/routegrade/routegrade/internal/elevation/google"
	"github.com/routegrade/routegrade/internal/elevation/terrainrgb"
	"github.com/routegrade/routegrade/internal/provider/resilience"
	"github.com/routegrade/routegrade/internal/routing"
	routegoogle "github.com/routegrade/routegrade/internal/routing/google"
	"github.com/routegrade/routegrade/internal/routing/mapbox"
	"github.com/routegrade/routegrade/internal/routing/openrouteservice"
)

// Input errors raised while wiring backends.
var (
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrMissingCredentials = errors.New("missing provider credentials")
)

// Provider names accepted by NewBackends.
const (
	ProviderGoogle           = "google"
	ProviderMapbox           = "mapbox"
	ProviderOpenRouteService = "openrouteservice"
)

// BackendConfig selects and configures the route and elevation backends.
type BackendConfig struct {
	Provider string

	GoogleAPIKey string
	MapboxToken  string
	ORSAPIKey    string

	RouteTimeout     time.Duration
	ElevationTimeout time.Duration
	TileTimeout      time.Duration
	// MaxRetries overrides every provider client's retry count when non-nil.
	MaxRetries *uint64

	TerrainZoom           int
	TileWorkers           int
	TileRequestsPerSecond float64

	Registry *resilience.Registry
	Metrics  *Metrics
	Logger   zerolog.Logger
}

// Backends is a matched route provider and elevation sampler.
type Backends struct {
	Router    routing.Provider
	Elevation elevation.Sampler
}

// NewBackends builds the backends for cfg.Provider:
//
//	google            route google, elevation google path, terrain fallback if a Mapbox token is set
//	mapbox            route mapbox, elevation terrain
//	openrouteservice  route ORS, elevation as for google, or terrain when only Mapbox is configured
func NewBackends(cfg BackendConfig) (Backends, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case ProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return Backends{}, fmt.Errorf("%w: %s requires GOOGLE_MAPS_API_KEY", ErrMissingCredentials, provider)
		}
		return Backends{
			Router: routegoogle.NewClient(routegoogle.ClientConfig{
				APIKey:     cfg.GoogleAPIKey,
				Timeout:    cfg.RouteTimeout,
				MaxRetries: cfg.MaxRetries,
				Registry:   cfg.Registry,
				Logger:     cfg.Logger,
			}),
			Elevation: cfg.pathSampler(),
		}, nil

	case ProviderMapbox:
		if cfg.MapboxToken == "" {
			return Backends{}, fmt.Errorf("%w: %s requires MAPBOX_ACCESS_TOKEN", ErrMissingCredentials, provider)
		}
		return Backends{
			Router: mapbox.NewClient(mapbox.ClientConfig{
				AccessToken: cfg.MapboxToken,
				Timeout:     cfg.RouteTimeout,
				MaxRetries:  cfg.MaxRetries,
				Registry:    cfg.Registry,
				Logger:      cfg.Logger,
			}),
			Elevation: &elevation.FallbackSampler{Primary: cfg.terrainSampler(), Logger: cfg.Logger},
		}, nil

	case ProviderOpenRouteService, "ors":
		if cfg.ORSAPIKey == "" {
			return Backends{}, fmt.Errorf("%w: %s requires ORS_API_KEY", ErrMissingCredentials, provider)
		}
		router := openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:     cfg.ORSAPIKey,
			Timeout:    cfg.RouteTimeout,
			MaxRetries: cfg.MaxRetries,
			Registry:   cfg.Registry,
			Logger:     cfg.Logger,
		})
		switch {
		case cfg.GoogleAPIKey != "":
			return Backends{Router: router, Elevation: cfg.pathSampler()}, nil
		case cfg.MapboxToken != "":
			return Backends{
				Router:    router,
				Elevation: &elevation.FallbackSampler{Primary: cfg.terrainSampler(), Logger: cfg.Logger},
			}, nil
		default:
			return Backends{}, fmt.Errorf("%w: %s needs GOOGLE_MAPS_API_KEY or MAPBOX_ACCESS_TOKEN for elevation", ErrMissingCredentials, provider)
		}

	default:
		return Backends{}, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// pathSampler is the Google path backend with terrain as the secondary
// when a Mapbox token is available.
func (cfg BackendConfig) pathSampler() *elevation.FallbackSampler {
	f := &elevation.FallbackSampler{
		Primary: elevgoogle.NewClient(elevgoogle.ClientConfig{
			APIKey:     cfg.GoogleAPIKey,
			Timeout:    cfg.ElevationTimeout,
			MaxRetries: cfg.MaxRetries,
			Registry:   cfg.Registry,
			Logger:     cfg.Logger,
		}),
		Logger: cfg.Logger,
	}
	if cfg.MapboxToken != "" {
		f.Secondary = cfg.terrainSampler()
		if cfg.Metrics != nil {
			f.OnFallback = cfg.Metrics.RecordFallback
		}
	}
	return f
}

func (cfg BackendConfig) terrainSampler() *terrainrgb.Sampler {
	c := terrainrgb.Config{
		AccessToken:       cfg.MapboxToken,
		Zoom:              cfg.TerrainZoom,
		Workers:           cfg.TileWorkers,
		Timeout:           cfg.TileTimeout,
		RequestsPerSecond: cfg.TileRequestsPerSecond,
		MaxRetries:        cfg.MaxRetries,
		Registry:          cfg.Registry,
		Logger:            cfg.Logger,
	}
	// A nil *Metrics must not become a non-nil interface.
	if cfg.Metrics != nil {
		c.Observer = cfg.Metrics
	}
	return terrainrgb.NewSampler(c)
}
