// Package terrainrgb samples elevations from Mapbox Terrain-RGB raster tiles.
package terrainrgb

import (
	"context"
	"fmt"
	"image/png"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/routegrade/routegrade/internal/elevation"
	"github.com/routegrade/routegrade/internal/provider/resilience"
	"github.com/routegrade/routegrade/pkg/polyline"
)

const (
	// ProviderName identifies this elevation provider.
	ProviderName = "mapbox-terrain"

	// DefaultBaseURL is the Mapbox API base URL.
	DefaultBaseURL = "https://api.mapbox.com"

	DefaultZoom    = 14
	DefaultWorkers = 8
	DefaultTimeout = 15 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TileObserver receives one call per tile fetch attempt.
type TileObserver interface {
	RecordTile(ctx context.Context, ok bool)
}

// Config holds configuration for the terrain sampler.
type Config struct {
	AccessToken string
	BaseURL     string
	Zoom        int
	// Workers bounds concurrent tile downloads.
	Workers int
	// Timeout applies to each tile download.
	Timeout time.Duration
	// RequestsPerSecond throttles tile downloads; 0 disables throttling.
	RequestsPerSecond float64
	HTTPClient        HTTPDoer
	MaxRetries        *uint64
	Registry          *resilience.Registry
	Observer          TileObserver
	Logger            zerolog.Logger
}

// Sampler implements elevation.Sampler over Terrain-RGB tiles.
type Sampler struct {
	token      string
	baseURL    string
	zoom       int
	workers    int
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient HTTPDoer
	observer   TileObserver
	logger     zerolog.Logger
}

// NewSampler creates a terrain sampler, filling zero values with defaults.
func NewSampler(cfg Config) *Sampler {
	s := &Sampler{
		token:      cfg.AccessToken,
		baseURL:    cfg.BaseURL,
		zoom:       cfg.Zoom,
		workers:    cfg.Workers,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		observer:   cfg.Observer,
		logger:     cfg.Logger,
	}
	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if s.zoom <= 0 {
		s.zoom = DefaultZoom
	}
	if s.workers <= 0 {
		s.workers = DefaultWorkers
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), s.workers)
	}
	if s.httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = s.timeout
		clientCfg.InitialInterval = s.timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		if cfg.MaxRetries != nil {
			clientCfg.MaxRetries = *cfg.MaxRetries
		}
		s.httpClient = resilience.NewClient(clientCfg)
	}
	return s
}

// Name returns the provider name.
func (s *Sampler) Name() string {
	return ProviderName
}

type placement struct {
	key    TileKey
	fx, fy float64
}

type tileResult struct {
	key    TileKey
	raster *raster
	err    error
}

// Sample returns one elevation per coordinate. A tile that cannot be fetched
// yields 0.0 for every coordinate inside it; the call only fails when no
// tile could be fetched at all.
func (s *Sampler) Sample(ctx context.Context, coords []polyline.Coordinate) ([]float64, error) {
	if len(coords) == 0 {
		return []float64{}, nil
	}

	placements := make([]placement, len(coords))
	var keys []TileKey
	seen := make(map[TileKey]struct{})
	for i, c := range coords {
		key, fx, fy := Locate(c, s.zoom)
		placements[i] = placement{key: key, fx: fx, fy: fy}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	tiles := s.fetchTiles(ctx, keys)
	if len(tiles) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sampling terrain: %w", err)
		}
		return nil, &elevation.Error{
			Provider: ProviderName,
			Code:     "ALL_TILES_FAILED",
			Message:  fmt.Sprintf("none of %d tiles could be fetched", len(keys)),
			Err:      elevation.ErrProviderUnavailable,
		}
	}

	out := make([]float64, len(coords))
	for i, p := range placements {
		if r, ok := tiles[p.key]; ok {
			out[i] = r.bilinear(p.fx, p.fy)
		}
	}

	s.logger.Debug().
		Int("tiles", len(keys)).
		Int("tiles_ok", len(tiles)).
		Int("points", len(coords)).
		Msg("sampled terrain tiles")
	return out, nil
}

// fetchTiles downloads keys on a bounded pool and returns the decoded
// rasters by key. Failed tiles are logged and left out of the map.
func (s *Sampler) fetchTiles(ctx context.Context, keys []TileKey) map[TileKey]*raster {
	results := make(chan tileResult, len(keys))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, key := range keys {
		g.Go(func() error {
			r, err := s.fetchTile(ctx, key)
			results <- tileResult{key: key, raster: r, err: err}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	tiles := make(map[TileKey]*raster, len(keys))
	for res := range results {
		if s.observer != nil {
			s.observer.RecordTile(ctx, res.err == nil)
		}
		if res.err != nil {
			s.logger.Warn().Err(res.err).
				Str("tile", res.key.String()).
				Msg("terrain tile unavailable, using 0 elevation")
			continue
		}
		tiles[res.key] = res.raster
	}
	return tiles
}

func (s *Sampler) fetchTile(ctx context.Context, key TileKey) (*raster, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/v4/mapbox.terrain-rgb/%d/%d/%d@2x.pngraw?access_token=%s",
		s.baseURL, key.Z, key.X, key.Y, url.QueryEscape(s.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, elevation.StatusError(ProviderName, resp.StatusCode, "")
	}

	img, err := png.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding tile: %w", err)
	}
	return newRaster(img), nil
}
