// Package pipeline sequences route acquisition, resampling, elevation
// sampling, metric calculation and difficulty scoring.
package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/routegrade/routegrade/internal/difficulty"
	"github.com/routegrade/routegrade/internal/elevation"
	"github.com/routegrade/routegrade/internal/routemetrics"
	"github.com/routegrade/routegrade/internal/routing"
	"github.com/routegrade/routegrade/internal/telemetry"
	"github.com/routegrade/routegrade/pkg/polyline"
)

// DefaultSampleStepMeters is the resampling interval used when none is set.
const DefaultSampleStepMeters = 30.0

// Config wires a Pipeline.
type Config struct {
	Router           routing.Provider
	Elevation        elevation.Sampler
	SampleStepMeters float64
	// Metrics is optional.
	Metrics *Metrics
	Logger  zerolog.Logger
}

// Pipeline is safe for concurrent use; each Run owns its buffers.
type Pipeline struct {
	routes   *routing.Service
	provider string
	sampler  elevation.Sampler
	step     float64
	metrics  *Metrics
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// Request describes one route to score.
type Request struct {
	Origin      polyline.Coordinate `json:"origin"`
	Destination polyline.Coordinate `json:"destination"`
	Profile     routing.Profile     `json:"profile,omitempty"`
	// Input carries descriptive attributes; measured metrics override its
	// distance, gain, elevation and slope.
	Input          difficulty.Input `json:"meta"`
	IncludeGeoJSON bool             `json:"include_geojson,omitempty"`
}

// Result is the scored route.
type Result struct {
	DistanceKm     float64          `json:"distance_km"`
	ElevationGainM float64          `json:"elevation_gain_m"`
	SlopeAvg       float64          `json:"slope_avg"`
	Label          difficulty.Label `json:"label"`
	IntensityKm    float64          `json:"S_km"`
	Notes          []string         `json:"notes"`
	RouteDistanceM float64          `json:"route_distance_m"`
	Provider       string           `json:"provider"`
	SampleCount    int              `json:"sample_count"`
	GeoJSON        json.RawMessage  `json:"geojson,omitempty"`
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	step := cfg.SampleStepMeters
	if step <= 0 {
		step = DefaultSampleStepMeters
	}
	return &Pipeline{
		routes:   routing.NewService(routing.ServiceConfig{Provider: cfg.Router, Logger: cfg.Logger}),
		provider: cfg.Router.Name(),
		sampler:  cfg.Elevation,
		step:     step,
		metrics:  cfg.Metrics,
		tracer:   telemetry.Tracer(instrumentationName),
		logger:   cfg.Logger,
	}
}

// Run fetches, samples, measures and scores one route.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("route.provider", p.provider),
		attribute.String("route.profile", string(req.Profile)),
	))
	defer span.End()

	res, err := p.run(ctx, req)

	label := ""
	if res != nil {
		label = string(res.Label)
		span.SetAttributes(
			attribute.String("difficulty.label", label),
			attribute.Float64("difficulty.s_km", res.IntensityKm),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.metrics.RecordRun(ctx, p.provider, label, time.Since(start), err)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Result, error) {
	var route *routing.Route
	err := p.stage(ctx, "route.fetch", func(ctx context.Context) error {
		var err error
		route, err = p.routes.GetRoute(ctx, routing.RouteRequest{
			Origin:      req.Origin,
			Destination: req.Destination,
			Profile:     req.Profile,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	raw := route.Coordinates
	if len(raw) < 2 {
		p.logger.Info().Int("points", len(raw)).Msg("route too short to score")
		return shortResult(route), nil
	}

	var resampled []polyline.Coordinate
	p.span(ctx, "route.resample", func() {
		resampled = polyline.Resample(raw, p.step)
	})
	p.logger.Debug().Int("raw", len(raw)).Int("samples", len(resampled)).Msg("resampled route")

	var elevations []float64
	err = p.stage(ctx, "elevation.sample", func(ctx context.Context) error {
		var err error
		elevations, err = p.sampler.Sample(ctx, resampled)
		return err
	})
	if err != nil {
		return nil, err
	}

	var m routemetrics.Metrics
	err = p.stage(ctx, "route.metrics", func(context.Context) error {
		var err error
		m, err = routemetrics.Calculate(raw, resampled, elevations)
		return err
	})
	if err != nil {
		return nil, err
	}

	in := req.Input
	if in.Latitude == nil {
		in.Latitude = difficulty.Float(raw[0].Lat)
	}
	maxElev := slices.Max(elevations)

	var scored difficulty.Result
	p.span(ctx, "difficulty.estimate", func() {
		scored = difficulty.Estimate(in, difficulty.Overrides{
			DistanceKm: difficulty.Float(m.DistanceKm),
			GainM:      difficulty.Float(m.ElevationGainM),
			MaxElevM:   difficulty.Float(maxElev),
			SlopeAvg:   difficulty.Float(m.SlopeAvg),
		})
	})

	res := &Result{
		DistanceKm:     round(m.DistanceKm, 3),
		ElevationGainM: round(m.ElevationGainM, 1),
		SlopeAvg:       round(m.SlopeAvg, 4),
		Label:          scored.Label,
		IntensityKm:    scored.IntensityKm,
		Notes:          scored.Notes,
		RouteDistanceM: route.DistanceMeters,
		Provider:       route.Provider,
		SampleCount:    len(resampled),
	}

	if req.IncludeGeoJSON {
		gj, err := BuildGeoJSON(resampled, elevations, res.DistanceKm, res.ElevationGainM, res.Label)
		if err != nil {
			return nil, err
		}
		res.GeoJSON = gj
	}

	p.logger.Info().
		Str("provider", route.Provider).
		Float64("distance_km", res.DistanceKm).
		Float64("gain_m", res.ElevationGainM).
		Str("label", string(res.Label)).
		Float64("S_km", res.IntensityKm).
		Int("samples", res.SampleCount).
		Msg("route scored")

	return res, nil
}

// stage runs fn inside a child span named name.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// span runs fn, which cannot fail, inside a child span named name.
func (p *Pipeline) span(ctx context.Context, name string, fn func()) {
	_, span := p.tracer.Start(ctx, name)
	defer span.End()
	fn()
}

func shortResult(route *routing.Route) *Result {
	return &Result{
		Label:          difficulty.LabelEasy,
		Notes:          []string{"short segment"},
		RouteDistanceM: route.DistanceMeters,
		Provider:       route.Provider,
		SampleCount:    len(route.Coordinates),
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
