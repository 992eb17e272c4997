package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/routegrade/routegrade/internal/pipeline"

// Metrics holds the pipeline's OpenTelemetry instruments.
type Metrics struct {
	runs         metric.Int64Counter
	runDuration  metric.Float64Histogram
	tilesFetched metric.Int64Counter
	tilesFailed  metric.Int64Counter
	fallbacks    metric.Int64Counter
}

// NewMetrics creates the pipeline instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	runs, err := meter.Int64Counter(
		"pipeline.runs",
		metric.WithDescription("Pipeline runs by outcome and label"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"pipeline.run.duration",
		metric.WithDescription("Duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tilesFetched, err := meter.Int64Counter(
		"elevation.tiles.fetched",
		metric.WithDescription("Terrain tiles downloaded and decoded"),
		metric.WithUnit("{tile}"),
	)
	if err != nil {
		return nil, err
	}

	tilesFailed, err := meter.Int64Counter(
		"elevation.tiles.failed",
		metric.WithDescription("Terrain tiles that could not be fetched"),
		metric.WithUnit("{tile}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"elevation.fallbacks",
		metric.WithDescription("Times the secondary elevation backend was used"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		runs:         runs,
		runDuration:  runDuration,
		tilesFetched: tilesFetched,
		tilesFailed:  tilesFailed,
		fallbacks:    fallbacks,
	}, nil
}

// RecordRun records one finished pipeline run.
func (m *Metrics) RecordRun(ctx context.Context, provider, label string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("outcome", outcome),
		attribute.String("difficulty.label", label),
	)
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordTile implements terrainrgb.TileObserver.
func (m *Metrics) RecordTile(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.tilesFetched.Add(ctx, 1)
		return
	}
	m.tilesFailed.Add(ctx, 1)
}

// RecordFallback matches elevation.FallbackSampler.OnFallback.
func (m *Metrics) RecordFallback(ctx context.Context, primary, secondary string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("elevation.primary", primary),
		attribute.String("elevation.secondary", secondary),
	))
}
