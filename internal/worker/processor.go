package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/routegrade/routegrade/internal/difficulty"
	"github.com/routegrade/routegrade/internal/pipeline"
	"github.com/routegrade/routegrade/internal/routing"
	"github.com/routegrade/routegrade/pkg/polyline"
)

// ErrInvalidJob marks a message that can never succeed, however often it is
// redelivered.
var ErrInvalidJob = errors.New("invalid job")

// Scorer runs one route through the scoring pipeline.
type Scorer interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// JobMessage is the payload of a job message.
type JobMessage struct {
	JobID   string `json:"job_id,omitempty"`
	JobType string `json:"job_type"`
	// Route is set for route_difficulty jobs.
	Route *RouteJob `json:"route,omitempty"`
	// Items is set for difficulty_batch jobs.
	Items []RouteJob `json:"items,omitempty"`
}

// RouteJob describes one route to score.
type RouteJob struct {
	Origin         *polyline.Coordinate `json:"origin"`
	Destination    *polyline.Coordinate `json:"destination"`
	Profile        string               `json:"profile,omitempty"`
	Meta           difficulty.Input     `json:"meta"`
	IncludeGeoJSON bool                 `json:"includeGeojson,omitempty"`
}

// JobResult is published once a job finishes.
type JobResult struct {
	JobID       string           `json:"job_id"`
	JobType     string           `json:"job_type"`
	CompletedAt time.Time        `json:"completed_at"`
	DurationMs  int64            `json:"duration_ms"`
	Result      *pipeline.Result `json:"result,omitempty"`
	Items       []ItemResult     `json:"items,omitempty"`
	Succeeded   int              `json:"succeeded,omitempty"`
	Failed      int              `json:"failed,omitempty"`
}

// ItemResult is the outcome of one batch item. Exactly one of Result and
// Error is set.
type ItemResult struct {
	Index  int              `json:"index"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Stats tracks processor counters.
type Stats struct {
	JobsProcessed   int64
	JobsSucceeded   int64
	JobsFailed      int64
	JobsRejected    int64
	ItemsScored     int64
	ItemsFailed     int64
	LastJobAt       time.Time
	LastJobDuration time.Duration
}

// ProcessorConfig holds configuration for creating a Processor.
type ProcessorConfig struct {
	Config Config
	Scorer Scorer
	Logger zerolog.Logger
}

// Processor decodes and runs scoring jobs.
type Processor struct {
	config Config
	scorer Scorer
	logger zerolog.Logger

	mu    sync.RWMutex
	stats Stats
}

// NewProcessor creates a new job processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{
		config: cfg.Config.withDefaults(),
		scorer: cfg.Scorer,
		logger: cfg.Logger,
	}
}

// Process decodes data and runs the job it describes. Errors matching
// ErrInvalidJob, or IsPermanent, will fail again on redelivery.
func (p *Processor) Process(ctx context.Context, data []byte) (*JobResult, error) {
	start := time.Now()

	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		err = fmt.Errorf("%w: decoding message: %v", ErrInvalidJob, err)
		p.record(start, err)
		return nil, err
	}
	if msg.JobID == "" {
		msg.JobID = uuid.NewString()
	}

	logger := p.logger.With().
		Str("job_id", msg.JobID).
		Str("job_type", msg.JobType).
		Logger()

	result := &JobResult{JobID: msg.JobID, JobType: msg.JobType}

	var err error
	switch msg.JobType {
	case JobTypeRouteDifficulty:
		err = p.runRoute(ctx, msg, result)
	case JobTypeDifficultyBatch:
		err = p.runBatch(ctx, logger, msg, result)
	default:
		err = fmt.Errorf("%w: unknown job type %q", ErrInvalidJob, msg.JobType)
	}

	p.record(start, err)
	if err != nil {
		return nil, err
	}

	result.CompletedAt = time.Now().UTC()
	result.DurationMs = time.Since(start).Milliseconds()

	logger.Info().
		Dur("duration", time.Since(start)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("job completed")

	return result, nil
}

func (p *Processor) runRoute(ctx context.Context, msg JobMessage, result *JobResult) error {
	if msg.Route == nil {
		return fmt.Errorf("%w: route_difficulty job without route", ErrInvalidJob)
	}
	req, err := msg.Route.request()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	res, err := p.scorer.Run(ctx, req)
	if err != nil {
		return err
	}
	result.Result = res
	result.Succeeded = 1
	p.addItems(1, 0)
	return nil
}

// runBatch scores every item with bounded concurrency. Item failures are
// reported per item and never fail the batch.
func (p *Processor) runBatch(ctx context.Context, logger zerolog.Logger, msg JobMessage, result *JobResult) error {
	if len(msg.Items) == 0 {
		return fmt.Errorf("%w: difficulty_batch job without items", ErrInvalidJob)
	}
	if len(msg.Items) > p.config.MaxBatchItems {
		return fmt.Errorf("%w: batch of %d items exceeds limit %d", ErrInvalidJob, len(msg.Items), p.config.MaxBatchItems)
	}

	logger.Info().
		Int("items", len(msg.Items)).
		Int("concurrency", p.config.Concurrency).
		Msg("starting batch")

	items := make([]ItemResult, len(msg.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)

	for i, item := range msg.Items {
		g.Go(func() error {
			items[i] = p.scoreItem(gctx, i, item)
			return nil
		})
	}
	_ = g.Wait()

	// A cancelled batch is redelivered rather than published half done.
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, it := range items {
		if it.Error != "" {
			result.Failed++
			logger.Warn().Int("index", it.Index).Str("error", it.Error).Msg("batch item failed")
		} else {
			result.Succeeded++
		}
	}
	result.Items = items
	p.addItems(result.Succeeded, result.Failed)
	return nil
}

func (p *Processor) scoreItem(ctx context.Context, index int, item RouteJob) ItemResult {
	req, err := item.request()
	if err != nil {
		return ItemResult{Index: index, Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	res, err := p.scorer.Run(ctx, req)
	if err != nil {
		return ItemResult{Index: index, Error: err.Error()}
	}
	return ItemResult{Index: index, Result: res}
}

func (j RouteJob) request() (pipeline.Request, error) {
	if j.Origin == nil || j.Destination == nil {
		return pipeline.Request{}, fmt.Errorf("%w: origin and destination are required", ErrInvalidJob)
	}
	profile, err := routing.ParseProfile(j.Profile)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		Origin:         *j.Origin,
		Destination:    *j.Destination,
		Profile:        profile,
		Input:          j.Meta,
		IncludeGeoJSON: j.IncludeGeoJSON,
	}, nil
}

// IsPermanent reports whether err will recur on redelivery, so the message
// should be acknowledged instead of retried.
func IsPermanent(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidJob),
		errors.Is(err, routing.ErrInvalidCoordinates),
		errors.Is(err, routing.ErrUnsupportedProfile),
		errors.Is(err, routing.ErrNoRouteFound):
		return true
	}
	return false
}

func (p *Processor) record(start time.Time, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.JobsProcessed++
	switch {
	case err == nil:
		p.stats.JobsSucceeded++
	case IsPermanent(err):
		p.stats.JobsRejected++
	default:
		p.stats.JobsFailed++
	}
	p.stats.LastJobAt = time.Now()
	p.stats.LastJobDuration = time.Since(start)
}

func (p *Processor) addItems(scored, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.ItemsScored += int64(scored)
	p.stats.ItemsFailed += int64(failed)
}

// Stats returns a copy of the current counters.
func (p *Processor) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// StatsSnapshot returns the current counters as a map.
func (p *Processor) StatsSnapshot() map[string]any {
	s := p.Stats()
	return map[string]any{
		"jobs_processed":    s.JobsProcessed,
		"jobs_succeeded":    s.JobsSucceeded,
		"jobs_failed":       s.JobsFailed,
		"jobs_rejected":     s.JobsRejected,
		"items_scored":      s.ItemsScored,
		"items_failed":      s.ItemsFailed,
		"last_job_at":       s.LastJobAt,
		"last_job_duration": s.LastJobDuration.String(),
	}
}
