package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/internal/api/models"
	"github.com/routegrade/routegrade/internal/api/response"
	"github.com/routegrade/routegrade/internal/difficulty"
	"github.com/routegrade/routegrade/internal/pipeline"
	"github.com/routegrade/routegrade/internal/routing"
)

// RouteScorer runs the full fetch, sample, measure and score pipeline.
// *pipeline.Pipeline satisfies it.
type RouteScorer interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// DifficultyHandler serves the scoring endpoints.
type DifficultyHandler struct {
	scorer RouteScorer
	logger zerolog.Logger
}

// NewDifficultyHandler creates a DifficultyHandler. scorer may be nil, in
// which case route scoring answers 503 and pure estimation still works.
func NewDifficultyHandler(scorer RouteScorer, logger zerolog.Logger) *DifficultyHandler {
	return &DifficultyHandler{scorer: scorer, logger: logger}
}

// Estimate handles POST /v1/difficulty:estimate.
func (h *DifficultyHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req models.EstimateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res := difficulty.Estimate(req.Meta, req.Metrics)
	response.JSON(w, r, http.StatusOK, models.EstimateResponse{
		Label:       res.Label,
		IntensityKm: res.IntensityKm,
		Notes:       res.Notes,
	})
}

// RouteDifficulty handles POST /v1/routes:difficulty.
func (h *DifficultyHandler) RouteDifficulty(w http.ResponseWriter, r *http.Request) {
	if h.scorer == nil {
		response.ServiceUnavailable(w, r, "route scoring is not configured", 0)
		return
	}

	var req models.RouteDifficultyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "request validation failed", errs)
		return
	}

	profile, err := routing.ParseProfile(req.Profile)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.scorer.Run(r.Context(), pipeline.Request{
		Origin:         *req.Origin,
		Destination:    *req.Destination,
		Profile:        profile,
		Input:          req.Meta,
		IncludeGeoJSON: req.IncludeGeoJSON,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Debug().
		Str("client_id", GetClientID(r.Context())).
		Str("label", string(res.Label)).
		Float64("S_km", res.IntensityKm).
		Msg("route difficulty served")

	response.JSON(w, r, http.StatusOK, res)
}
