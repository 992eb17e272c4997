package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/internal/api/middleware"
	"github.com/routegrade/routegrade/internal/api/models"
	"github.com/routegrade/routegrade/internal/api/response"
	"github.com/routegrade/routegrade/internal/elevation"
	"github.com/routegrade/routegrade/internal/routing"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// unavailableRetryAfter is the Retry-After hint sent with upstream outages,
// matching the circuit breaker's open timeout.
const unavailableRetryAfter = 60

// decodeJSON reads one JSON value into dst and writes a 400 problem when the
// body is missing or malformed. It reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			response.BadRequest(w, r, "request body is required", nil)
		case errors.As(err, &maxErr):
			response.BadRequest(w, r, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit), nil)
		default:
			response.BadRequest(w, r, "malformed JSON: "+err.Error(), nil)
		}
		return false
	}
	return true
}

// writeError maps a scoring failure onto a problem response. Upstream
// credential rejections surface as 503 since the caller cannot fix them.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, routing.ErrInvalidCoordinates):
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "origin/destination", Message: err.Error(), Code: "OUT_OF_RANGE"}})
	case errors.Is(err, routing.ErrUnsupportedProfile):
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "profile", Message: err.Error(), Code: "UNSUPPORTED"}})
	case errors.Is(err, routing.ErrNoRouteFound):
		response.NotFound(w, r, "no route found between the given points")
	case errors.Is(err, routing.ErrRateLimitExceeded):
		response.TooManyRequests(w, r, "route provider rate limit exceeded", unavailableRetryAfter)
	case errors.Is(err, elevation.ErrElevationUnavailable),
		errors.Is(err, elevation.ErrProviderUnavailable),
		errors.Is(err, elevation.ErrUnauthorized),
		errors.Is(err, routing.ErrProviderUnavailable),
		errors.Is(err, routing.ErrUnauthorized),
		errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("upstream provider unavailable")
		response.ServiceUnavailable(w, r, err.Error(), unavailableRetryAfter)
	case errors.Is(err, context.Canceled):
		log.Debug().Str("request_id", middleware.GetRequestID(r.Context())).Msg("client went away")
	default:
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("scoring failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
