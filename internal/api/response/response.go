// Package response writes JSON and RFC 7807 problem responses.
package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/routegrade/routegrade/internal/api/middleware"
	"github.com/routegrade/routegrade/internal/api/models"
)

// JSON writes data as JSON with the given status code. The request ID, when
// present, is echoed in X-Request-Id.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes problem with the request path as its instance.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// Problem writes the registered problem for status.
func Problem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	Error(w, r, models.NewProblem(status, middleware.GetRequestID(r.Context()), detail))
}

func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, http.StatusNotFound, detail)
}

func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, http.StatusInternalServerError, detail)
}

// TooManyRequests writes a 429. retryAfter is in seconds; zero omits the
// Retry-After header.
func TooManyRequests(w http.ResponseWriter, r *http.Request, detail string, retryAfter int) {
	setRetryAfter(w, retryAfter)
	Problem(w, r, http.StatusTooManyRequests, detail)
}

// ServiceUnavailable writes a 503 with an optional Retry-After in seconds.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string, retryAfter int) {
	setRetryAfter(w, retryAfter)
	Problem(w, r, http.StatusServiceUnavailable, detail)
}

func setRetryAfter(w http.ResponseWriter, seconds int) {
	if seconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
}
