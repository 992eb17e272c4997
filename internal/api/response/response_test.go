package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/routegrade/routegrade/internal/api/middleware"
	"github.com/routegrade/routegrade/internal/api/models"
	"github.com/routegrade/routegrade/internal/api/response"
)

// requestWithID runs a request through the RequestID middleware so its
// context carries an ID, and returns it with a fresh recorder.
func requestWithID(t *testing.T, method, path, requestID string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}

	var processed *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	})).ServeHTTP(httptest.NewRecorder(), req)

	return processed, httptest.NewRecorder()
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	var problem models.Problem
	if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode Problem response: %v", err)
	}
	return problem
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req, rec := requestWithID(t, http.MethodGet, "/v1/ops/health", "client-request-123")

	response.JSON(rec, req, http.StatusOK, map[string]string{"status": "OK"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "client-request-123" {
		t.Errorf("expected X-Request-Id client-request-123, got %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}

func TestJSON_WithoutRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	if requestID := rec.Header().Get("X-Request-Id"); requestID != "" {
		t.Errorf("expected no X-Request-Id header when not in context, got %q", requestID)
	}
}

func TestJSON_NilData(t *testing.T) {
	req, rec := requestWithID(t, http.MethodGet, "/test", "")

	response.JSON(rec, req, http.StatusAccepted, nil)

	if rec.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got %q", rec.Body.String())
	}
}

func TestProblemWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, *http.Request)
		status int
		typ    string
	}{
		{"bad request", func(w http.ResponseWriter, r *http.Request) {
			response.BadRequest(w, r, "validation failed", []models.FieldError{{Field: "origin", Message: "is required"}})
		}, http.StatusBadRequest, models.ProblemTypeValidation},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			response.Problem(w, r, http.StatusUnauthorized, "invalid token")
		}, http.StatusUnauthorized, models.ProblemTypeUnauthorized},
		{"too many requests", func(w http.ResponseWriter, r *http.Request) {
			response.TooManyRequests(w, r, "slow down", 0)
		}, http.StatusTooManyRequests, models.ProblemTypeTooManyRequests},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			response.NotFound(w, r, "no route between the given points")
		}, http.StatusNotFound, models.ProblemTypeNotFound},
		{"internal", func(w http.ResponseWriter, r *http.Request) {
			response.InternalError(w, r, "something went wrong")
		}, http.StatusInternalServerError, models.ProblemTypeInternal},
		{"unavailable", func(w http.ResponseWriter, r *http.Request) {
			response.ServiceUnavailable(w, r, "elevation unavailable", 0)
		}, http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := requestWithID(t, http.MethodPost, "/v1/routes:difficulty", "req_fixed")

			tt.write(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("expected problem content type, got %q", ct)
			}
			problem := decodeProblem(t, rec)
			if problem.Type != tt.typ {
				t.Errorf("expected type %s, got %s", tt.typ, problem.Type)
			}
			if problem.TraceID != "req_fixed" {
				t.Errorf("expected traceId req_fixed, got %q", problem.TraceID)
			}
			if problem.Instance != "/v1/routes:difficulty" {
				t.Errorf("expected instance /v1/routes:difficulty, got %q", problem.Instance)
			}
		})
	}
}

func TestServiceUnavailable_RetryAfter(t *testing.T) {
	req, rec := requestWithID(t, http.MethodGet, "/v1/test", "")

	response.ServiceUnavailable(rec, req, "provider circuit open", 30)

	if h := rec.Header().Get("Retry-After"); h != "30" {
		t.Errorf("expected Retry-After 30, got %q", h)
	}
}

func TestTooManyRequests_RetryAfter(t *testing.T) {
	tests := []struct {
		retryAfter int
		want       string
	}{
		{60, "60"},
		{0, ""},
	}

	for _, tt := range tests {
		req, rec := requestWithID(t, http.MethodGet, "/test", "")

		response.TooManyRequests(rec, req, "route provider rate limit exceeded", tt.retryAfter)

		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", rec.Code)
		}
		if h := rec.Header().Get("Retry-After"); h != tt.want {
			t.Errorf("retryAfter=%d: expected Retry-After %q, got %q", tt.retryAfter, tt.want, h)
		}
	}
}
