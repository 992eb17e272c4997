package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routegrade/routegrade/internal/api/middleware"
)

func serveRequestID(header string) (ctxID, respID string) {
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = middleware.GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	if header != "" {
		req.Header.Set("X-Request-Id", header)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return ctxID, w.Header().Get("X-Request-Id")
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	ctxID, respID := serveRequestID("")

	assert.True(t, strings.HasPrefix(ctxID, "req_"))
	assert.Len(t, ctxID, 26)
	assert.Equal(t, ctxID, respID)
}

func TestRequestID_PreservesExistingID(t *testing.T) {
	ctxID, respID := serveRequestID("existing_request_id")

	assert.Equal(t, "existing_request_id", ctxID)
	assert.Equal(t, "existing_request_id", respID)
}

func TestRequestID_ReplacesUnusableID(t *testing.T) {
	for name, header := range map[string]string{
		"too long":   strings.Repeat("a", 65),
		"whitespace": "two words",
		"non ascii":  "req_é",
	} {
		t.Run(name, func(t *testing.T) {
			ctxID, respID := serveRequestID(header)
			assert.NotEqual(t, header, ctxID)
			assert.True(t, strings.HasPrefix(respID, "req_"))
		})
	}
}

func TestGetRequestID_ReturnsEmptyStringForMissingContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}

func TestRequestID_UniqueIDs(t *testing.T) {
	ids := make(map[string]bool)
	for range 100 {
		_, id := serveRequestID("")
		assert.False(t, ids[id], "duplicate request ID generated: %s", id)
		ids[id] = true
	}
}
