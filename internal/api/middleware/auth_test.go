package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routegrade/routegrade/internal/api/middleware"
	"github.com/routegrade/routegrade/internal/auth"
)

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "routegrade",
		Audience:   "routegrade-api",
	})
}

func serveAuth(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()

	var clientID string
	handler := middleware.Auth(testJWTService())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID = middleware.GetClientID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/difficulty:estimate", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, clientID
}

func TestAuth_MissingAuthorizationHeader(t *testing.T) {
	rec, _ := serveAuth(t, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
	assert.Equal(t, `Bearer realm="routegrade"`, rec.Header().Get("WWW-Authenticate"))
}

func TestAuth_InvalidAuthorizationFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"just bearer", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := serveAuth(t, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	rec, _ := serveAuth(t, "Bearer invalid.jwt.token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid access token")
}

func TestAuth_ExpiredToken(t *testing.T) {
	token, _, err := testJWTService().Issue("batch-importer", -time.Minute)
	require.NoError(t, err)

	rec, _ := serveAuth(t, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "access token has expired")
}

func TestAuth_ForeignSigningKey(t *testing.T) {
	other := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "some-other-key",
		Issuer:     "routegrade",
		Audience:   "routegrade-api",
	})
	token, _, err := other.Issue("intruder", time.Hour)
	require.NoError(t, err)

	rec, clientID := serveAuth(t, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, clientID)
}

func TestAuth_ValidToken(t *testing.T) {
	token, _, err := testJWTService().Issue("trip-planner", time.Hour)
	require.NoError(t, err)

	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		t.Run(prefix, func(t *testing.T) {
			rec, clientID := serveAuth(t, prefix+token)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "trip-planner", clientID)
		})
	}
}

func TestGetClientID_NoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Empty(t, middleware.GetClientID(req.Context()))
}
