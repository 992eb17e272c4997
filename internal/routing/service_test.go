package routing

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/pkg/polyline"
)

// mockProvider is a mock routing provider for testing.
type mockProvider struct {
	name      string
	profiles  []Profile
	route     *Route
	err       error
	callCount atomic.Int32
	lastReq   RouteRequest
}

func (m *mockProvider) GetRoute(_ context.Context, req RouteRequest) (*Route, error) {
	m.callCount.Add(1)
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	r := *m.route
	return &r, nil
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) SupportedProfiles() []Profile {
	return m.profiles
}

func newMock() *mockProvider {
	return &mockProvider{
		name:     "mock",
		profiles: []Profile{ProfileWalking, ProfileCycling},
		route: &Route{
			Polyline:       "_p~iF~ps|U_ulLnnqC",
			DistanceMeters: 12345,
			Provider:       "mock",
		},
	}
}

func TestService_GetRoute_DecodesGeometry(t *testing.T) {
	provider := newMock()
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	route, err := service.GetRoute(context.Background(), RouteRequest{
		Origin:      polyline.Coordinate{Lat: 38.5, Lon: -120.2},
		Destination: polyline.Coordinate{Lat: 40.7, Lon: -120.95},
		Profile:     ProfileCycling,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(route.Coordinates) != 2 {
		t.Fatalf("expected 2 decoded points, got %d", len(route.Coordinates))
	}
	if route.Coordinates[1].Lat != 40.7 {
		t.Errorf("expected lat 40.7, got %f", route.Coordinates[1].Lat)
	}
	if route.DistanceMeters != 12345 {
		t.Errorf("expected distance 12345, got %f", route.DistanceMeters)
	}
}

func TestService_GetRoute_DefaultsToWalking(t *testing.T) {
	provider := newMock()
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	_, err := service.GetRoute(context.Background(), RouteRequest{
		Origin:      polyline.Coordinate{Lat: 1, Lon: 1},
		Destination: polyline.Coordinate{Lat: 1.01, Lon: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.lastReq.Profile != ProfileWalking {
		t.Errorf("expected walking profile, got %q", provider.lastReq.Profile)
	}
}

func TestService_GetRoute_InvalidCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		origin   polyline.Coordinate
		dest     polyline.Coordinate
		wantCode string
	}{
		{"latitude too high", polyline.Coordinate{Lat: 91, Lon: 0}, polyline.Coordinate{Lat: 0, Lon: 0}, "INVALID_ORIGIN"},
		{"longitude too low", polyline.Coordinate{Lat: 0, Lon: 0}, polyline.Coordinate{Lat: 0, Lon: -181}, "INVALID_DESTINATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newMock()
			service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

			_, err := service.GetRoute(context.Background(), RouteRequest{Origin: tt.origin, Destination: tt.dest})
			if !errors.Is(err, ErrInvalidCoordinates) {
				t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
			}
			var rerr *Error
			if !errors.As(err, &rerr) || rerr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %v", tt.wantCode, err)
			}
			if provider.callCount.Load() != 0 {
				t.Errorf("provider must not be called for invalid input")
			}
		})
	}
}

func TestService_GetRoute_UnsupportedProfile(t *testing.T) {
	service := NewService(ServiceConfig{Provider: newMock(), Logger: zerolog.Nop()})

	_, err := service.GetRoute(context.Background(), RouteRequest{
		Origin:      polyline.Coordinate{Lat: 1, Lon: 1},
		Destination: polyline.Coordinate{Lat: 2, Lon: 2},
		Profile:     ProfileTransit,
	})
	if !errors.Is(err, ErrUnsupportedProfile) {
		t.Errorf("expected ErrUnsupportedProfile, got %v", err)
	}
}

func TestService_GetRoute_ProviderErrorPassedThrough(t *testing.T) {
	provider := newMock()
	provider.err = StatusError("mock", http.StatusServiceUnavailable, "")
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	_, err := service.GetRoute(context.Background(), RouteRequest{
		Origin:      polyline.Coordinate{Lat: 1, Lon: 1},
		Destination: polyline.Coordinate{Lat: 2, Lon: 2},
	})

	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !rerr.IsRetryable() {
		t.Errorf("503 should be retryable")
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status    int
		sentinel  error
		retryable bool
	}{
		{http.StatusBadRequest, ErrInvalidCoordinates, false},
		{http.StatusUnauthorized, ErrUnauthorized, false},
		{http.StatusForbidden, ErrUnauthorized, false},
		{http.StatusNotFound, ErrNoRouteFound, false},
		{http.StatusTooManyRequests, ErrRateLimitExceeded, true},
		{http.StatusBadGateway, ErrProviderUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := StatusError("mock", tt.status, "")
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err.Err)
			}
			if err.IsRetryable() != tt.retryable {
				t.Errorf("expected retryable=%v", tt.retryable)
			}
			if err.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, err.StatusCode)
			}
		})
	}
}

func TestParseProfile(t *testing.T) {
	tests := map[string]Profile{
		"":          ProfileWalking,
		"foot":      ProfileWalking,
		"hike":      ProfileHiking,
		"bicycling": ProfileCycling,
		"car":       ProfileDriving,
		"transit":   ProfileTransit,
	}
	for in, want := range tests {
		got, err := ParseProfile(in)
		if err != nil || got != want {
			t.Errorf("ParseProfile(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseProfile("teleport"); !errors.Is(err, ErrUnsupportedProfile) {
		t.Errorf("expected ErrUnsupportedProfile, got %v", err)
	}
}

func TestService_ProviderName(t *testing.T) {
	service := NewService(ServiceConfig{Provider: newMock()})
	if service.ProviderName() != "mock" {
		t.Errorf("expected mock, got %s", service.ProviderName())
	}
}
