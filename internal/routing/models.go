// Package routing fetches route geometry between two points from an
// external directions provider.
package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/routegrade/routegrade/pkg/polyline"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the provider is down, timing out, or its circuit is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates out-of-range or rejected coordinates.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrUnauthorized indicates the provider rejected the credentials.
	ErrUnauthorized = errors.New("routing provider rejected credentials")
	// ErrUnsupportedProfile indicates the provider has no mapping for the profile.
	ErrUnsupportedProfile = errors.New("unsupported route profile")
)

// Provider is a directions backend.
type Provider interface {
	// GetRoute returns the primary route between the request's endpoints.
	GetRoute(ctx context.Context, req RouteRequest) (*Route, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
	// SupportedProfiles lists the profiles this provider can route.
	SupportedProfiles() []Profile
}

// Profile is a travel mode.
type Profile string

const (
	ProfileWalking Profile = "walking"
	ProfileHiking  Profile = "hiking"
	ProfileCycling Profile = "cycling"
	ProfileDriving Profile = "driving"
	ProfileTransit Profile = "transit"
)

// ParseProfile accepts the canonical names plus the common aliases used by
// provider APIs. Empty input defaults to walking.
func ParseProfile(s string) (Profile, error) {
	switch s {
	case "", "walking", "walk", "foot":
		return ProfileWalking, nil
	case "hiking", "hike":
		return ProfileHiking, nil
	case "cycling", "bicycling", "bike":
		return ProfileCycling, nil
	case "driving", "drive", "car":
		return ProfileDriving, nil
	case "transit":
		return ProfileTransit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProfile, s)
	}
}

// RouteRequest asks for a route between two points.
type RouteRequest struct {
	Origin      polyline.Coordinate
	Destination polyline.Coordinate
	Profile     Profile
}

// Route is a provider's primary route.
type Route struct {
	// Polyline is the encoded geometry at precision 5.
	Polyline       string
	Coordinates    []polyline.Coordinate
	DistanceMeters float64
	Provider       string
	FetchedAt      time.Time
}

// Error provides detailed error information from a routing provider.
type Error struct {
	Provider   string // Provider that generated the error
	Code       string // Provider or HTTP error code
	Message    string // Human-readable error message
	StatusCode int    // HTTP status, 0 when the request never completed
	Err        error  // One of the sentinel errors above
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is transient.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

// StatusError maps an HTTP error status to a routing Error. message is the
// provider's own error text, if any.
func StatusError(provider string, status int, message string) *Error {
	e := &Error{
		Provider:   provider,
		Code:       fmt.Sprintf("HTTP_%d", status),
		Message:    message,
		StatusCode: status,
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = "UNAUTHORIZED"
		e.Err = ErrUnauthorized
	case status == http.StatusTooManyRequests:
		e.Code = "RATE_LIMIT"
		e.Err = ErrRateLimitExceeded
	case status == http.StatusNotFound:
		e.Code = "NO_ROUTE"
		e.Err = ErrNoRouteFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e.Code = "BAD_REQUEST"
		e.Err = ErrInvalidCoordinates
	case status >= 500:
		e.Code = fmt.Sprintf("SERVER_%d", status)
		e.Err = ErrProviderUnavailable
	default:
		e.Err = ErrProviderUnavailable
	}

	if e.Message == "" {
		e.Message = fmt.Sprintf("provider returned status %d", status)
	}
	return e
}

// TransportError wraps a failure to reach the provider at all.
func TransportError(provider string, err error) *Error {
	return &Error{
		Provider: provider,
		Code:     "REQUEST_FAILED",
		Message:  "failed to reach routing provider: " + err.Error(),
		Err:      ErrProviderUnavailable,
	}
}

// NoRoute is the error for an empty result set.
func NoRoute(provider, message string) *Error {
	if message == "" {
		message = "provider returned no routes"
	}
	return &Error{
		Provider: provider,
		Code:     "NO_ROUTE",
		Message:  message,
		Err:      ErrNoRouteFound,
	}
}

// ValidateCoordinate checks latitude and longitude ranges.
func ValidateCoordinate(c polyline.Coordinate) error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidCoordinates, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidCoordinates, c.Lon)
	}
	return nil
}
