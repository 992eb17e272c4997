// Package elevation acquires one elevation value per coordinate from an
// external provider.
package elevation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/routegrade/routegrade/pkg/polyline"
)

// Sentinel errors for elevation operations.
var (
	// ErrElevationUnavailable means no configured backend produced a series.
	ErrElevationUnavailable = errors.New("elevation unavailable")
	// ErrProviderUnavailable indicates the provider is down or timing out.
	ErrProviderUnavailable = errors.New("elevation provider unavailable")
	// ErrUnauthorized indicates the provider rejected the credentials.
	ErrUnauthorized = errors.New("elevation provider rejected credentials")
	// ErrInvalidResponse indicates a malformed or misaligned response.
	ErrInvalidResponse = errors.New("invalid elevation response")
)

// Sampler returns one elevation in meters per coordinate, index-aligned with
// the input.
type Sampler interface {
	Sample(ctx context.Context, coords []polyline.Coordinate) ([]float64, error)
	Name() string
}

// Error provides detailed error information from an elevation provider.
type Error struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Err        error
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

// StatusError maps an HTTP error status to an elevation Error.
func StatusError(provider string, status int, message string) *Error {
	e := &Error{
		Provider:   provider,
		Code:       fmt.Sprintf("HTTP_%d", status),
		Message:    message,
		StatusCode: status,
		Err:        ErrProviderUnavailable,
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		e.Code = "UNAUTHORIZED"
		e.Err = ErrUnauthorized
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("provider returned status %d", status)
	}
	return e
}
