package models

import (
	"github.com/routegrade/routegrade/internal/difficulty"
	"github.com/routegrade/routegrade/pkg/polyline"
)

// EstimateRequest is the body of POST /v1/difficulty:estimate. Metrics are
// optional measured values that take precedence over Meta.
type EstimateRequest struct {
	Meta    difficulty.Input     `json:"meta"`
	Metrics difficulty.Overrides `json:"metrics"`
}

// EstimateResponse is the scoring result without any route measurements.
type EstimateResponse struct {
	Label       difficulty.Label `json:"label"`
	IntensityKm float64          `json:"S_km"`
	Notes       []string         `json:"notes"`
}

// RouteDifficultyRequest is the body of POST /v1/routes:difficulty.
type RouteDifficultyRequest struct {
	Origin         *polyline.Coordinate `json:"origin"`
	Destination    *polyline.Coordinate `json:"destination"`
	Profile        string               `json:"profile,omitempty"`
	Meta           difficulty.Input     `json:"meta"`
	IncludeGeoJSON bool                 `json:"includeGeojson,omitempty"`
}

// Validate returns one FieldError per missing field.
func (r RouteDifficultyRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Origin == nil {
		errs = append(errs, FieldError{Field: "origin", Message: "origin is required", Code: "required"})
	}
	if r.Destination == nil {
		errs = append(errs, FieldError{Field: "destination", Message: "destination is required", Code: "required"})
	}
	return errs
}
