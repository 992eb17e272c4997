package routing

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/pkg/polyline"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger
}

// Service validates requests and delegates to a Provider. It holds no state
// between calls.
type Service struct {
	provider Provider
	logger   zerolog.Logger
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// GetRoute validates req, fetches the route and decodes its geometry.
func (s *Service) GetRoute(ctx context.Context, req RouteRequest) (*Route, error) {
	if err := ValidateCoordinate(req.Origin); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      err,
		}
	}
	if err := ValidateCoordinate(req.Destination); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      err,
		}
	}
	if req.Profile == "" {
		req.Profile = ProfileWalking
	}
	if !slices.Contains(s.provider.SupportedProfiles(), req.Profile) {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "UNSUPPORTED_PROFILE",
			Message:  fmt.Sprintf("profile %q is not supported", req.Profile),
			Err:      ErrUnsupportedProfile,
		}
	}

	s.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Str("profile", string(req.Profile)).
		Str("provider", s.provider.Name()).
		Msg("fetching route from provider")

	route, err := s.provider.GetRoute(ctx, req)
	if err != nil {
		var rerr *Error
		retryable := errors.As(err, &rerr) && rerr.IsRetryable()
		s.logger.Error().Err(err).
			Str("provider", s.provider.Name()).
			Str("profile", string(req.Profile)).
			Bool("retryable", retryable).
			Msg("failed to fetch route")
		return nil, err
	}

	if route.Coordinates == nil {
		route.Coordinates = polyline.Decode(route.Polyline)
	}

	s.logger.Debug().
		Int("points", len(route.Coordinates)).
		Float64("distance_m", route.DistanceMeters).
		Msg("received route")

	return route, nil
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
