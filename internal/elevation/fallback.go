package elevation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/pkg/polyline"
)

// FallbackSampler tries Primary and, when it fails, Secondary exactly once.
type FallbackSampler struct {
	Primary Sampler
	// Secondary is optional; nil means the primary failure is final.
	Secondary Sampler
	// OnFallback, if set, is called each time the secondary is attempted.
	OnFallback func(ctx context.Context, primary, secondary string)
	Logger     zerolog.Logger
}

// Name reports the primary backend name.
func (f *FallbackSampler) Name() string {
	return f.Primary.Name()
}

// Sample returns the primary's series, or the secondary's if the primary
// fails. When every backend fails the error matches ErrElevationUnavailable
// and still wraps the primary failure.
func (f *FallbackSampler) Sample(ctx context.Context, coords []polyline.Coordinate) ([]float64, error) {
	elevations, primaryErr := f.Primary.Sample(ctx, coords)
	if primaryErr == nil {
		return elevations, nil
	}

	if f.Secondary == nil {
		return nil, fmt.Errorf("%w: %w", ErrElevationUnavailable, primaryErr)
	}

	f.Logger.Warn().Err(primaryErr).
		Str("primary", f.Primary.Name()).
		Str("secondary", f.Secondary.Name()).
		Msg("primary elevation backend failed, falling back")
	if f.OnFallback != nil {
		f.OnFallback(ctx, f.Primary.Name(), f.Secondary.Name())
	}

	elevations, err := f.Secondary.Sample(ctx, coords)
	if err != nil {
		f.Logger.Error().Err(err).
			Str("secondary", f.Secondary.Name()).
			Msg("secondary elevation backend failed")
		return nil, fmt.Errorf("%w: %w", ErrElevationUnavailable, primaryErr)
	}
	return elevations, nil
}
