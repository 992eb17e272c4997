// Package routemetrics derives distance, cumulative climb and average slope
// from a route geometry and its sampled elevation profile.
package routemetrics

import (
	"errors"
	"fmt"

	"github.com/routegrade/routegrade/pkg/polyline"
)

const (
	// SmoothingWindow is the centered moving-average width applied to the
	// elevation profile before gain is accumulated.
	SmoothingWindow = 5

	// GainThresholdM is the smallest step between consecutive smoothed
	// samples that counts as climbing.
	GainThresholdM = 3.0
)

// ErrMisaligned is returned when the elevation series does not line up with
// the resampled geometry.
var ErrMisaligned = errors.New("elevation series does not match sampled geometry")

// Metrics summarizes a route.
type Metrics struct {
	DistanceKm     float64 `json:"distance_km"`
	ElevationGainM float64 `json:"elevation_gain_m"`
	SlopeAvg       float64 `json:"slope_avg"`
}

// Calculate measures distance on raw and climbing on elevations, which must
// be index-aligned with resampled.
func Calculate(raw, resampled []polyline.Coordinate, elevations []float64) (Metrics, error) {
	if len(elevations) != len(resampled) {
		return Metrics{}, fmt.Errorf("%w: %d elevations for %d points", ErrMisaligned, len(elevations), len(resampled))
	}

	distanceM := polyline.Length(raw)
	gainM := ElevationGain(MovingAverage(elevations, SmoothingWindow), GainThresholdM)

	var slope float64
	if distanceM > 0 {
		slope = gainM / distanceM
	}

	return Metrics{
		DistanceKm:     distanceM / 1000,
		ElevationGainM: gainM,
		SlopeAvg:       slope,
	}, nil
}

// MovingAverage returns the centered moving average of values with the given
// window, shrinking the window at both ends. Series shorter than the window
// are returned as a copy, unsmoothed.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if len(values) < window || window < 2 {
		copy(out, values)
		return out
	}

	half := window / 2
	for i := range values {
		start := max(0, i-half)
		end := min(len(values), i+half+1)

		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

// ElevationGain sums the positive steps strictly greater than thresholdM.
func ElevationGain(profile []float64, thresholdM float64) float64 {
	var gain float64
	for i := 1; i < len(profile); i++ {
		if d := profile[i] - profile[i-1]; d > thresholdM {
			gain += d
		}
	}
	return gain
}
