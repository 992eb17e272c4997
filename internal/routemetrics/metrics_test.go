package routemetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routegrade/routegrade/pkg/polyline"
)

func TestMovingAverage(t *testing.T) {
	t.Run("shrinking window at the edges", func(t *testing.T) {
		got := MovingAverage([]float64{0, 10, 20, 30, 40, 50}, 5)
		expected := []float64{10, 15, 20, 30, 35, 40}
		assert.InDeltaSlice(t, expected, got, 1e-9)
	})

	t.Run("short series left unsmoothed", func(t *testing.T) {
		in := []float64{100, 0, 100}
		got := MovingAverage(in, 5)
		assert.Equal(t, in, got)

		got[0] = -1
		assert.Equal(t, 100.0, in[0], "input must not be aliased")
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, MovingAverage(nil, 5))
	})
}

func TestElevationGain(t *testing.T) {
	tests := []struct {
		name     string
		profile  []float64
		expected float64
	}{
		{"steady climb", []float64{100, 110, 120, 130}, 30},
		{"descents ignored", []float64{100, 150, 120, 170}, 100},
		{"small steps ignored", []float64{100, 103, 106, 109}, 0},
		{"threshold is strict", []float64{0, 3, 6, 9.5}, 3.5},
		{"single sample", []float64{42}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ElevationGain(tt.profile, GainThresholdM), 1e-9)
		})
	}
}

func TestCalculate(t *testing.T) {
	raw := []polyline.Coordinate{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.01}}
	resampled := polyline.Resample(raw, 100)
	require.Len(t, resampled, 13)

	elevations := make([]float64, len(resampled))
	for i := range elevations {
		elevations[i] = 1000 + float64(i)*10
	}

	m, err := Calculate(raw, resampled, elevations)
	require.NoError(t, err)

	assert.InDelta(t, 1.11195, m.DistanceKm, 1e-5)
	// smoothing pulls the ends in to 1010 and 1110; every step still
	// clears the threshold
	assert.InDelta(t, 100.0, m.ElevationGainM, 1e-9)
	assert.InDelta(t, 100.0/1111.95, m.SlopeAvg, 1e-6)
}

func TestCalculate_FlatRoute(t *testing.T) {
	raw := []polyline.Coordinate{{Lat: 46, Lon: 7}, {Lat: 46.001, Lon: 7}}
	resampled := polyline.Resample(raw, 30)

	m, err := Calculate(raw, resampled, make([]float64, len(resampled)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.ElevationGainM)
	assert.Equal(t, 0.0, m.SlopeAvg)
}

func TestCalculate_ZeroDistance(t *testing.T) {
	p := polyline.Coordinate{Lat: 1, Lon: 1}
	m, err := Calculate([]polyline.Coordinate{p, p}, []polyline.Coordinate{p}, []float64{500})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.DistanceKm)
	assert.Equal(t, 0.0, m.SlopeAvg)
}

func TestCalculate_Misaligned(t *testing.T) {
	raw := []polyline.Coordinate{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.01}}
	_, err := Calculate(raw, raw, []float64{1})
	assert.ErrorIs(t, err, ErrMisaligned)
}
