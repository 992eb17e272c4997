package difficulty

import (
	"fmt"
)

type anchor struct {
	elevationM float64
	multiplier float64
}

// altitudeAnchors must stay sorted by elevation.
var altitudeAnchors = []anchor{
	{1500, 1.00},
	{2500, 1.05},
	{3000, 1.10},
	{3500, 1.20},
	{4000, 1.30},
	{4500, 1.45},
	{5000, 1.60},
	{5500, 1.80},
	{6000, 2.10},
	{7000, 2.50},
}

const (
	maxTotalMultiplier = 3.0

	acclimatizationElevationM = 2500.0
	acclimatizationMultiplier = 1.10

	longExposureHours     = 8.0
	exposureMultiplier    = 1.05
	exposurePaceKmPerHour = 3.5

	severeColdC     = -10.0
	severeColdHours = 3.0
	coldMultiplier  = 1.05

	heavyLoadKg    = 12.0
	loadMultiplier = 1.05

	highLatitudeDeg        = 60.0
	highLatitudeMultiplier = 1.2
)

// AltitudeMultiplier interpolates linearly between the altitude anchors.
// It is 1.0 below the first anchor and clamped to the last anchor above it.
func AltitudeMultiplier(elevationM float64) float64 {
	first, last := altitudeAnchors[0], altitudeAnchors[len(altitudeAnchors)-1]
	if elevationM <= first.elevationM {
		return first.multiplier
	}
	if elevationM >= last.elevationM {
		return last.multiplier
	}
	for i := 1; i < len(altitudeAnchors); i++ {
		hi := altitudeAnchors[i]
		if elevationM > hi.elevationM {
			continue
		}
		lo := altitudeAnchors[i-1]
		f := (elevationM - lo.elevationM) / (hi.elevationM - lo.elevationM)
		return lo.multiplier + f*(hi.multiplier-lo.multiplier)
	}
	return last.multiplier
}

// riskCorrection is one optional multiplier. It returns ok=false when its
// condition does not hold or its inputs are missing.
type riskCorrection func(f facts) (multiplier float64, note string, ok bool)

var riskCorrections = []riskCorrection{
	noAcclimatization,
	longExposure,
	severeCold,
	heavyLoad,
}

// noAcclimatization only applies at elevations where acclimatization
// matters; a low route is never penalized for a missing flag.
func noAcclimatization(f facts) (float64, string, bool) {
	if !f.hasElevation || f.elevationM < acclimatizationElevationM {
		return 0, "", false
	}
	if f.in.HasAcclimatization != nil && *f.in.HasAcclimatization {
		return 0, "", false
	}
	if f.in.AvgSleepElevation != nil && *f.in.AvgSleepElevation >= acclimatizationElevationM {
		return 0, "", false
	}
	return acclimatizationMultiplier, fmt.Sprintf("acclimatization: none ×%.2f", acclimatizationMultiplier), true
}

func longExposure(f facts) (float64, string, bool) {
	hours := f.distanceKm / exposurePaceKmPerHour
	if f.in.ExposureHours != nil {
		hours = *f.in.ExposureHours
	}
	if hours <= longExposureHours {
		return 0, "", false
	}
	return exposureMultiplier, fmt.Sprintf("exposure: %.1fh ×%.2f", hours, exposureMultiplier), true
}

func severeCold(f facts) (float64, string, bool) {
	if f.in.FeelsLikeTemp == nil || f.in.ColdDurationHours == nil {
		return 0, "", false
	}
	if *f.in.FeelsLikeTemp >= severeColdC || *f.in.ColdDurationHours <= severeColdHours {
		return 0, "", false
	}
	return coldMultiplier, fmt.Sprintf("cold: feels-like %.0f°C for %.1fh ×%.2f",
		*f.in.FeelsLikeTemp, *f.in.ColdDurationHours, coldMultiplier), true
}

func heavyLoad(f facts) (float64, string, bool) {
	if f.in.LoadWeightKg == nil || *f.in.LoadWeightKg <= heavyLoadKg {
		return 0, "", false
	}
	return loadMultiplier, fmt.Sprintf("load: %.1fkg ×%.2f", *f.in.LoadWeightKg, loadMultiplier), true
}
