package difficulty

import (
	"fmt"
	"math"
	"strings"
)

// Intensity thresholds on S_km.
const (
	thresholdEasy     = 8.0
	thresholdModerate = 16.0
	thresholdHard     = 30.0

	steepSlope = 0.15

	minInferredKm = 0.2
)

var accessPaceKmPerHour = map[string]float64{
	"WALKING":   4.0,
	"HIKING":    3.5,
	"VEHICLE":   30.0,
	"CABLE_CAR": 5.0,
}

var categoryPaceKmPerHour = map[string]float64{
	"ATTRACTION": 3.0,
	"RESTAURANT": 0.5,
	"HOTEL":      0.0,
}

const defaultPaceKmPerHour = 3.5

// facts are the resolved inputs every stage reads.
type facts struct {
	in           Input
	category     string
	accessType   string
	distanceKm   float64
	gainM        float64
	elevationM   float64
	hasElevation bool
	slope        *float64
}

// score is the accumulator threaded through the stages. Stages return a new
// value and never mutate the one they receive.
type score struct {
	label Label
	km    float64
	notes []string
}

func (s score) with(label Label, km float64, note string) score {
	notes := make([]string, len(s.notes), len(s.notes)+1)
	copy(notes, s.notes)
	if note != "" {
		notes = append(notes, note)
	}
	return score{label: label, km: km, notes: notes}
}

type stage func(f facts, s score) score

// stages run in this order after distance has been resolved.
var stages = []stage{
	baseIntensity,
	applyMultipliers,
	applyHighLatitude,
	classify,
	bumpForSlope,
	floorMotorizedAccess,
	floorSubCategory,
}

// Estimate scores in, preferring the measured values in o where present. It
// always returns a valid Result.
func Estimate(in Input, o Overrides) Result {
	if label, ok := ParseLabel(in.TrailDifficulty); ok {
		return Result{Label: label, IntensityKm: 0, Notes: []string{"use: trailDifficulty"}}
	}

	f := facts{
		in:         in,
		category:   normalize(in.Category),
		accessType: normalize(in.AccessType),
		slope:      o.SlopeAvg,
	}

	var s score
	switch {
	case o.DistanceKm != nil:
		f.distanceKm = *o.DistanceKm
	default:
		km, note, ok := inferDistanceKm(in, f.category, f.accessType)
		if !ok {
			return Result{
				Label:       defaultLabelForCategory(f.category),
				IntensityKm: 0,
				Notes:       []string{"fallback: category default"},
			}
		}
		f.distanceKm = km
		s = s.with(s.label, 0, note)
	}

	if o.GainM != nil {
		f.gainM = *o.GainM
	}
	// A zero measured maximum falls back to the caller's elevation, so a
	// series of failed tiles does not erase a known altitude.
	switch {
	case o.MaxElevM != nil && (*o.MaxElevM != 0 || in.ElevationMeters == nil):
		f.elevationM, f.hasElevation = *o.MaxElevM, true
	case in.ElevationMeters != nil:
		f.elevationM, f.hasElevation = *in.ElevationMeters, true
	}

	for _, st := range stages {
		s = st(f, s)
	}

	notes := s.notes
	if notes == nil {
		notes = []string{}
	}
	return Result{Label: s.label, IntensityKm: round(s.km, 2), Notes: notes}
}

func baseIntensity(f facts, s score) score {
	return s.with(s.label, f.distanceKm+f.gainM/100, "")
}

func applyMultipliers(f facts, s score) score {
	total := 1.0
	if f.hasElevation {
		if m := AltitudeMultiplier(f.elevationM); m > 1 {
			total *= m
			s = s.with(s.label, s.km, fmt.Sprintf("altitude: %.0fm ×%.2f", f.elevationM, m))
		}
	}

	for _, rc := range riskCorrections {
		if m, note, ok := rc(f); ok {
			total *= m
			s = s.with(s.label, s.km, note)
		}
	}

	if total > maxTotalMultiplier {
		return s.with(s.label, s.km*maxTotalMultiplier,
			fmt.Sprintf("multiplier: ×%.2f capped at ×%.2f", total, maxTotalMultiplier))
	}
	if total > 1 {
		return s.with(s.label, s.km*total, fmt.Sprintf("multiplier: total ×%.2f", total))
	}
	return s
}

// applyHighLatitude runs after the cap and is not bounded by it.
func applyHighLatitude(f facts, s score) score {
	if f.in.Latitude == nil || math.Abs(*f.in.Latitude) < highLatitudeDeg {
		return s
	}
	return s.with(s.label, s.km*highLatitudeMultiplier,
		fmt.Sprintf("latitude: %.1f° ×%.1f", *f.in.Latitude, highLatitudeMultiplier))
}

func classify(_ facts, s score) score {
	var label Label
	switch {
	case s.km <= thresholdEasy:
		label = LabelEasy
	case s.km <= thresholdModerate:
		label = LabelModerate
	case s.km <= thresholdHard:
		label = LabelHard
	default:
		label = LabelExtreme
	}
	return s.with(label, s.km, "")
}

func bumpForSlope(f facts, s score) score {
	var slope float64
	switch {
	case f.slope != nil:
		slope = *f.slope
	case f.distanceKm > 0 && f.gainM > 0:
		slope = f.gainM / (f.distanceKm * 1000)
	default:
		return s
	}
	if slope < steepSlope {
		return s
	}
	return s.with(s.label.Bump(), s.km, fmt.Sprintf("slope: bump one level (≥%.0f%%)", steepSlope*100))
}

// floorMotorizedAccess forces EASY for vehicle and cable car access, even
// when the computed label is higher.
func floorMotorizedAccess(f facts, s score) score {
	if f.accessType != "VEHICLE" && f.accessType != "CABLE_CAR" {
		return s
	}
	if s.label == LabelEasy {
		return s
	}
	return s.with(LabelEasy, s.km, "accessType: vehicle/cable_car → EASY")
}

func floorSubCategory(f facts, s score) score {
	sub := strings.ToLower(strings.TrimSpace(f.in.SubCategory))
	if sub != "glacier" && sub != "volcano" {
		return s
	}
	if s.label != LabelEasy {
		return s
	}
	return s.with(LabelModerate, s.km, fmt.Sprintf("subCategory: %s → at least MODERATE", sub))
}

// inferDistanceKm estimates distance from the visit duration and a pace
// chosen by access type, falling back to category.
func inferDistanceKm(in Input, category, accessType string) (float64, string, bool) {
	hours, ok := visitHours(in)
	if !ok {
		return 0, "", false
	}

	pace, ok := accessPaceKmPerHour[accessType]
	if !ok {
		pace, ok = categoryPaceKmPerHour[category]
		if !ok {
			pace = defaultPaceKmPerHour
		}
	}

	ceiling := 15.0
	if category == "RESTAURANT" || category == "HOTEL" {
		ceiling = 3.0
	}
	km := math.Max(minInferredKm, math.Min(hours*pace, ceiling))

	return km, fmt.Sprintf("distance: inferred %.1fkm from %.1fh at %.1fkm/h", km, hours, pace), true
}

func defaultLabelForCategory(category string) Label {
	switch category {
	case "RESTAURANT", "HOTEL", "SHOPPING":
		return LabelEasy
	default:
		return LabelModerate
	}
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
