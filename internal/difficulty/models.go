// Package difficulty classifies the physical exertion of a route or point of
// interest into EASY, MODERATE, HARD or EXTREME.
//
// The score is an equivalent intensity distance in kilometers (S_km): raw
// distance plus one kilometer per 100 m of climbing, scaled by altitude and
// environmental risk multipliers. It measures effort, not technical grade.
package difficulty

import (
	"strings"
)

// Label is a difficulty class.
type Label string

const (
	LabelEasy     Label = "EASY"
	LabelModerate Label = "MODERATE"
	LabelHard     Label = "HARD"
	LabelExtreme  Label = "EXTREME"
)

// levels is the ordered scale used for bumping.
var levels = []Label{LabelEasy, LabelModerate, LabelHard, LabelExtreme}

// ParseLabel matches s against the four labels, ignoring case and
// surrounding whitespace.
func ParseLabel(s string) (Label, bool) {
	up := Label(strings.ToUpper(strings.TrimSpace(s)))
	for _, l := range levels {
		if up == l {
			return l, true
		}
	}
	return "", false
}

// Bump returns the next level up. EXTREME stays EXTREME.
func (l Label) Bump() Label {
	for i, lv := range levels {
		if lv == l && i < len(levels)-1 {
			return levels[i+1]
		}
	}
	return l
}

// Input carries the descriptive attributes of the place being scored. Every
// field is optional; absent numeric attributes simply skip the correction
// that needs them.
type Input struct {
	TrailDifficulty string `json:"trailDifficulty,omitempty"`
	Category        string `json:"category,omitempty"`
	AccessType      string `json:"accessType,omitempty"`
	SubCategory     string `json:"subCategory,omitempty"`
	VisitDuration   string `json:"visitDuration,omitempty"`
	TypicalStay     string `json:"typicalStay,omitempty"`

	ElevationMeters *float64 `json:"elevationMeters,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`

	HasAcclimatization *bool `json:"hasAcclimatization,omitempty"`
	// AvgSleepElevation is the mean sleeping elevation over the last three days.
	AvgSleepElevation *float64 `json:"avgSleepElevation,omitempty"`

	ExposureHours     *float64 `json:"exposureHours,omitempty"`
	FeelsLikeTemp     *float64 `json:"feelsLikeTemp,omitempty"`
	ColdDurationHours *float64 `json:"coldDurationHours,omitempty"`
	LoadWeightKg      *float64 `json:"loadWeightKg,omitempty"`
}

// Overrides are measured route metrics that take precedence over values
// inferred from Input.
type Overrides struct {
	DistanceKm *float64 `json:"distance_km,omitempty"`
	GainM      *float64 `json:"gain_m,omitempty"`
	MaxElevM   *float64 `json:"max_elev_m,omitempty"`
	SlopeAvg   *float64 `json:"slope_avg,omitempty"`
}

// Result is the outcome of Estimate. Notes trace every rule that fired, in
// evaluation order.
type Result struct {
	Label       Label    `json:"label"`
	IntensityKm float64  `json:"S_km"`
	Notes       []string `json:"notes"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
