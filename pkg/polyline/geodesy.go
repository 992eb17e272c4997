package polyline

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean spherical radius used for all distances.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Length returns the summed segment distance of coords in meters.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// Resample returns points spaced stepMeters apart along coords, measured
// cumulatively across segment boundaries. Positions are interpolated
// linearly in lat/lon inside each segment.
//
// The first input point is always the first output point and the last input
// point is appended unless the final sample already equals it. Inputs with
// fewer than two points, or a non-positive step, are returned unchanged.
func Resample(coords []Coordinate, stepMeters float64) []Coordinate {
	if len(coords) < 2 || stepMeters <= 0 {
		return coords
	}

	out := make([]Coordinate, 0, int(Length(coords)/stepMeters)+2)
	out = append(out, coords[0])

	// offset of the next sample from the start of the current segment
	next := stepMeters

	for i := 1; i < len(coords); i++ {
		a, b := coords[i-1], coords[i]
		seg := Distance(a, b)
		if seg == 0 {
			continue
		}

		pos := next
		for pos <= seg {
			f := pos / seg
			out = append(out, Coordinate{
				Lat: a.Lat + f*(b.Lat-a.Lat),
				Lon: a.Lon + f*(b.Lon-a.Lon),
			})
			pos += stepMeters
		}
		next = pos - seg
	}

	if last := coords[len(coords)-1]; out[len(out)-1] != last {
		out = append(out, last)
	}

	return out
}
