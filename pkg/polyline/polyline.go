// Package polyline implements the Google encoded polyline format and the
// spherical geodesy helpers used to measure and resample route geometry.
//
// Format reference: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"
)

// precision is the fixed-point scale of the encoded format (5 decimals).
const precision = 1e5

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Decode turns an encoded polyline into coordinates. An empty string decodes
// to nil. Truncated input yields the points that were complete.
func Decode(encoded string) []Coordinate {
	if encoded == "" {
		return nil
	}

	coords := make([]Coordinate, 0, len(encoded)/4)
	var lat, lon int
	pos := 0

	for pos < len(encoded) {
		dLat, next, ok := readValue(encoded, pos)
		if !ok {
			break
		}
		dLon, next, ok := readValue(encoded, next)
		if !ok {
			break
		}
		pos = next

		lat += dLat
		lon += dLon
		coords = append(coords, Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}

	return coords
}

// readValue reads one zig-zag encoded delta starting at pos. ok is false when
// the input ends in the middle of a value.
func readValue(encoded string, pos int) (delta, next int, ok bool) {
	var result, shift int

	for pos < len(encoded) {
		chunk := int(encoded[pos]) - 63
		pos++
		result |= (chunk & 0x1f) << shift
		shift += 5
		if chunk < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), pos, true
			}
			return result >> 1, pos, true
		}
	}

	return 0, pos, false
}

// Encode is the inverse of Decode. Coordinates are rounded to 5 decimals.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(coords)*6)
	var prevLat, prevLon int

	for _, c := range coords {
		lat := int(math.Round(c.Lat * precision))
		lon := int(math.Round(c.Lon * precision))

		buf = appendValue(buf, lat-prevLat)
		buf = appendValue(buf, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(buf)
}

func appendValue(buf []byte, v int) []byte {
	u := v << 1
	if v < 0 {
		u = ^u
	}

	for u >= 0x20 {
		buf = append(buf, byte((u&0x1f)|0x20)+63)
		u >>= 5
	}
	return append(buf, byte(u)+63)
}
