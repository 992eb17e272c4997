package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/routegrade/routegrade/internal/difficulty"
	"github.com/routegrade/routegrade/pkg/polyline"
)

// BuildGeoJSON returns a FeatureCollection with the sampled route as one
// LineString and one Point per sample. Coordinates are emitted [lon, lat].
func BuildGeoJSON(coords []polyline.Coordinate, elevations []float64, distanceKm, gainM float64, label difficulty.Label) (json.RawMessage, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(coords)+1)}

	if len(coords) >= 2 {
		flat := make([]float64, 0, len(coords)*2)
		for _, c := range coords {
			flat = append(flat, c.Lon, c.Lat)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewLineStringFlat(geom.XY, flat),
			Properties: map[string]any{
				"distance_km":      distanceKm,
				"elevation_gain_m": gainM,
				"difficulty_label": string(label),
			},
		})
	}

	if len(coords) == len(elevations) {
		for i, c := range coords {
			fc.Features = append(fc.Features, &geojson.Feature{
				Geometry: geom.NewPointFlat(geom.XY, []float64{c.Lon, c.Lat}),
				Properties: map[string]any{
					"elevation_m": round(elevations[i], 1),
					"index":       i,
				},
			})
		}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding geojson: %w", err)
	}
	return data, nil
}
