package openrouteservice

type orsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions bool        `json:"instructions"`
	Geometry     bool        `json:"geometry"`
	Elevation    bool        `json:"elevation"`
	Units        string      `json:"units"`
}

type orsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"` // meters
			Duration float64 `json:"duration"` // seconds
		} `json:"summary"`
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

// orsErrorResponse is the error envelope. Some gateway errors carry a plain
// string instead of an object, which leaves Code at zero.
type orsErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const (
	codeRouteNotFound = 2009
	codePointNotFound = 2010
)
