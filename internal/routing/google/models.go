package google

// computeRoutesRequest is the Routes API v2 computeRoutes body.
type computeRoutesRequest struct {
	Origin                   waypoint `json:"origin"`
	Destination              waypoint `json:"destination"`
	TravelMode               string   `json:"travelMode"`
	ComputeAlternativeRoutes bool     `json:"computeAlternativeRoutes"`
	Units                    string   `json:"units"`
}

type waypoint struct {
	Location location `json:"location"`
}

type location struct {
	LatLng latLng `json:"latLng"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// computeRoutesResponse carries only the fields named in the field mask.
type computeRoutesResponse struct {
	Routes []struct {
		DistanceMeters float64 `json:"distanceMeters"`
		Polyline       struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
	} `json:"routes"`
}

// errorResponse is the google.rpc.Status envelope.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
