// Package google provides a client for the Google Routes API (v2).
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/internal/provider/resilience"
	"github.com/routegrade/routegrade/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "google"

	// DefaultBaseURL is the Routes API base URL.
	DefaultBaseURL = "https://routes.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	fieldMask = "routes.distanceMeters,routes.polyline.encodedPolyline"
)

var travelModes = map[routing.Profile]string{
	routing.ProfileWalking: "WALK",
	routing.ProfileHiking:  "WALK",
	routing.ProfileCycling: "BICYCLE",
	routing.ProfileDriving: "DRIVE",
	routing.ProfileTransit: "TRANSIT",
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Routes client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	// MaxRetries overrides the resilient client's retry count when non-nil.
	MaxRetries *uint64
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client calls directions/v2:computeRoutes.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Routes API client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.InitialInterval = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		if cfg.MaxRetries != nil {
			clientCfg.MaxRetries = *cfg.MaxRetries
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// SupportedProfiles returns the supported routing profiles.
func (c *Client) SupportedProfiles() []routing.Profile {
	return []routing.Profile{
		routing.ProfileWalking,
		routing.ProfileHiking,
		routing.ProfileCycling,
		routing.ProfileDriving,
		routing.ProfileTransit,
	}
}

// GetRoute retrieves the primary route between two points.
func (c *Client) GetRoute(ctx context.Context, req routing.RouteRequest) (*routing.Route, error) {
	mode, ok := travelModes[req.Profile]
	if !ok {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "UNSUPPORTED_PROFILE",
			Message:  fmt.Sprintf("profile %q has no travel mode", req.Profile),
			Err:      routing.ErrUnsupportedProfile,
		}
	}

	body, err := json.Marshal(computeRoutesRequest{
		Origin:                   waypoint{Location: location{LatLng: latLng{Latitude: req.Origin.Lat, Longitude: req.Origin.Lon}}},
		Destination:              waypoint{Location: location{LatLng: latLng{Latitude: req.Destination.Lat, Longitude: req.Destination.Lon}}},
		TravelMode:               mode,
		ComputeAlternativeRoutes: false,
		Units:                    "METRIC",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/directions/v2:computeRoutes"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	c.logger.Debug().
		Str("travel_mode", mode).
		Msg("requesting route from Google")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, routing.TransportError(ProviderName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, routing.TransportError(ProviderName, fmt.Errorf("reading response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var gErr errorResponse
		_ = json.Unmarshal(respBody, &gErr)
		return nil, routing.StatusError(ProviderName, resp.StatusCode, gErr.Error.Message)
	}

	var routesResp computeRoutesResponse
	if err := json.Unmarshal(respBody, &routesResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	// An empty object is how the API reports "no route".
	if len(routesResp.Routes) == 0 || routesResp.Routes[0].Polyline.EncodedPolyline == "" {
		return nil, routing.NoRoute(ProviderName, "")
	}

	first := routesResp.Routes[0]
	return &routing.Route{
		Polyline:       first.Polyline.EncodedPolyline,
		DistanceMeters: first.DistanceMeters,
		Provider:       ProviderName,
		FetchedAt:      time.Now(),
	}, nil
}
