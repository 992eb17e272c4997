// Package mapbox provides a client for the Mapbox Directions API (v5).
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/internal/provider/resilience"
	"github.com/routegrade/routegrade/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "mapbox"

	// DefaultBaseURL is the Mapbox API base URL.
	DefaultBaseURL = "https://api.mapbox.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

var mapboxProfiles = map[routing.Profile]string{
	routing.ProfileWalking: "walking",
	routing.ProfileHiking:  "walking",
	routing.ProfileCycling: "cycling",
	routing.ProfileDriving: "driving",
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Directions client.
type ClientConfig struct {
	AccessToken string
	BaseURL     string
	HTTPClient  HTTPDoer
	Timeout     time.Duration
	// MaxRetries overrides the resilient client's retry count when non-nil.
	MaxRetries *uint64
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client calls /directions/v5/mapbox/{profile}.
type Client struct {
	token      string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

// NewClient creates a new Directions client.
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
		token:      cfg.AccessToken,
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
	}
}

// GetRoute retrieves the primary route between two points.
func (c *Client) GetRoute(ctx context.Context, req routing.RouteRequest) (*routing.Route, error) {
	profile, ok := mapboxProfiles[req.Profile]
	if !ok {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "UNSUPPORTED_PROFILE",
			Message:  fmt.Sprintf("profile %q has no Mapbox equivalent", req.Profile),
			Err:      routing.ErrUnsupportedProfile,
		}
	}

	// Mapbox takes "lon,lat;lon,lat".
	coords := fmt.Sprintf("%f,%f;%f,%f",
		req.Origin.Lon, req.Origin.Lat,
		req.Destination.Lon, req.Destination.Lat)

	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("geometries", "polyline")
	q.Set("overview", "full")
	q.Set("steps", "false")

	u := fmt.Sprintf("%s/directions/v5/mapbox/%s/%s?%s", c.baseURL, profile, coords, q.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("profile", profile).
		Msg("requesting directions from Mapbox")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, routing.TransportError(ProviderName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, routing.TransportError(ProviderName, fmt.Errorf("reading response body: %w", err))
	}

	var dir directionsResponse
	_ = json.Unmarshal(respBody, &dir)

	if resp.StatusCode != http.StatusOK {
		// Unroutable coordinates come back as 422 with code NoRoute or NoSegment.
		if dir.Code == "NoRoute" || dir.Code == "NoSegment" {
			return nil, routing.NoRoute(ProviderName, dir.Message)
		}
		return nil, routing.StatusError(ProviderName, resp.StatusCode, dir.Message)
	}

	switch dir.Code {
	case "Ok":
	case "NoRoute", "NoSegment":
		return nil, routing.NoRoute(ProviderName, dir.Message)
	default:
		return nil, fmt.Errorf("decoding response: unexpected code %q", dir.Code)
	}

	if len(dir.Routes) == 0 || dir.Routes[0].Geometry == "" {
		return nil, routing.NoRoute(ProviderName, "")
	}

	first := dir.Routes[0]
	return &routing.Route{
		Polyline:       first.Geometry,
		DistanceMeters: first.Distance,
		Provider:       ProviderName,
		FetchedAt:      time.Now(),
	}, nil
}
