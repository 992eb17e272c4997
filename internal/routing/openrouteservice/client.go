// Package openrouteservice fetches routes from the OpenRouteService v2
// directions endpoint.
package openrouteservice

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
	ProviderName = "openrouteservice"

	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultTimeout = 10 * time.Second
)

// profiles maps routing profiles to ORS path segments. A profile missing here
// is unsupported.
var profiles = map[routing.Profile]string{
	routing.ProfileWalking: "foot-walking",
	routing.ProfileHiking:  "foot-hiking",
	routing.ProfileCycling: "cycling-regular",
	routing.ProfileDriving: "driving-car",
}

// HTTPDoer executes HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures a Client. Only APIKey is required. When HTTPClient
// is nil a resilient client is built from Timeout, MaxRetries and Registry.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	MaxRetries *uint64
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client implements routing.Provider.
type Client struct {
	apiKey  string
	baseURL string
	doer    HTTPDoer
	logger  zerolog.Logger
}

// NewClient creates an ORS client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		doer:    cfg.HTTPClient,
		logger:  cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Timeout = timeout
		rc.InitialInterval = timeout
		rc.Registry = cfg.Registry
		rc.Logger = cfg.Logger
		if cfg.MaxRetries != nil {
			rc.MaxRetries = *cfg.MaxRetries
		}
		c.doer = resilience.NewClient(rc)
	}
	return c
}

func (c *Client) Name() string { return ProviderName }

// SupportedProfiles lists every profile with an ORS mapping.
func (c *Client) SupportedProfiles() []routing.Profile {
	return []routing.Profile{
		routing.ProfileWalking,
		routing.ProfileHiking,
		routing.ProfileCycling,
		routing.ProfileDriving,
	}
}

// GetRoute returns the first route ORS proposes. Alternatives are ignored.
func (c *Client) GetRoute(ctx context.Context, req routing.RouteRequest) (*routing.Route, error) {
	segment, ok := profiles[req.Profile]
	if !ok {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "UNSUPPORTED_PROFILE",
			Message:  fmt.Sprintf("profile %q has no ORS equivalent", req.Profile),
			Err:      routing.ErrUnsupportedProfile,
		}
	}

	httpReq, err := c.newDirectionsRequest(ctx, segment, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("profile", segment).Msg("requesting directions")

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, routing.TransportError(ProviderName, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, routing.TransportError(ProviderName, fmt.Errorf("reading response body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, payload)
	}

	var directions orsResponse
	if err := json.Unmarshal(payload, &directions); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(directions.Routes) == 0 || directions.Routes[0].Geometry == "" {
		return nil, routing.NoRoute(ProviderName, "")
	}

	best := directions.Routes[0]
	return &routing.Route{
		Polyline:       best.Geometry,
		DistanceMeters: best.Summary.Distance,
		Provider:       ProviderName,
		FetchedAt:      time.Now(),
	}, nil
}

// newDirectionsRequest builds the POST for profile. ORS takes GeoJSON
// [lon, lat] pairs and answers with an encoded polyline geometry.
func (c *Client) newDirectionsRequest(ctx context.Context, segment string, req routing.RouteRequest) (*http.Request, error) {
	body, err := json.Marshal(orsRequest{
		Coordinates: [][]float64{
			{req.Origin.Lon, req.Origin.Lat},
			{req.Destination.Lon, req.Destination.Lat},
		},
		Geometry: true,
		Units:    "m",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	endpoint := c.baseURL + "/v2/directions/" + segment
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

// decodeError maps a non-200 ORS answer onto a routing error. ORS reports
// unroutable points either as 404 or as 400 with its own error code.
func decodeError(status int, payload []byte) error {
	var e orsErrorResponse
	_ = json.Unmarshal(payload, &e)

	switch e.Error.Code {
	case codeRouteNotFound, codePointNotFound:
		return routing.NoRoute(ProviderName, e.Error.Message)
	}
	return routing.StatusError(ProviderName, status, e.Error.Message)
}
