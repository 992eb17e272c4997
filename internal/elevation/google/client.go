// Package google samples elevations along a path with the Google Elevation API.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/routegrade/routegrade/internal/elevation"
	"github.com/routegrade/routegrade/internal/provider/resilience"
	"github.com/routegrade/routegrade/pkg/polyline"
)

const (
	// ProviderName identifies this elevation provider.
	ProviderName = "google-elevation"

	// DefaultBaseURL is the Elevation API base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// MaxSamplesPerRequest is the API's per-request sample limit.
	MaxSamplesPerRequest = 512
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Elevation client.
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

// Client implements elevation.Sampler with path queries.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

type elevationResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Elevation float64 `json:"elevation"`
	} `json:"results"`
}

// NewClient creates a new Elevation API client.
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

// Sample returns one elevation per coordinate. Paths longer than
// MaxSamplesPerRequest are split into balanced batches queried in order.
func (c *Client) Sample(ctx context.Context, coords []polyline.Coordinate) ([]float64, error) {
	if len(coords) == 0 {
		return []float64{}, nil
	}

	out := make([]float64, 0, len(coords))
	for _, batch := range batches(coords, MaxSamplesPerRequest) {
		values, err := c.sampleBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return out, nil
}

// batches splits coords into chunks of at most limit points whose sizes
// differ by at most one, so no chunk degenerates to a single point unless
// the whole input is one point.
func batches(coords []polyline.Coordinate, limit int) [][]polyline.Coordinate {
	n := len(coords)
	count := (n + limit - 1) / limit
	out := make([][]polyline.Coordinate, 0, count)
	start := 0
	for i := range count {
		size := n / count
		if i < n%count {
			size++
		}
		out = append(out, coords[start:start+size])
		start += size
	}
	return out
}

func (c *Client) sampleBatch(ctx context.Context, coords []polyline.Coordinate) ([]float64, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	// A path needs two vertices.
	if len(coords) == 1 {
		q.Set("locations", "enc:"+polyline.Encode(coords))
	} else {
		q.Set("path", "enc:"+polyline.Encode(coords))
		q.Set("samples", strconv.Itoa(len(coords)))
	}

	u := c.baseURL + "/maps/api/elevation/json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().Int("samples", len(coords)).Msg("requesting elevation path")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &elevation.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach elevation provider: " + err.Error(),
			Err:      elevation.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var er elevationResponse
	_ = json.Unmarshal(body, &er)

	if resp.StatusCode != http.StatusOK {
		return nil, elevation.StatusError(ProviderName, resp.StatusCode, er.ErrorMessage)
	}
	if er.Status != "OK" {
		return nil, apiStatusError(er.Status, er.ErrorMessage)
	}
	if len(er.Results) != len(coords) {
		return nil, &elevation.Error{
			Provider: ProviderName,
			Code:     "MISALIGNED",
			Message:  fmt.Sprintf("requested %d samples, got %d", len(coords), len(er.Results)),
			Err:      elevation.ErrInvalidResponse,
		}
	}

	values := make([]float64, len(er.Results))
	for i, r := range er.Results {
		values[i] = r.Elevation
	}
	return values, nil
}

// apiStatusError maps the body-level status the API reports with HTTP 200.
func apiStatusError(status, message string) *elevation.Error {
	if status == "" {
		status = "UNKNOWN"
	}
	e := &elevation.Error{
		Provider: ProviderName,
		Code:     status,
		Message:  message,
		Err:      elevation.ErrProviderUnavailable,
	}
	switch status {
	case "REQUEST_DENIED":
		e.Err = elevation.ErrUnauthorized
		if e.Message == "" {
			e.Message = "request denied; check that the Elevation API is enabled for this key"
		}
	case "INVALID_REQUEST", "DATA_NOT_AVAILABLE":
		e.Err = elevation.ErrInvalidResponse
	}
	if e.Message == "" {
		e.Message = "elevation API status " + status
	}
	return e
}
