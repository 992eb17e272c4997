package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned when the provider's circuit breaker rejects the call.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2
	defaultMaxBackoff = 60 * time.Second
)

// ClientConfig configures a resilient provider client.
type ClientConfig struct {
	// Name identifies the provider in the circuit breaker and the registry.
	Name string

	// Timeout bounds each individual HTTP attempt.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Zero
	// disables retrying; DefaultClientConfig uses 2.
	MaxRetries uint64

	// InitialInterval is the first backoff delay. Subsequent delays grow
	// exponentially.
	// Default: Timeout
	InitialInterval time.Duration

	// MaxInterval caps a single backoff delay.
	// Default: 60 seconds
	MaxInterval time.Duration

	// CircuitBreaker overrides DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig

	// Registry, when set, receives the client and its success/failure history.
	Registry *Registry

	// Transport replaces http.DefaultTransport, mainly for tests.
	Transport http.RoundTripper

	Logger zerolog.Logger
}

// DefaultClientConfig returns the retry policy used for route and elevation
// providers: two retries, backoff starting at the request timeout.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         defaultTimeout,
		MaxRetries:      defaultMaxRetries,
		InitialInterval: defaultTimeout,
		MaxInterval:     defaultMaxBackoff,
		CircuitBreaker:  &cb,
		Logger:          zerolog.Nop(),
	}
}

// Client executes provider requests behind a circuit breaker, retrying
// network errors and 5xx responses. 4xx responses are returned to the caller
// on the first attempt.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	registry       *Registry
	logger         zerolog.Logger
	config         ClientConfig
}

// NewClient creates a client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = cfg.Timeout
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = defaultMaxBackoff
	}

	cbCfg := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbCfg = *cfg.CircuitBreaker
	}
	if cbCfg.OnStateChange == nil {
		logger := cfg.Logger
		cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		}
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		circuitBreaker: NewCircuitBreaker[*http.Response](cbCfg), //nolint:bodyclose // type param, not response
		registry:       cfg.Registry,
		logger:         cfg.Logger,
		config:         cfg,
	}

	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the provider name the client was configured with.
func (c *Client) Name() string {
	return c.config.Name
}

// Do executes req using its own context.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext executes req with retries. When retries are exhausted on a
// 5xx the last response is returned with a nil error so the caller can map
// the status.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var lastResp *http.Response

	operation := func() error {
		if lastResp != nil {
			_ = lastResp.Body.Close()
			lastResp = nil
		}

		attempt, err := c.cloneRequest(ctx, req)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, err := c.httpClient.Do(attempt)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				lastResp = resp
			}
			return err
		}

		lastResp = resp
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Debug().
			Err(err).
			Str("provider", c.config.Name).
			Dur("backoff", wait).
			Msg("retrying provider request")
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err != nil {
		c.recordFailure(err)
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}

	if lastResp.StatusCode >= 400 {
		c.recordFailure(fmt.Errorf("status %d", lastResp.StatusCode))
	} else {
		c.recordSuccess()
	}
	return lastResp, nil
}

// cloneRequest copies req for one attempt, rewinding the body when the
// request supports it.
func (c *Client) cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return clone, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

func (c *Client) recordSuccess() {
	if c.registry != nil {
		c.registry.RecordSuccess(c.config.Name)
	}
}

func (c *Client) recordFailure(err error) {
	if c.registry != nil {
		c.registry.RecordFailure(c.config.Name, err)
	}
}

// ServerError is an HTTP 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current breaker state.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the breaker's request counters.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}
