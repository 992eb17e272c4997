// Package handler provides HTTP handlers for the routegrade API.
package handler

import (
	"net/http"
	"time"

	"github.com/routegrade/routegrade/internal/api/models"
	"github.com/routegrade/routegrade/internal/api/response"
	"github.com/routegrade/routegrade/internal/provider/resilience"
)

// OpsConfig wires an OpsHandler.
type OpsConfig struct {
	Version   string
	BuildTime string
	// Registry holds the provider clients; nil reports no providers.
	Registry *resilience.Registry
	// Backends names the configured route and elevation backends. An empty
	// route backend means the pipeline is not wired and readiness fails.
	Backends models.BackendStatus
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	backends  models.BackendStatus
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		backends:  cfg.Backends,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service is ready once both
// backends are configured; open circuits do not fail readiness since the
// pure scoring endpoint still works.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.backends.Route == "" || h.backends.Elevation == "" {
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status:  models.HealthStatusFail,
			Time:    models.Timestamp(h.now()),
			Details: map[string]any{"reason": "route or elevation backend not configured"},
		})
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
	})
}

// SystemStatus handles GET /v1/ops/status - circuit state per provider.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	var health []*resilience.ProviderHealth
	if h.registry != nil {
		health = h.registry.AllHealth()
	}

	providers := make([]models.ProviderStatus, 0, len(health))
	open := 0
	degraded := 0
	for _, ph := range health {
		ps := providerStatus(ph)
		switch ps.Status {
		case models.HealthStatusFail:
			open++
		case models.HealthStatusDegraded:
			degraded++
		}
		providers = append(providers, ps)
	}

	overall := models.HealthStatusOK
	switch {
	case len(providers) > 0 && open == len(providers):
		overall = models.HealthStatusFail
	case open > 0 || degraded > 0:
		overall = models.HealthStatusDegraded
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:    overall,
		Time:      models.Timestamp(h.now()),
		Backends:  h.backends,
		Providers: providers,
	})
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider: ph.Name,
		Status:   models.HealthStatusOK,
		Circuit:  ph.CircuitState.String(),
		Requests: ph.Counts.Requests,
		Failures: ph.Counts.ConsecutiveFailures,
	}
	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if ph.LastSuccessAt != nil {
		ts := models.Timestamp(*ph.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if ph.LastFailureAt != nil {
		ts := models.Timestamp(*ph.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}
