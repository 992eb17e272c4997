package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a point-in-time view of one provider client.
type ProviderHealth struct {
	Name         string
	CircuitState gobreaker.State
	// Counts are the breaker's counts for its current interval.
	Counts gobreaker.Counts
	// Successes and Failures count outcomes since registration.
	Successes     uint64
	Failures      uint64
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

func (h *ProviderHealth) IsHealthy() bool   { return h.CircuitState == gobreaker.StateClosed }
func (h *ProviderHealth) IsDegraded() bool  { return h.CircuitState == gobreaker.StateHalfOpen }
func (h *ProviderHealth) IsUnhealthy() bool { return h.CircuitState == gobreaker.StateOpen }

// Registry tracks provider clients for status reporting. One registry is
// shared by every client the process builds.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	client        *Client
	successes     uint64
	failures      uint64
	lastSuccessAt time.Time
	lastFailureAt time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds the client for name, replacing any earlier client and its
// history.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{client: client}
}

// RecordSuccess is a no-op for unknown names.
func (r *Registry) RecordSuccess(name string) {
	r.update(name, func(e *entry) {
		e.successes++
		e.lastSuccessAt = time.Now()
	})
}

// RecordFailure keeps the error text of the most recent failure.
func (r *Registry) RecordFailure(name string, err error) {
	r.update(name, func(e *entry) {
		e.failures++
		e.lastFailureAt = time.Now()
		if err != nil {
			e.lastError = err.Error()
		}
	})
}

func (r *Registry) update(name string, fn func(e *entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		fn(e)
	}
}

// Health returns nil for unknown providers.
func (r *Registry) Health(name string) *ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil
	}
	return e.health(name)
}

// AllHealth returns every provider ordered by name.
func (r *Registry) AllHealth() []*ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ProviderHealth, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, e.health(name))
	}
	slices.SortFunc(out, func(a, b *ProviderHealth) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (e *entry) health(name string) *ProviderHealth {
	h := &ProviderHealth{
		Name:         name,
		CircuitState: e.client.CircuitBreakerState(),
		Counts:       e.client.CircuitBreakerCounts(),
		Successes:    e.successes,
		Failures:     e.failures,
		LastError:    e.lastError,
	}
	if !e.lastSuccessAt.IsZero() {
		t := e.lastSuccessAt
		h.LastSuccessAt = &t
	}
	if !e.lastFailureAt.IsZero() {
		t := e.lastFailureAt
		h.LastFailureAt = &t
	}
	return h
}
