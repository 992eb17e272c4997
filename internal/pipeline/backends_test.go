package pipeline

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routegrade/routegrade/internal/elevation"
	"github.com/routegrade/routegrade/internal/provider/resilience"
)

func TestNewBackends(t *testing.T) {
	tests := []struct {
		name          string
		cfg           BackendConfig
		router        string
		primary       string
		withSecondary bool
	}{
		{"google alone", BackendConfig{Provider: "google", GoogleAPIKey: "g"}, "google", "google-elevation", false},
		{"google with terrain fallback", BackendConfig{Provider: "Google", GoogleAPIKey: "g", MapboxToken: "m"}, "google", "google-elevation", true},
		{"mapbox", BackendConfig{Provider: "mapbox", MapboxToken: "m"}, "mapbox", "mapbox-terrain", false},
		{"ors with google elevation", BackendConfig{Provider: "openrouteservice", ORSAPIKey: "o", GoogleAPIKey: "g", MapboxToken: "m"}, "openrouteservice", "google-elevation", true},
		{"ors with terrain only", BackendConfig{Provider: "ors", ORSAPIKey: "o", MapboxToken: "m"}, "openrouteservice", "mapbox-terrain", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logger = zerolog.Nop()
			b, err := NewBackends(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.router, b.Router.Name())

			f, ok := b.Elevation.(*elevation.FallbackSampler)
			require.True(t, ok, "elevation is always wrapped so exhaustion is reported uniformly")
			assert.Equal(t, tt.primary, f.Primary.Name())
			assert.Equal(t, tt.withSecondary, f.Secondary != nil)
		})
	}
}

func TestNewBackends_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  BackendConfig
		want error
	}{
		{"unknown provider", BackendConfig{Provider: "bing"}, ErrUnknownProvider},
		{"google without key", BackendConfig{Provider: "google", MapboxToken: "m"}, ErrMissingCredentials},
		{"mapbox without token", BackendConfig{Provider: "mapbox", GoogleAPIKey: "g"}, ErrMissingCredentials},
		{"ors without key", BackendConfig{Provider: "openrouteservice", GoogleAPIKey: "g"}, ErrMissingCredentials},
		{"ors without elevation credentials", BackendConfig{Provider: "openrouteservice", ORSAPIKey: "o"}, ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBackends(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewBackends_RegistersProviders(t *testing.T) {
	registry := resilience.NewRegistry()
	_, err := NewBackends(BackendConfig{
		Provider:     "google",
		GoogleAPIKey: "g",
		MapboxToken:  "m",
		Registry:     registry,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"google", "google-elevation", "mapbox-terrain"}, registry.Names())
}
