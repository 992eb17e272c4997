package google

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routegrade/routegrade/internal/elevation"
	"github.com/routegrade/routegrade/pkg/polyline"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		APIKey:     "gkey",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

// resultsJSON returns n results whose elevation equals offset+index.
func resultsJSON(n, offset int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"elevation":%d,"resolution":9.5}`, offset+i)
	}
	return `{"status":"OK","results":[` + strings.Join(parts, ",") + `]}`
}

func line(n int) []polyline.Coordinate {
	coords := make([]polyline.Coordinate, n)
	for i := range coords {
		coords[i] = polyline.Coordinate{Lat: 46.5 + float64(i)*0.0003, Lon: 8.0}
	}
	return coords
}

func TestClient_Sample(t *testing.T) {
	coords := line(3)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/elevation/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "gkey", q.Get("key"))
		assert.Equal(t, "3", q.Get("samples"))
		assert.Equal(t, "enc:"+polyline.Encode(coords), q.Get("path"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"elevation":1201.5},{"elevation":1210.25},{"elevation":1198}]}`))
	})

	got, err := client.Sample(context.Background(), coords)
	require.NoError(t, err)
	assert.Equal(t, []float64{1201.5, 1210.25, 1198}, got)
}

func TestClient_Sample_BatchesLongPaths(t *testing.T) {
	var calls atomic.Int32
	var offset atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		n, err := strconv.Atoi(r.URL.Query().Get("samples"))
		assert.NoError(t, err)
		assert.LessOrEqual(t, n, MaxSamplesPerRequest)
		_, _ = w.Write([]byte(resultsJSON(n, int(offset.Add(int32(n)))-n)))
	})

	got, err := client.Sample(context.Background(), line(1025))
	require.NoError(t, err)
	require.Len(t, got, 1025)
	assert.Equal(t, int32(3), calls.Load())
	for i, v := range got {
		require.Equal(t, float64(i), v, "order must be preserved at index %d", i)
	}
}

func TestClient_Sample_SinglePointUsesLocations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Empty(t, q.Get("path"))
		assert.True(t, strings.HasPrefix(q.Get("locations"), "enc:"))
		_, _ = w.Write([]byte(resultsJSON(1, 4100)))
	})

	got, err := client.Sample(context.Background(), line(1))
	require.NoError(t, err)
	assert.Equal(t, []float64{4100}, got)
}

func TestClient_Sample_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"request denied", http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"API not enabled","results":[]}`, elevation.ErrUnauthorized},
		{"over query limit", http.StatusOK, `{"status":"OVER_QUERY_LIMIT","results":[]}`, elevation.ErrProviderUnavailable},
		{"invalid request", http.StatusOK, `{"status":"INVALID_REQUEST","results":[]}`, elevation.ErrInvalidResponse},
		{"misaligned", http.StatusOK, `{"status":"OK","results":[{"elevation":1}]}`, elevation.ErrInvalidResponse},
		{"http forbidden", http.StatusForbidden, `{}`, elevation.ErrUnauthorized},
		{"http server error", http.StatusInternalServerError, `oops`, elevation.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Sample(context.Background(), line(2))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_Sample_Empty(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "k", Logger: zerolog.Nop()})
	got, err := client.Sample(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBatches(t *testing.T) {
	tests := []struct {
		n     int
		sizes []int
	}{
		{1, []int{1}},
		{512, []int{512}},
		{513, []int{257, 256}},
		{1025, []int{342, 342, 341}},
	}
	for _, tt := range tests {
		var sizes []int
		for _, b := range batches(line(tt.n), MaxSamplesPerRequest) {
			sizes = append(sizes, len(b))
		}
		assert.Equal(t, tt.sizes, sizes, "n=%d", tt.n)
	}
}
