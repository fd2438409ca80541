//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/JoergFritschi-crypto/garden-climate/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting())
}

func TestSmoke_ForwardGeocode(t *testing.T) {
	c := smokeClient(t)

	result, err := c.ForwardGeocode(context.Background(), "Edinburgh, Scotland")
	require.NoError(t, err)

	assert.InDelta(t, 55.95, result.Lat, 0.1, "lat should be near Edinburgh")
	assert.InDelta(t, -3.19, result.Lon, 0.1, "lon should be near Edinburgh")
	assert.Contains(t, result.FormattedAddress, "Edinburgh")
	assert.Greater(t, result.Confidence, 0.5)
}

func TestSmoke_ReverseGeocode(t *testing.T) {
	c := smokeClient(t)

	// Royal Botanic Gardens, Kew
	result, err := c.ReverseGeocode(context.Background(), 51.4787, -0.2956)
	require.NoError(t, err)

	assert.NotEmpty(t, result.FormattedAddress)
	assert.NotEmpty(t, result.PlaceName)
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedGeocoder(c, 10, observability.NewMetricsForTesting())

	r1, err := cached.ForwardGeocode(context.Background(), "Cambridge, England")
	require.NoError(t, err)
	assert.Contains(t, r1.FormattedAddress, "Cambridge")

	r2, err := cached.ForwardGeocode(context.Background(), "Cambridge, England")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
