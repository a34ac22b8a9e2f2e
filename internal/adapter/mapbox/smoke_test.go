//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid GEOCODER_API_KEY env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("GEOCODER_API_KEY")
	if token == "" {
		t.Fatal("GEOCODER_API_KEY must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_Geocode(t *testing.T) {
	c := smokeClient(t)

	result, err := c.Geocode(context.Background(), "Austin, TX, USA")
	require.NoError(t, err)

	require.True(t, result.Found)
	assert.InDelta(t, 30.27, result.Lat, 0.2, "lat should be near Austin")
	assert.InDelta(t, -97.74, result.Lon, 0.2, "lon should be near Austin")
	assert.Contains(t, result.DisplayName, "Austin")
}

func TestSmoke_Geocode_Nonsense(t *testing.T) {
	c := smokeClient(t)

	// Mapbox's fuzzy matching may still return results for nonsense queries,
	// so we verify the client handles any response gracefully (no error).
	_, err := c.Geocode(context.Background(), "XYZNONEXISTENT99, ZZ")
	require.NoError(t, err)
}
