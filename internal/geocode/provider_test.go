package geocode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/member-map-geocoder/internal/adapter/mapbox"
	"github.com/couchcryptid/member-map-geocoder/internal/adapter/nominatim"
	"github.com/couchcryptid/member-map-geocoder/internal/config"
	"github.com/couchcryptid/member-map-geocoder/internal/domain"
	"github.com/couchcryptid/member-map-geocoder/internal/observability"
)

func TestNewProvider(t *testing.T) {
	logger := observability.DiscardLogger()

	t.Run("nominatim", func(t *testing.T) {
		p, err := NewProvider(&config.Config{GeocoderProvider: config.ProviderNominatim, GeocoderTimeout: time.Second}, logger)
		require.NoError(t, err)
		assert.Equal(t, nominatim.Name, p.Name())
		assert.Equal(t, time.Second, p.MinInterval())
	})

	t.Run("mapbox", func(t *testing.T) {
		p, err := NewProvider(&config.Config{GeocoderProvider: config.ProviderMapbox, GeocoderAPIKey: "pk.x", GeocoderTimeout: time.Second}, logger)
		require.NoError(t, err)
		assert.Equal(t, mapbox.Name, p.Name())
		assert.Less(t, p.MinInterval(), time.Second)
	})

	t.Run("mapbox without key", func(t *testing.T) {
		_, err := NewProvider(&config.Config{GeocoderProvider: config.ProviderMapbox}, logger)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewProvider(&config.Config{GeocoderProvider: "bing"}, logger)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}
