// Package geocode wraps a geocoding backend with the politeness rules every
// run must follow: a minimum gap between provider calls, a per-call timeout,
// and at most one retry on a temporary failure.
package geocode

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/member-map-geocoder/internal/adapter/mapbox"
	"github.com/couchcryptid/member-map-geocoder/internal/adapter/nominatim"
	"github.com/couchcryptid/member-map-geocoder/internal/config"
	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

// Provider is a geocoding backend that declares its own rate limit.
type Provider interface {
	domain.Geocoder

	// Name identifies the backend in logs and metrics.
	Name() string

	// MinInterval is the shortest allowed gap between two calls.
	MinInterval() time.Duration
}

var (
	_ Provider = (*nominatim.Client)(nil)
	_ Provider = (*mapbox.Client)(nil)
)

// NewProvider builds the backend selected by cfg.GeocoderProvider. It is
// called once at startup.
func NewProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	switch cfg.GeocoderProvider {
	case config.ProviderNominatim:
		return nominatim.NewClient(cfg.GeocoderUserAgent, cfg.GeocoderTimeout, logger), nil
	case config.ProviderMapbox:
		if cfg.GeocoderAPIKey == "" {
			return nil, fmt.Errorf("%w: mapbox requires GEOCODER_API_KEY", domain.ErrConfiguration)
		}
		return mapbox.NewClient(cfg.GeocoderAPIKey, cfg.GeocoderTimeout, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown geocoding provider %q", domain.ErrConfiguration, cfg.GeocoderProvider)
	}
}
