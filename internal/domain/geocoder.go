package domain

import (
	"context"
	"strconv"
)

// Coordinates is a WGS-84 latitude/longitude pair resolved by a provider.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FormatLat renders the latitude the way it is written back to the store.
func (c Coordinates) FormatLat() string { return formatDegrees(c.Lat) }

// FormatLon renders the longitude the way it is written back to the store.
func (c Coordinates) FormatLon() string { return formatDegrees(c.Lon) }

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', 7, 64)
}

// GeocodingResult contains location data returned by a geocoding provider.
// Found is false when the provider had no match for the query; that is a
// normal negative result, not an error.
type GeocodingResult struct {
	Coordinates
	DisplayName string
	Found       bool
}

// NotFound is the empty result a provider returns when nothing matched.
var NotFound = GeocodingResult{}

// Geocoder resolves a free-text location to coordinates.
type Geocoder interface {
	// Geocode looks up query. A miss is reported as a result with Found set
	// to false and a nil error.
	Geocode(ctx context.Context, query string) (GeocodingResult, error)
}
