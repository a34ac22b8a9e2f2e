package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

const (
	// Name identifies this backend in logs, metrics and errors.
	Name = "mapbox"

	defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

	// The paid API allows far more than the free OSM service.
	minInterval = 100 * time.Millisecond
)

// Client implements geocode.Provider using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return Name }

// MinInterval is the shortest gap Mapbox tolerates between requests.
func (c *Client) MinInterval() time.Duration { return minInterval }

// Geocode converts a free-text location to coordinates.
func (c *Client) Geocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality,region,country"},
	}

	return c.doRequest(ctx, u+"?"+params.Encode())
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, c.fail(0, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, c.fail(0, fmt.Errorf("forward geocode request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.GeocodingResult{}, c.fail(resp.StatusCode, fmt.Errorf("mapbox API error: %s", body))
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.GeocodingResult{}, c.fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	if len(mapboxResp.Features) == 0 {
		return domain.NotFound, nil
	}

	f := mapboxResp.Features[0]
	// Mapbox uses [lon, lat] order.
	if len(f.Center) != 2 {
		return domain.GeocodingResult{}, c.fail(resp.StatusCode, fmt.Errorf("feature %q has no center", f.PlaceName))
	}
	return domain.GeocodingResult{
		Coordinates: domain.Coordinates{Lat: f.Center[1], Lon: f.Center[0]},
		DisplayName: f.PlaceName,
		Found:       true,
	}, nil
}

func (c *Client) fail(status int, err error) error {
	return &domain.ProviderError{Provider: Name, StatusCode: status, Err: err}
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
