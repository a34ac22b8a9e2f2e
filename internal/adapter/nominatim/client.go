// Package nominatim geocodes through the public OpenStreetMap Nominatim
// service. The usage policy allows at most one request per second and
// requires an identifying User-Agent.
package nominatim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

const (
	// Name identifies this backend in logs, metrics and errors.
	Name = "nominatim"

	defaultBaseURL = "https://nominatim.openstreetmap.org"
	minInterval    = time.Second
	maxBody        = 1 << 20
)

// Client implements geocode.Provider against a Nominatim instance.
type Client struct {
	userAgent  string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Nominatim client for the public OSM instance.
func NewClient(userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		logger:     logger,
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return Name }

// MinInterval is the politeness delay required by the OSM usage policy.
func (c *Client) MinInterval() time.Duration { return minInterval }

// Geocode resolves query to the best matching place.
func (c *Client) Geocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return domain.GeocodingResult{}, c.fail(0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, c.fail(0, fmt.Errorf("search request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return domain.GeocodingResult{}, c.fail(0, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > 512 {
			body = body[:512]
		}
		return domain.GeocodingResult{}, c.fail(resp.StatusCode, fmt.Errorf("nominatim error: %s", body))
	}

	result, err := parseSearch(body)
	if err != nil {
		return domain.GeocodingResult{}, c.fail(resp.StatusCode, err)
	}
	if !result.Found {
		c.logger.Debug("nominatim returned no match", "query", query)
	}
	return result, nil
}

// parseSearch reads the first hit of a jsonv2 search response. Nominatim
// encodes lat and lon as strings.
func parseSearch(body []byte) (domain.GeocodingResult, error) {
	if !gjson.ValidBytes(body) {
		return domain.GeocodingResult{}, errors.New("malformed response: invalid JSON")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return domain.GeocodingResult{}, errors.New("malformed response: expected array")
	}

	first := doc.Get("0")
	if !first.Exists() {
		return domain.NotFound, nil
	}

	lat, err := parseDegrees(first.Get("lat"))
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("malformed response: lat: %w", err)
	}
	lon, err := parseDegrees(first.Get("lon"))
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("malformed response: lon: %w", err)
	}

	return domain.GeocodingResult{
		Coordinates: domain.Coordinates{Lat: lat, Lon: lon},
		DisplayName: first.Get("display_name").String(),
		Found:       true,
	}, nil
}

func parseDegrees(v gjson.Result) (float64, error) {
	if !v.Exists() {
		return 0, errors.New("missing")
	}
	if v.Type == gjson.Number {
		return v.Float(), nil
	}
	return strconv.ParseFloat(v.String(), 64)
}

func (c *Client) fail(status int, err error) error {
	return &domain.ProviderError{Provider: Name, StatusCode: status, Err: err}
}
