package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

// Supported GEOCODER_PROVIDER values.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
)

// Supported STORE_BACKEND values.
const (
	StoreSheets = "sheets"
	StoreSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Geocoding provider configuration.
	GeocoderProvider  string
	GeocoderAPIKey    string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderRetryWait time.Duration

	// Reconciliation run configuration.
	RetryWindow time.Duration
	RowLimit    int
	RunInterval time.Duration
	LockFile    string

	// Tabular store configuration.
	StoreBackend        string
	SheetsSpreadsheetID string
	SheetsTab           string
	CredentialsFile     string
	SQLitePath          string

	// Run report publishing; disabled when KafkaBrokers is empty.
	KafkaBrokers     []string
	KafkaReportTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
// Missing or invalid settings are reported as domain.ErrConfiguration.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return cfg, nil
}

func load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	retryWait, err := parseDuration("GEOCODER_RETRY_WAIT", "2s")
	if err != nil {
		return nil, err
	}

	retryHours, err := parseRetryHours()
	if err != nil {
		return nil, err
	}

	rowLimit, err := parsePositiveInt("GEOCODE_ROW_LIMIT", 60)
	if err != nil {
		return nil, err
	}

	runInterval, err := parseDuration("GEOCODE_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeocoderProvider:  strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderNominatim)),
		GeocoderAPIKey:    os.Getenv("GEOCODER_API_KEY"),
		GeocoderUserAgent: sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "member-map-geocoder"),
		GeocoderTimeout:   geocoderTimeout,
		GeocoderRetryWait: retryWait,

		RetryWindow: time.Duration(retryHours * float64(time.Hour)),
		RowLimit:    rowLimit,
		RunInterval: runInterval,
		LockFile:    os.Getenv("GEOCODE_LOCK_FILE"),

		StoreBackend:        strings.ToLower(sharedcfg.EnvOrDefault("STORE_BACKEND", StoreSheets)),
		SheetsSpreadsheetID: os.Getenv("SHEETS_SPREADSHEET_ID"),
		SheetsTab:           sharedcfg.EnvOrDefault("SHEETS_TAB", "Sheet1"),
		CredentialsFile:     sharedcfg.EnvOrDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		SQLitePath:          sharedcfg.EnvOrDefault("SQLITE_PATH", "member-map.db"),

		KafkaBrokers:     sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "geocode-run-reports"),
	}

	switch cfg.GeocoderProvider {
	case ProviderNominatim:
	case ProviderMapbox:
		if cfg.GeocoderAPIKey == "" {
			return nil, errors.New("GEOCODER_PROVIDER is mapbox but GEOCODER_API_KEY is not set")
		}
	default:
		return nil, fmt.Errorf("unknown GEOCODER_PROVIDER %q", cfg.GeocoderProvider)
	}

	switch cfg.StoreBackend {
	case StoreSheets:
		if cfg.SheetsSpreadsheetID == "" {
			return nil, errors.New("STORE_BACKEND is sheets but SHEETS_SPREADSHEET_ID is not set")
		}
	case StoreSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is required")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// PublishReports reports whether run reports should be sent to Kafka.
func (c *Config) PublishReports() bool {
	return len(c.KafkaBrokers) > 0
}

func parseRetryHours() (float64, error) {
	s := sharedcfg.EnvOrDefault("GEOCODE_RETRY_HOURS", "12")
	h, err := strconv.ParseFloat(s, 64)
	if err != nil || h < 0 {
		return 0, errors.New("invalid GEOCODE_RETRY_HOURS")
	}
	return h, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
