package main

import (
	"context"
	"fmt"
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	kafkaadapter "github.com/couchcryptid/member-map-geocoder/internal/adapter/kafka"
	"github.com/couchcryptid/member-map-geocoder/internal/adapter/sheets"
	"github.com/couchcryptid/member-map-geocoder/internal/adapter/sqlite"
	"github.com/couchcryptid/member-map-geocoder/internal/config"
	"github.com/couchcryptid/member-map-geocoder/internal/geocode"
	"github.com/couchcryptid/member-map-geocoder/internal/observability"
	"github.com/couchcryptid/member-map-geocoder/internal/reconcile"
)

const serviceName = "member-map-geocoder"

// newLogger builds the process logger, which also becomes the slog default.
func newLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)
}

// app holds the wired components shared by serve and run.
type app struct {
	store   reconcile.Store
	service *reconcile.Service
	closers []func() error
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	a := &app{logger: logger}

	provider, err := geocode.NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	var publisher reconcile.Publisher
	if cfg.PublishReports() {
		p := kafkaadapter.NewPublisher(cfg, logger)
		a.closers = append(a.closers, p.Close)
		publisher = p
		logger.Info("run report publishing enabled", "topic", cfg.KafkaReportTopic)
	}

	clock := clockwork.NewRealClock()
	client := geocode.NewRateLimitedClient(provider, clock, cfg.GeocoderTimeout, cfg.GeocoderRetryWait, metrics, logger)
	a.service = reconcile.NewService(store, client, reconcile.NewGuard(cfg.LockFile), clock,
		reconcile.Settings{
			Provider:     provider.Name(),
			RetryWindow:  cfg.RetryWindow,
			DefaultLimit: cfg.RowLimit,
		},
		publisher, metrics, logger)

	logger.Info("geocoder configured",
		"provider", provider.Name(),
		"store", cfg.StoreBackend,
		"retry_window", cfg.RetryWindow,
		"row_limit", cfg.RowLimit,
	)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}

// openStore opens the configured tabular store.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (reconcile.Store, func() error, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreSheets:
		s, err := sheets.New(ctx, cfg.CredentialsFile, cfg.SheetsSpreadsheetID, cfg.SheetsTab, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
