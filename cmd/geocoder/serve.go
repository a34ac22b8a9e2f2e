package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/member-map-geocoder/internal/adapter/http"
	"github.com/couchcryptid/member-map-geocoder/internal/config"
	"github.com/couchcryptid/member-map-geocoder/internal/observability"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the run trigger, records, health and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.service, a.store, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start scheduled runs.
	var wg sync.WaitGroup
	if cfg.RunInterval > 0 {
		wg.Go(func() { a.service.RunEvery(ctx, cfg.RunInterval) })
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	scheduled := make(chan struct{})
	go func() {
		wg.Wait()
		close(scheduled)
	}()
	select {
	case <-scheduled:
	case <-shutdownCtx.Done():
		logger.Warn("scheduled run still in progress at shutdown deadline")
	}

	logger.Info("shutdown complete")
	return nil
}
