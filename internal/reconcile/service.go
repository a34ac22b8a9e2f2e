package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
	"github.com/couchcryptid/member-map-geocoder/internal/observability"
)

// DefaultLimit caps the rows attempted per run when neither the caller nor
// the configuration says otherwise.
const DefaultLimit = 60

// ErrAlreadyRunning is returned by Run when another run holds the guard.
var ErrAlreadyRunning = errors.New("reconcile: already running")

// RunOptions parameterise a single run.
type RunOptions struct {
	// Limit caps attempted rows. Zero or negative uses the service default.
	Limit int
	// Force ignores the cooldown window.
	Force bool
}

// Settings are the fixed per-service parameters.
type Settings struct {
	Provider     string
	RetryWindow  time.Duration
	DefaultLimit int
}

// Service runs reconciliation passes over a Store.
type Service struct {
	store     Store
	geocoder  domain.Geocoder
	guard     *Guard
	clock     clockwork.Clock
	settings  Settings
	publisher Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService wires a Service. publisher may be nil.
func NewService(store Store, geocoder domain.Geocoder, guard *Guard, clock clockwork.Clock, settings Settings, publisher Publisher, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if settings.DefaultLimit <= 0 {
		settings.DefaultLimit = DefaultLimit
	}
	return &Service{
		store:     store,
		geocoder:  geocoder,
		guard:     guard,
		clock:     clock,
		settings:  settings,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// CheckReadiness verifies the store can be read.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if _, err := s.store.ReadHeader(ctx); err != nil {
		return fmt.Errorf("%w: read header: %w", domain.ErrStore, err)
	}
	return nil
}

// Run performs one reconciliation pass. It returns ErrAlreadyRunning
// without touching the store when another run is in progress. A provider
// error, or ctx being cancelled, ends the run early with status aborted and
// a nil error. A cancelled run writes nothing for the interrupted row. Store
// failures return an error matching domain.ErrStore or domain.ErrStoreWrite
// alongside a report with status failed.
func (s *Service) Run(ctx context.Context, opts RunOptions) (RunReport, error) {
	acquired, err := s.guard.TryAcquire()
	if err != nil {
		return RunReport{}, fmt.Errorf("acquire run guard: %w", err)
	}
	if !acquired {
		s.metrics.RunsTotal.WithLabelValues("skipped").Inc()
		s.logger.Info("geocode run skipped", "reason", "already running")
		return RunReport{}, ErrAlreadyRunning
	}
	defer func() {
		if err := s.guard.Release(); err != nil {
			s.logger.Error("release run guard failed", "error", err)
		}
	}()

	s.metrics.RunInProgress.Set(1)
	defer s.metrics.RunInProgress.Set(0)

	limit := opts.Limit
	if limit <= 0 {
		limit = s.settings.DefaultLimit
	}

	report := RunReport{
		RunID:     uuid.NewString(),
		Provider:  s.settings.Provider,
		StartedAt: s.clock.Now().UTC(),
	}
	log := s.logger.With("run_id", report.RunID)
	log.Info("geocode run started", "limit", limit, "force", opts.Force)

	runErr := s.reconcile(ctx, log, opts.Force, limit, &report)
	report.FinishedAt = s.clock.Now().UTC()
	if runErr != nil {
		report.Status = RunFailed
		report.Error = runErr.Error()
	}

	s.record(report)
	s.publish(ctx, log, report)

	attrs := []any{
		"status", report.Status,
		"processed", report.Processed,
		"duration", report.Duration(),
	}
	for k, v := range report.Counters.Map() {
		attrs = append(attrs, k, v)
	}
	if report.Error != "" {
		attrs = append(attrs, "error", report.Error)
	}
	log.Info("geocode run finished", attrs...)

	return report, runErr
}

// reconcile fills report.Counters and report.Status. It returns an error
// only for store failures.
func (s *Service) reconcile(ctx context.Context, log *slog.Logger, force bool, limit int, report *RunReport) error {
	cols, err := s.ensureColumns(ctx)
	if err != nil {
		return err
	}

	grid, err := s.store.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: read rows: %w", domain.ErrStore, err)
	}
	_, rows := domain.ParseRows(grid)

	now := s.clock.Now()
	stamp := domain.FormatTimestamp(now)
	cache := NewRunCache()
	acc := NewAccumulator()
	counters := &report.Counters
	report.Status = RunCompleted

	for _, row := range rows {
		if counters.Attempted >= limit {
			break
		}
		if ctx.Err() != nil {
			s.interrupt(ctx, log, report, row.Number)
			break
		}

		elig := domain.CheckEligibility(row, now, s.settings.RetryWindow, force)
		if elig != domain.Eligible {
			counters.countSkip(elig)
			continue
		}

		query := domain.BuildLocation(row)
		res, err := s.resolve(ctx, cache, query)
		if err != nil && ctx.Err() != nil {
			// A cancelled run leaves the row untouched.
			s.interrupt(ctx, log, report, row.Number)
			break
		}

		counters.Eligible++
		counters.Attempted++
		acc.Set(row.Number, cols.lastAttempt, stamp)
		if err != nil {
			counters.FailedException++
			acc.Set(row.Number, cols.status, string(domain.StatusBanCooldown))
			report.Status = RunAborted
			report.Error = err.Error()
			log.Warn("geocode failed, aborting run",
				"row", row.Number,
				"location", query,
				"error", err,
			)
			break
		}

		if !res.Found {
			counters.FailedEmptyResult++
			acc.Set(row.Number, cols.status, string(domain.StatusFailedRecently))
			log.Debug("location not found", "row", row.Number, "location", query)
			continue
		}

		counters.OK++
		acc.Set(row.Number, cols.latitude, res.FormatLat())
		acc.Set(row.Number, cols.longitude, res.FormatLon())
		acc.Set(row.Number, cols.status, string(domain.StatusOK))
		acc.Set(row.Number, cols.geocodedAt, stamp)
		log.Debug("location geocoded", "row", row.Number, "location", query, "lat", res.Lat, "lon", res.Lon)
	}
	report.Processed = counters.Attempted

	hits, misses := cache.Stats()
	s.metrics.GeocodeCache.WithLabelValues("hit").Add(float64(hits))
	s.metrics.GeocodeCache.WithLabelValues("miss").Add(float64(misses))

	// The batch is written even when the caller has gone away.
	if err := acc.Flush(context.WithoutCancel(ctx), s.store); err != nil {
		return err
	}
	return nil
}

// interrupt ends a run whose context was cancelled before the row finished.
func (s *Service) interrupt(ctx context.Context, log *slog.Logger, report *RunReport, row int) {
	report.Status = RunAborted
	report.Error = fmt.Sprintf("run interrupted: %v", context.Cause(ctx))
	log.Warn("geocode run interrupted", "row", row, "error", context.Cause(ctx))
}

func (s *Service) resolve(ctx context.Context, cache *RunCache, query string) (domain.GeocodingResult, error) {
	if res, ok := cache.Get(query); ok {
		return res, nil
	}
	res, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		return domain.GeocodingResult{}, err
	}
	cache.Put(query, res)
	return res, nil
}

type columns struct {
	latitude, longitude, status, lastAttempt, geocodedAt int
}

func (s *Service) ensureColumns(ctx context.Context) (columns, error) {
	idx := make(map[string]int, len(domain.GeocodeColumns))
	for _, name := range domain.GeocodeColumns {
		i, err := s.store.EnsureColumn(ctx, name)
		if err != nil {
			return columns{}, fmt.Errorf("%w: ensure column %q: %w", domain.ErrStore, name, err)
		}
		idx[name] = i
	}
	return columns{
		latitude:    idx[domain.ColumnLatitude],
		longitude:   idx[domain.ColumnLongitude],
		status:      idx[domain.ColumnStatus],
		lastAttempt: idx[domain.ColumnLastAttempt],
		geocodedAt:  idx[domain.ColumnGeocodedAt],
	}, nil
}

func (s *Service) record(r RunReport) {
	s.metrics.RunsTotal.WithLabelValues(string(r.Status)).Inc()
	s.metrics.RunDuration.Observe(r.Duration().Seconds())
	for outcome, n := range r.Counters.Map() {
		if n > 0 {
			s.metrics.RunRows.WithLabelValues(outcome).Add(float64(n))
		}
	}
	if r.Status != RunFailed {
		s.metrics.RunLastSuccess.Set(float64(r.FinishedAt.Unix()))
	}
}

func (s *Service) publish(ctx context.Context, log *slog.Logger, r RunReport) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), r); err != nil {
		log.Error("publish run report failed", "error", err)
	}
}
