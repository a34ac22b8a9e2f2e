package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/member-map-geocoder/internal/reconcile"
)

// Runner starts reconciliation runs and reports readiness.
type Runner interface {
	sharedobs.ReadinessChecker
	Run(ctx context.Context, opts reconcile.RunOptions) (reconcile.RunReport, error)
}

// RecordSource returns the member grid, header first.
type RecordSource interface {
	ReadAll(ctx context.Context) ([][]string, error)
}

// Server exposes the run trigger, the records endpoint, and health,
// readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	runner     Runner
	records    RecordSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /geocode/run, /data, /healthz,
// /readyz and /metrics routes.
func NewServer(addr string, runner Runner, records RecordSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner:  runner,
		records: records,
		logger:  logger,
	}

	mux.HandleFunc("POST /geocode/run", s.handleRun)
	mux.HandleFunc("GET /data", s.handleData)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(runner))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	opts, err := parseRunOptions(r)
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": err.Error()})
		return
	}

	// A run is paced by the provider and can outlast the server's write
	// timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Warn("clear write deadline failed", "error", err)
	}

	// The run continues if the client goes away.
	report, err := s.runner.Run(context.WithoutCancel(r.Context()), opts)
	switch {
	case errors.Is(err, reconcile.ErrAlreadyRunning):
		sharedobs.WriteJSON(w, http.StatusConflict, map[string]string{"status": "skipped", "reason": "already running"})
	case err != nil && report.RunID == "":
		s.logger.Error("geocode run failed to start", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
	case err != nil:
		sharedobs.WriteJSON(w, http.StatusInternalServerError, report)
	default:
		sharedobs.WriteJSON(w, http.StatusOK, report)
	}
}

func parseRunOptions(r *http.Request) (reconcile.RunOptions, error) {
	var opts reconcile.RunOptions
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, errors.New("limit must be a positive integer")
		}
		opts.Limit = n
	}
	if v := q.Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("force must be true or false")
		}
		opts.Force = b
	}
	return opts, nil
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	grid, err := s.records.ReadAll(r.Context())
	if err != nil {
		s.logger.Error("read records failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, toRecords(grid))
}

// toRecords turns the grid into one object per data row keyed by header
// name. Columns with a blank header are left out.
func toRecords(grid [][]string) []map[string]string {
	records := make([]map[string]string, 0, max(len(grid)-1, 0))
	if len(grid) == 0 {
		return records
	}
	header := grid[0]
	for _, row := range grid[1:] {
		rec := make(map[string]string, len(header))
		for i, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, dup := rec[name]; dup {
				continue
			}
			if i < len(row) {
				rec[name] = row[i]
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}
