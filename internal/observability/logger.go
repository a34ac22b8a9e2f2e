package observability

import "log/slog"

// DiscardLogger returns a logger that drops everything. Used by tests and
// one-shot tooling.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
