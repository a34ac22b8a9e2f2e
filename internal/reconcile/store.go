package reconcile

import (
	"context"

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

// Store is the shared tabular store holding the location records. Row
// numbers are 1-based with the header on row 1; column indexes are 0-based.
// Implementations never reorder, insert or delete data rows.
type Store interface {
	// ReadAll returns every row, header first.
	ReadAll(ctx context.Context) ([][]string, error)

	// ReadHeader returns the header row.
	ReadHeader(ctx context.Context) ([]string, error)

	// WriteCell sets a single cell.
	WriteCell(ctx context.Context, row, col int, value string) error

	// EnsureColumn returns the index of the named header column, appending
	// it when absent. Calling it for an existing column writes nothing.
	EnsureColumn(ctx context.Context, name string) (int, error)

	// BatchWrite applies all updates in a single call.
	BatchWrite(ctx context.Context, updates []domain.CellUpdate) error
}

// Publisher receives the report of every run that started.
type Publisher interface {
	Publish(ctx context.Context, report RunReport) error
}
