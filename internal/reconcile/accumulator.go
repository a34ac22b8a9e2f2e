package reconcile

import (
	"context"
	"fmt"

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

type cellKey struct {
	row, col int
}

// Accumulator collects cell writes during a run and applies them in one
// batch at the end. A second Set for the same cell replaces the first
// value but keeps its original position.
type Accumulator struct {
	index   map[cellKey]int
	updates []domain.CellUpdate
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{index: make(map[cellKey]int)}
}

// Set records value for the cell at row, col.
func (a *Accumulator) Set(row, col int, value string) {
	k := cellKey{row: row, col: col}
	if i, ok := a.index[k]; ok {
		a.updates[i].Value = value
		return
	}
	a.index[k] = len(a.updates)
	a.updates = append(a.updates, domain.CellUpdate{Row: row, Col: col, Value: value})
}

// Len is the number of distinct cells pending.
func (a *Accumulator) Len() int { return len(a.updates) }

// Updates returns a copy of the pending writes in insertion order.
func (a *Accumulator) Updates() []domain.CellUpdate {
	out := make([]domain.CellUpdate, len(a.updates))
	copy(out, a.updates)
	return out
}

// Flush writes every pending update with a single BatchWrite call. It does
// nothing when there is nothing to write.
func (a *Accumulator) Flush(ctx context.Context, store Store) error {
	if len(a.updates) == 0 {
		return nil
	}
	if err := store.BatchWrite(ctx, a.Updates()); err != nil {
		return fmt.Errorf("%w: batch write %d cells: %w", domain.ErrStoreWrite, len(a.updates), err)
	}
	return nil
}
