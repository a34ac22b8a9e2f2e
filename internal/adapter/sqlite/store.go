// Package sqlite stores the member sheet in a local SQLite database, one
// row per cell. It backs local development, the seed command and tests
// that want a real store without Google credentials.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS cells (
	row   INTEGER NOT NULL,
	col   INTEGER NOT NULL,
	value TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (row, col)
)`

const upsertCell = `
INSERT INTO cells (row, col, value) VALUES (?, ?, ?)
ON CONFLICT (row, col) DO UPDATE SET value = excluded.value`

// Store implements reconcile.Store on a SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite %s: %w", path, err)
		}
	}
	logger.Info("sqlite store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReadAll returns the grid header first. Rows with no stored cells come
// back empty so row numbers stay aligned with positions.
func (s *Store) ReadAll(ctx context.Context) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT row, col, value FROM cells ORDER BY row, col`)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	var grid [][]string
	for rows.Next() {
		var r, c int
		var v string
		if err := rows.Scan(&r, &c, &v); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		grid = place(grid, r, c, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cells: %w", err)
	}
	return grid, nil
}

// ReadHeader returns row 1.
func (s *Store) ReadHeader(ctx context.Context) ([]string, error) {
	return s.readRow(ctx, s.db, 1)
}

// WriteCell upserts one cell.
func (s *Store) WriteCell(ctx context.Context, row, col int, value string) error {
	if err := checkCell(row, col); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertCell, row, col, value); err != nil {
		return fmt.Errorf("write cell (%d,%d): %w", row, col, err)
	}
	return nil
}

// EnsureColumn finds name in the header or appends it after the last
// header cell.
func (s *Store) EnsureColumn(ctx context.Context, name string) (int, error) {
	var idx int
	err := s.tx(ctx, func(tx *sql.Tx) error {
		header, err := s.readRow(ctx, tx, 1)
		if err != nil {
			return err
		}
		if i, ok := domain.NewHeader(header).Index(strings.TrimSpace(name)); ok {
			idx = i
			return nil
		}
		idx = len(header)
		if _, err := tx.ExecContext(ctx, upsertCell, 1, idx, name); err != nil {
			return fmt.Errorf("append column %q: %w", name, err)
		}
		s.logger.Info("column added", "column", name, "index", idx)
		return nil
	})
	return idx, err
}

// BatchWrite applies all updates in one transaction.
func (s *Store) BatchWrite(ctx context.Context, updates []domain.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	for _, u := range updates {
		if err := checkCell(u.Row, u.Col); err != nil {
			return err
		}
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertCell)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()
		for _, u := range updates {
			if _, err := stmt.ExecContext(ctx, u.Row, u.Col, u.Value); err != nil {
				return fmt.Errorf("write cell (%d,%d): %w", u.Row, u.Col, err)
			}
		}
		return nil
	})
}

// AppendRow writes values as a new last row and returns its 1-based
// number. The first row appended to an empty store is the header.
func (s *Store) AppendRow(ctx context.Context, values []string) (int, error) {
	var row int
	err := s.tx(ctx, func(tx *sql.Tx) error {
		var last sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT MAX(row) FROM cells`).Scan(&last); err != nil {
			return fmt.Errorf("find last row: %w", err)
		}
		row = int(last.Int64) + 1
		for col, v := range values {
			if _, err := tx.ExecContext(ctx, upsertCell, row, col, v); err != nil {
				return fmt.Errorf("append row %d: %w", row, err)
			}
		}
		return nil
	})
	return row, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) readRow(ctx context.Context, q querier, row int) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT col, value FROM cells WHERE row = ? ORDER BY col`, row)
	if err != nil {
		return nil, fmt.Errorf("query row %d: %w", row, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c int
		var v string
		if err := rows.Scan(&c, &v); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", row, err)
		}
		for len(out) < c {
			out = append(out, "")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func checkCell(row, col int) error {
	if row < 1 || col < 0 {
		return fmt.Errorf("invalid cell (%d,%d)", row, col)
	}
	return nil
}

// place sets grid[row-1][col], growing the grid as needed.
func place(grid [][]string, row, col int, v string) [][]string {
	for len(grid) < row {
		grid = append(grid, []string{})
	}
	r := grid[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	if len(r) == col {
		r = append(r, v)
	} else {
		r[col] = v
	}
	grid[row-1] = r
	return grid
}
