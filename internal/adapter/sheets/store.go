// Package sheets implements the member store on a Google Sheets tab.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

// rawInput writes values exactly as given, so coordinates and timestamps
// are not reinterpreted by the sheet's locale.
const rawInput = "RAW"

// Store reads and writes one tab of a spreadsheet.
type Store struct {
	svc           *gsheets.Service
	spreadsheetID string
	tab           string
	logger        *slog.Logger
}

// New authenticates with a service-account credentials file and returns a
// store for tab of the given spreadsheet.
func New(ctx context.Context, credentialsFile, spreadsheetID, tab string, logger *slog.Logger) (*Store, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, tab, logger), nil
}

// NewWithService wraps an existing Sheets client.
func NewWithService(svc *gsheets.Service, spreadsheetID, tab string, logger *slog.Logger) *Store {
	return &Store{svc: svc, spreadsheetID: spreadsheetID, tab: tab, logger: logger}
}

// ReadAll returns every populated row of the tab, header first.
func (s *Store) ReadAll(ctx context.Context) ([][]string, error) {
	return s.get(ctx, quoteTab(s.tab))
}

// ReadHeader returns row 1.
func (s *Store) ReadHeader(ctx context.Context) ([]string, error) {
	grid, err := s.get(ctx, quoteTab(s.tab)+"!1:1")
	if err != nil || len(grid) == 0 {
		return nil, err
	}
	return grid[0], nil
}

// WriteCell sets one cell.
func (s *Store) WriteCell(ctx context.Context, row, col int, value string) error {
	rng, err := cellRange(s.tab, row, col)
	if err != nil {
		return err
	}
	vr := &gsheets.ValueRange{Values: [][]any{{value}}}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption(rawInput).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// EnsureColumn finds name in the header row or writes it into the first
// cell after the header.
func (s *Store) EnsureColumn(ctx context.Context, name string) (int, error) {
	header, err := s.ReadHeader(ctx)
	if err != nil {
		return 0, err
	}
	if i, ok := domain.NewHeader(header).Index(strings.TrimSpace(name)); ok {
		return i, nil
	}
	idx := len(header)
	if err := s.WriteCell(ctx, 1, idx, name); err != nil {
		return 0, err
	}
	s.logger.Info("column added", "column", name, "index", idx)
	return idx, nil
}

// BatchWrite sends every update in a single values:batchUpdate request.
func (s *Store) BatchWrite(ctx context.Context, updates []domain.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	data := make([]*gsheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		rng, err := cellRange(s.tab, u.Row, u.Col)
		if err != nil {
			return err
		}
		data = append(data, &gsheets.ValueRange{Range: rng, Values: [][]any{{u.Value}}})
	}
	req := &gsheets.BatchUpdateValuesRequest{ValueInputOption: rawInput, Data: data}
	resp, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch update %d cells: %w", len(updates), err)
	}
	s.logger.Debug("batch update applied", "cells", resp.TotalUpdatedCells)
	return nil
}

func (s *Store) get(ctx context.Context, rng string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rng, err)
	}
	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		grid[i] = cells
	}
	return grid, nil
}

// ColumnLetter converts a 0-based column index to A1 letters: 0 is A,
// 25 is Z, 26 is AA.
func ColumnLetter(col int) string {
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

func cellRange(tab string, row, col int) (string, error) {
	if row < 1 || col < 0 {
		return "", fmt.Errorf("invalid cell (%d,%d)", row, col)
	}
	return fmt.Sprintf("%s!%s%d", quoteTab(tab), ColumnLetter(col), row), nil
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
