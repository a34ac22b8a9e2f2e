package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/member-map-geocoder/internal/adapter/sqlite"
	"github.com/couchcryptid/member-map-geocoder/internal/observability"
)

func newSeedCmd() *cobra.Command {
	var (
		dbPath     string
		appendRows bool
	)

	cmd := &cobra.Command{
		Use:   "seed <csv-file>",
		Short: "Import a CSV export of the member sheet into the SQLite store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			store, err := sqlite.Open(cmd.Context(), dbPath, observability.DiscardLogger())
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := seedCSV(cmd.Context(), f, store, appendRows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s\n", n, dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", sharedcfg.EnvOrDefault("SQLITE_PATH", "member-map.db"), "SQLite database to write")
	cmd.Flags().BoolVar(&appendRows, "append", false, "append data rows to a non-empty database, skipping the CSV header")
	return cmd
}

// seedCSV copies CSV records into store and returns how many data rows
// were written. An empty store takes the CSV header as its header row.
func seedCSV(ctx context.Context, r io.Reader, store *sqlite.Store, appendRows bool) (int, error) {
	head, err := store.ReadHeader(ctx)
	if err != nil {
		return 0, err
	}
	existing := len(head) > 0
	if existing && !appendRows {
		return 0, errors.New("database already has data; pass --append to add rows")
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	n := 0
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read csv: %w", err)
		}
		if first && existing {
			continue
		}
		if _, err := store.AppendRow(ctx, rec); err != nil {
			return n, err
		}
		if !first {
			n++
		}
	}
	return n, nil
}
