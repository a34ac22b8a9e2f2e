package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/member-map-geocoder/internal/config"
	"github.com/couchcryptid/member-map-geocoder/internal/observability"
	"github.com/couchcryptid/member-map-geocoder/internal/reconcile"
)

// Exit codes for the run command.
const (
	exitFailed  = 1
	exitSkipped = 2
)

func newRunCmd() *cobra.Command {
	var opts reconcile.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass and print its report",
		Long: "Run one reconciliation pass and print its report as JSON.\n\n" +
			"Exits 2 when another run holds the lock and 1 when the run failed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			a, err := newApp(cmd.Context(), cfg, logger, observability.NewMetrics())
			if err != nil {
				return err
			}
			defer a.Close()

			report, runErr := a.service.Run(cmd.Context(), opts)
			if errors.Is(runErr, reconcile.ErrAlreadyRunning) {
				return &exitError{code: exitSkipped, err: runErr}
			}
			if report.RunID != "" {
				out, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			if runErr != nil {
				return &exitError{code: exitFailed, err: runErr}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows to attempt (default GEOCODE_ROW_LIMIT)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "ignore the retry cooldown window")
	return cmd
}
