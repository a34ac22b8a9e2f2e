package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/member-map-geocoder/internal/config"
	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check every row's geocode columns for consistency and preview the next run",
		Long: "Check every row's geocode columns against the status rules and show how\n" +
			"the next run would treat each row. Exits 1 when any row breaks the rules.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			store, closeStore, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			grid, err := store.ReadAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("%w: read rows: %w", domain.ErrStore, err)
			}

			res := audit(grid, time.Now(), cfg.RetryWindow)
			res.print(cmd.OutOrStdout())
			if len(res.violations) > 0 {
				return &exitError{code: exitFailed, err: fmt.Errorf("%d rows break the status rules", len(res.violations))}
			}
			return nil
		},
	}
}

// auditResult summarises a sheet without changing it.
type auditResult struct {
	rows        int
	statuses    map[domain.Status]int
	eligibility map[domain.Eligibility]int
	violations  []domain.Violation
}

func audit(grid [][]string, now time.Time, retryWindow time.Duration) auditResult {
	_, rows := domain.ParseRows(grid)
	res := auditResult{
		rows:        len(rows),
		statuses:    make(map[domain.Status]int),
		eligibility: make(map[domain.Eligibility]int),
	}
	for _, r := range rows {
		res.statuses[r.Status]++
		res.eligibility[domain.CheckEligibility(r, now, retryWindow, false)]++
		res.violations = append(res.violations, domain.CheckInvariants(r)...)
	}
	return res
}

func (r auditResult) print(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ROWS\t%d\n", r.rows)

	fmt.Fprintln(tw, "\nSTATUS\tROWS")
	for _, s := range sortedKeys(r.statuses) {
		name := string(s)
		if name == "" {
			name = "(empty)"
		}
		fmt.Fprintf(tw, "%s\t%d\n", name, r.statuses[s])
	}

	fmt.Fprintln(tw, "\nNEXT RUN\tROWS")
	for _, e := range sortedKeys(r.eligibility) {
		fmt.Fprintf(tw, "%s\t%d\n", e, r.eligibility[e])
	}
	_ = tw.Flush()

	if len(r.violations) == 0 {
		fmt.Fprintln(w, "\nAll rows consistent.")
		return
	}
	fmt.Fprintf(w, "\n%d violations:\n", len(r.violations))
	for i, v := range r.violations {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, v)
	}
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
