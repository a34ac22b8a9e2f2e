package reconcile

import (
	"time"

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

// Counters tallies row outcomes for one run.
type Counters struct {
	Eligible               int `json:"eligible"`
	SkippedAlreadyGeocoded int `json:"skipped_already_geocoded"`
	SkippedNoLocation      int `json:"skipped_no_location"`
	SkippedCooldown        int `json:"skipped_cooldown"`
	Attempted              int `json:"attempted"`
	OK                     int `json:"ok"`
	FailedEmptyResult      int `json:"failed_empty_result"`
	FailedException        int `json:"failed_exception"`
}

func (c *Counters) countSkip(e domain.Eligibility) {
	switch e {
	case domain.SkippedAlreadyGeocoded:
		c.SkippedAlreadyGeocoded++
	case domain.SkippedNoLocation:
		c.SkippedNoLocation++
	case domain.SkippedCooldown:
		c.SkippedCooldown++
	}
}

// Map returns the counters keyed by outcome name.
func (c Counters) Map() map[string]int {
	return map[string]int{
		"eligible":                 c.Eligible,
		"skipped_already_geocoded": c.SkippedAlreadyGeocoded,
		"skipped_no_location":      c.SkippedNoLocation,
		"skipped_cooldown":         c.SkippedCooldown,
		"attempted":                c.Attempted,
		"ok":                       c.OK,
		"failed_empty_result":      c.FailedEmptyResult,
		"failed_exception":         c.FailedException,
	}
}

// RunStatus is how a run that started ended.
type RunStatus string

const (
	// RunCompleted means the row limit or the end of the sheet was reached.
	RunCompleted RunStatus = "completed"
	// RunAborted means a provider error stopped the run early. Writes made
	// before the error were flushed.
	RunAborted RunStatus = "aborted"
	// RunFailed means the store could not be read or written.
	RunFailed RunStatus = "failed"
)

// RunReport summarises one reconciliation run.
type RunReport struct {
	RunID      string    `json:"run_id"`
	Provider   string    `json:"provider"`
	Status     RunStatus `json:"status"`
	Processed  int       `json:"processed"`
	Counters   Counters  `json:"counters"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// Duration is the wall time between start and finish.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
