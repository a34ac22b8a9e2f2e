package domain

import "time"

// Eligibility is the outcome of checking whether a row should be geocoded
// in the current run.
type Eligibility string

const (
	Eligible               Eligibility = "eligible"
	SkippedAlreadyGeocoded Eligibility = "skipped_already_geocoded"
	SkippedNoLocation      Eligibility = "skipped_no_location"
	SkippedCooldown        Eligibility = "skipped_cooldown"
)

// CheckEligibility decides whether r should be attempted at now. The first
// matching rule wins:
//
//  1. both coordinates present: already geocoded
//  2. no buildable location: nothing to geocode
//  3. FAILED_RECENTLY or BAN_COOLDOWN, not forced, and the last attempt is
//     parseable and younger than retryWindow: cooling down
//  4. otherwise eligible
//
// A missing or malformed last-attempt timestamp gives no cooldown
// protection, so bad data can never block retries forever.
func CheckEligibility(r Row, now time.Time, retryWindow time.Duration, force bool) Eligibility {
	if r.HasCoordinates() {
		return SkippedAlreadyGeocoded
	}
	if BuildLocation(r) == "" {
		return SkippedNoLocation
	}
	if r.Status.InCooldownSet() && !force && r.LastAttempt != nil {
		if now.Sub(*r.LastAttempt) < retryWindow {
			return SkippedCooldown
		}
	}
	return Eligible
}
