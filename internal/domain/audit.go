package domain

import "fmt"

// Violation is a row whose stored geocode fields contradict its status.
type Violation struct {
	Row     int
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("row %d: %s", v.Row, v.Message)
}

// CheckInvariants reports the ways r breaks the status rules:
// OK requires both coordinates and both timestamps, and the failure
// statuses require the coordinates to be absent.
func CheckInvariants(r Row) []Violation {
	var out []Violation
	add := func(format string, args ...any) {
		out = append(out, Violation{Row: r.Number, Message: fmt.Sprintf(format, args...)})
	}

	switch r.Status {
	case StatusOK:
		if !r.HasCoordinates() {
			add("status %s without both coordinates", r.Status)
		}
		if r.LastAttempt == nil {
			add("status %s without a valid last attempt timestamp (%q)", r.Status, r.LastAttemptRaw)
		}
		if r.GeocodedAt == nil {
			add("status %s without a valid geocoded-at timestamp (%q)", r.Status, r.GeocodedAtRaw)
		}
	case StatusFailedRecently, StatusBanCooldown:
		if r.Latitude != "" || r.Longitude != "" {
			add("status %s but coordinates present (%q, %q)", r.Status, r.Latitude, r.Longitude)
		}
	}
	return out
}
