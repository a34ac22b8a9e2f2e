// Package domain models the member map's location records and the rules for
// geocoding them.
//
// # Data Source
//
// Records live in a shared spreadsheet filled in by a sign-up form. Row 1 is
// the header; every following row is one member. The form writes a single
// free-text "City, State, Country" cell. Some older exports split it into
// separate City, State and Country columns, which [BuildLocation] joins when
// the combined cell is blank.
//
// # Geocode Columns
//
// The reconciler owns five columns and appends any that are missing:
//
//	Latitude, Longitude     decimal degrees, 7 fractional digits
//	Geocode Status          "", OK, FAILED_RECENTLY, BAN_COOLDOWN
//	Geocode Last Attempt    RFC 3339 UTC, set on every attempt
//	Geocoded At             RFC 3339 UTC, set when coordinates are written
//
// Latitude and longitude typed in by hand are never overwritten: any
// non-blank pair marks the row as already geocoded.
//
// # Status Machine
//
//	EMPTY ──found──▶ OK
//	  │ └─not found─▶ FAILED_RECENTLY ──retry window elapsed──▶ attempt again
//	  └──provider error──▶ BAN_COOLDOWN ──retry window elapsed──▶ attempt again
//
// Rows in FAILED_RECENTLY or BAN_COOLDOWN are skipped until the retry window
// (12 hours by default) has passed since their last attempt, unless the run
// is forced. See [CheckEligibility].
package domain
