package domain

import (
	"strings"
	"time"
)

// Column headers the reconciler reads and writes.
const (
	ColumnLocation    = "City, State, Country"
	ColumnCity        = "City"
	ColumnState       = "State"
	ColumnCountry     = "Country"
	ColumnLatitude    = "Latitude"
	ColumnLongitude   = "Longitude"
	ColumnStatus      = "Geocode Status"
	ColumnLastAttempt = "Geocode Last Attempt"
	ColumnGeocodedAt  = "Geocoded At"
)

// GeocodeColumns are the columns the reconciler owns, in the order they are
// appended to a sheet that lacks them.
var GeocodeColumns = []string{
	ColumnLatitude,
	ColumnLongitude,
	ColumnStatus,
	ColumnLastAttempt,
	ColumnGeocodedAt,
}

// Status is the per-row geocoding state kept in the store.
type Status string

const (
	StatusEmpty          Status = ""
	StatusOK             Status = "OK"
	StatusFailedRecently Status = "FAILED_RECENTLY"
	StatusBanCooldown    Status = "BAN_COOLDOWN"
)

// ParseStatus maps a cell value to a Status. Unrecognised text is EMPTY.
func ParseStatus(s string) Status {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusOK, StatusFailedRecently, StatusBanCooldown:
		return st
	default:
		return StatusEmpty
	}
}

// InCooldownSet reports whether rows in this status wait out the retry window.
func (s Status) InCooldownSet() bool {
	return s == StatusFailedRecently || s == StatusBanCooldown
}

// TimestampLayout is how attempt and geocoded-at times are written.
const TimestampLayout = time.RFC3339

// FormatTimestamp renders t in UTC for the store.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp. Blank or malformed values
// return nil.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// Row is the geocoding-relevant view of one record in the store.
type Row struct {
	// Number is the 1-based row in the store; the header is row 1.
	Number int

	Location string
	City     string
	State    string
	Country  string

	// Latitude and Longitude hold the trimmed cell text; blank means absent.
	Latitude  string
	Longitude string

	Status         Status
	LastAttempt    *time.Time
	LastAttemptRaw string
	GeocodedAt     *time.Time
	GeocodedAtRaw  string
}

// HasCoordinates reports whether both latitude and longitude are non-blank.
func (r Row) HasCoordinates() bool {
	return r.Latitude != "" && r.Longitude != ""
}

// BuildLocation returns the geocodable query for a row: the combined location
// cell when set, otherwise the non-empty city, state and country parts joined
// with ", ". An empty result means the row cannot be geocoded.
func BuildLocation(r Row) string {
	if loc := strings.TrimSpace(r.Location); loc != "" {
		return loc
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{r.City, r.State, r.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Header maps trimmed column names to their 0-based index. The first
// occurrence of a duplicated name wins.
type Header map[string]int

// NewHeader indexes a header row.
func NewHeader(cells []string) Header {
	h := make(Header, len(cells))
	for i, c := range cells {
		name := strings.TrimSpace(c)
		if name == "" {
			continue
		}
		if _, ok := h[name]; !ok {
			h[name] = i
		}
	}
	return h
}

// Index returns the column index for name.
func (h Header) Index(name string) (int, bool) {
	i, ok := h[name]
	return i, ok
}

func (h Header) cell(values []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(values) {
		return ""
	}
	return strings.TrimSpace(values[i])
}

// ParseRows converts the raw store grid (header first) into typed rows.
// Data rows are numbered from 2. Short rows are treated as having blank
// trailing cells.
func ParseRows(grid [][]string) (Header, []Row) {
	if len(grid) == 0 {
		return Header{}, nil
	}
	h := NewHeader(grid[0])
	rows := make([]Row, 0, len(grid)-1)
	for i, values := range grid[1:] {
		r := Row{
			Number:         i + 2,
			Location:       h.cell(values, ColumnLocation),
			City:           h.cell(values, ColumnCity),
			State:          h.cell(values, ColumnState),
			Country:        h.cell(values, ColumnCountry),
			Latitude:       h.cell(values, ColumnLatitude),
			Longitude:      h.cell(values, ColumnLongitude),
			Status:         ParseStatus(h.cell(values, ColumnStatus)),
			LastAttemptRaw: h.cell(values, ColumnLastAttempt),
			GeocodedAtRaw:  h.cell(values, ColumnGeocodedAt),
		}
		r.LastAttempt = ParseTimestamp(r.LastAttemptRaw)
		r.GeocodedAt = ParseTimestamp(r.GeocodedAtRaw)
		rows = append(rows, r)
	}
	return h, rows
}

// CellUpdate is a pending write of Value into the cell at 1-based Row and
// 0-based Col.
type CellUpdate struct {
	Row   int
	Col   int
	Value string
}
