package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testParis  = "Paris, France"
	testBerlin = "Berlin, Germany"
)

func TestBuildLocation(t *testing.T) {
	t.Run("combined cell wins", func(t *testing.T) {
		r := Row{Location: "  Austin, TX, USA ", City: "Dallas"}
		assert.Equal(t, "Austin, TX, USA", BuildLocation(r))
	})

	t.Run("falls back to parts", func(t *testing.T) {
		r := Row{Location: "   ", City: "Lyon", State: " ", Country: "France"}
		assert.Equal(t, "Lyon, France", BuildLocation(r))
	})

	t.Run("all parts", func(t *testing.T) {
		r := Row{City: "Austin", State: "TX", Country: "USA"}
		assert.Equal(t, "Austin, TX, USA", BuildLocation(r))
	})

	t.Run("nothing to build", func(t *testing.T) {
		assert.Empty(t, BuildLocation(Row{}))
		assert.Empty(t, BuildLocation(Row{Location: " ", City: "\t"}))
	})
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusOK, ParseStatus("OK"))
	assert.Equal(t, StatusOK, ParseStatus(" ok "))
	assert.Equal(t, StatusFailedRecently, ParseStatus("FAILED_RECENTLY"))
	assert.Equal(t, StatusBanCooldown, ParseStatus("ban_cooldown"))
	assert.Equal(t, StatusEmpty, ParseStatus(""))
	assert.Equal(t, StatusEmpty, ParseStatus("pending"))
}

func TestParseTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	got := ParseTimestamp(FormatTimestamp(ts))
	require.NotNil(t, got)
	assert.True(t, ts.Equal(*got))

	assert.Nil(t, ParseTimestamp(""))
	assert.Nil(t, ParseTimestamp("yesterday"))
	assert.Nil(t, ParseTimestamp("2026-03-01 12:30"))
}

func TestFormatTimestamp_UTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2026, 3, 1, 13, 30, 0, 0, loc)
	assert.Equal(t, "2026-03-01T12:30:00Z", FormatTimestamp(ts))
}

func TestParseRows(t *testing.T) {
	grid := [][]string{
		{"Timestamp", " City, State, Country ", "Latitude", "Longitude", "Geocode Status", "Geocode Last Attempt"},
		{"t1", testParis, "", ""},
		{"t2", "", "", "", "FAILED_RECENTLY", "2026-03-01T10:00:00Z"},
		{"t3", testBerlin, "52.5", "13.4", "OK", "garbage"},
	}

	h, rows := ParseRows(grid)
	require.Len(t, rows, 3)

	idx, ok := h.Index(ColumnLocation)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, testParis, rows[0].Location)
	assert.False(t, rows[0].HasCoordinates())
	assert.Equal(t, StatusEmpty, rows[0].Status)
	assert.Nil(t, rows[0].LastAttempt)

	assert.Equal(t, 3, rows[1].Number)
	assert.Equal(t, StatusFailedRecently, rows[1].Status)
	require.NotNil(t, rows[1].LastAttempt)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *rows[1].LastAttempt)

	assert.Equal(t, 4, rows[2].Number)
	assert.True(t, rows[2].HasCoordinates())
	assert.Nil(t, rows[2].LastAttempt)
	assert.Equal(t, "garbage", rows[2].LastAttemptRaw)
}

func TestParseRows_Empty(t *testing.T) {
	h, rows := ParseRows(nil)
	assert.Empty(t, h)
	assert.Empty(t, rows)

	_, rows = ParseRows([][]string{{ColumnLocation}})
	assert.Empty(t, rows)
}

func TestNewHeader_DuplicateKeepsFirst(t *testing.T) {
	h := NewHeader([]string{"Latitude", "", "Latitude"})
	idx, ok := h.Index(ColumnLatitude)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Len(t, h, 1)
}

func TestCoordinates_Format(t *testing.T) {
	c := Coordinates{Lat: 48.8566, Lon: 2.3522}
	assert.Equal(t, "48.8566000", c.FormatLat())
	assert.Equal(t, "2.3522000", c.FormatLon())
}
