package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInvariants(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("valid OK row", func(t *testing.T) {
		r := Row{Number: 2, Latitude: "1", Longitude: "2", Status: StatusOK, LastAttempt: &ts, GeocodedAt: &ts}
		assert.Empty(t, CheckInvariants(r))
	})

	t.Run("OK without coordinates or timestamps", func(t *testing.T) {
		r := Row{Number: 5, Latitude: "1", Status: StatusOK}
		v := CheckInvariants(r)
		require.Len(t, v, 3)
		assert.Equal(t, 5, v[0].Row)
		assert.Contains(t, v[0].String(), "row 5")
	})

	t.Run("failed row with coordinates", func(t *testing.T) {
		r := Row{Number: 3, Latitude: "1", Status: StatusBanCooldown}
		v := CheckInvariants(r)
		require.Len(t, v, 1)
		assert.Contains(t, v[0].Message, "BAN_COOLDOWN")
	})

	t.Run("empty status is unconstrained", func(t *testing.T) {
		assert.Empty(t, CheckInvariants(Row{Latitude: "1"}))
	})
}

func TestProviderError(t *testing.T) {
	cause := errors.New("boom")

	t.Run("matches ErrProvider and unwraps", func(t *testing.T) {
		err := fmt.Errorf("row 4: %w", &ProviderError{Provider: "nominatim", Err: cause})
		assert.ErrorIs(t, err, ErrProvider)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "nominatim: boom")
	})

	t.Run("temporary classification", func(t *testing.T) {
		assert.True(t, (&ProviderError{Err: cause}).Temporary())
		assert.True(t, (&ProviderError{StatusCode: http.StatusTooManyRequests, Err: cause}).Temporary())
		assert.True(t, (&ProviderError{StatusCode: http.StatusBadGateway, Err: cause}).Temporary())
		assert.False(t, (&ProviderError{StatusCode: http.StatusUnauthorized, Err: cause}).Temporary())
		assert.False(t, (&ProviderError{StatusCode: http.StatusOK, Err: cause}).Temporary())
	})

	t.Run("IsTemporary", func(t *testing.T) {
		assert.True(t, IsTemporary(fmt.Errorf("wrap: %w", &ProviderError{Err: cause})))
		assert.False(t, IsTemporary(cause))
	})

	t.Run("status in message", func(t *testing.T) {
		err := &ProviderError{Provider: "mapbox", StatusCode: 401, Err: cause}
		assert.Contains(t, err.Error(), "401")
	})
}
