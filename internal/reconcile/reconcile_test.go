package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
)

func TestAccumulator(t *testing.T) {
	t.Run("later set overwrites in place", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Set(2, 4, "2024-06-01T12:00:00Z")
		acc.Set(2, 3, "FAILED_RECENTLY")
		acc.Set(2, 3, "BAN_COOLDOWN")

		assert.Equal(t, 2, acc.Len())
		assert.Equal(t, []domain.CellUpdate{
			{Row: 2, Col: 4, Value: "2024-06-01T12:00:00Z"},
			{Row: 2, Col: 3, Value: "BAN_COOLDOWN"},
		}, acc.Updates())
	})

	t.Run("empty flush does no IO", func(t *testing.T) {
		store := newMemStore(header)
		require.NoError(t, NewAccumulator().Flush(context.Background(), store))
		batches, writes := store.counts()
		assert.Zero(t, batches)
		assert.Zero(t, writes)
	})

	t.Run("flush is a single batch", func(t *testing.T) {
		store := newMemStore(header, []string{"a", "", ""}, []string{"b", "", ""})
		acc := NewAccumulator()
		acc.Set(2, 1, "1")
		acc.Set(3, 1, "2")
		acc.Set(3, 2, "3")
		require.NoError(t, acc.Flush(context.Background(), store))

		batches, writes := store.counts()
		assert.Equal(t, 1, batches)
		assert.Equal(t, 3, writes)
	})

	t.Run("flush error is a store write error", func(t *testing.T) {
		store := newMemStore(header)
		store.flushFn = func([]domain.CellUpdate) error { return errors.New("nope") }
		acc := NewAccumulator()
		acc.Set(2, 0, "x")
		assert.ErrorIs(t, acc.Flush(context.Background(), store), domain.ErrStoreWrite)
	})
}

func TestRunCache(t *testing.T) {
	c := NewRunCache()
	_, ok := c.Get("Paris")
	assert.False(t, ok)

	c.Put("Paris", domain.GeocodingResult{Coordinates: domain.Coordinates{Lat: 48.85, Lon: 2.35}, Found: true})
	c.Put("Atlantis", domain.NotFound)

	res, ok := c.Get("Paris")
	require.True(t, ok)
	assert.InDelta(t, 48.85, res.Lat, 0.0001)

	res, ok = c.Get("Atlantis")
	require.True(t, ok)
	assert.False(t, res.Found)

	hits, misses := c.Stats()
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)
	assert.Equal(t, 2, c.Len())
}

// isHeld reports whether g is taken, leaving it as it was found.
func isHeld(t *testing.T, g *Guard) bool {
	t.Helper()
	ok, err := g.TryAcquire()
	require.NoError(t, err)
	if ok {
		require.NoError(t, g.Release())
		return false
	}
	return true
}

func TestGuard(t *testing.T) {
	t.Run("in process", func(t *testing.T) {
		g := NewGuard("")
		ok, err := g.TryAcquire()
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, isHeld(t, g))

		ok, err = g.TryAcquire()
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, g.Release())
		assert.False(t, isHeld(t, g))

		ok, err = g.TryAcquire()
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, g.Release())
	})

	t.Run("lock file excludes a second guard", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "geocode.lock")
		a, b := NewGuard(path), NewGuard(path)

		ok, err := a.TryAcquire()
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = b.TryAcquire()
		require.NoError(t, err)
		assert.False(t, ok)
		require.True(t, b.mu.TryLock(), "a failed file lock leaves the mutex free")
		b.mu.Unlock()

		require.NoError(t, a.Release())

		ok, err = b.TryAcquire()
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, b.Release())
	})
}

func TestCounters_Map(t *testing.T) {
	c := Counters{Eligible: 2, Attempted: 2, OK: 1, FailedEmptyResult: 1, SkippedCooldown: 3}
	m := c.Map()
	assert.Len(t, m, 8)
	assert.Equal(t, 3, m[string(domain.SkippedCooldown)])
	assert.Equal(t, 1, m["failed_empty_result"])
}
