package reconcile

import "github.com/couchcryptid/member-map-geocoder/internal/domain"

// RunCache remembers provider answers by query for the duration of one run,
// so duplicate locations in a sheet cost a single provider call. Misses are
// cached as well as hits. A RunCache is used by one goroutine only.
type RunCache struct {
	entries map[string]domain.GeocodingResult
	hits    int
	misses  int
}

// NewRunCache returns an empty cache for a new run.
func NewRunCache() *RunCache {
	return &RunCache{entries: make(map[string]domain.GeocodingResult)}
}

// Get returns the cached result for query.
func (c *RunCache) Get(query string) (domain.GeocodingResult, bool) {
	res, ok := c.entries[query]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return res, ok
}

// Put records the provider's answer for query.
func (c *RunCache) Put(query string, res domain.GeocodingResult) {
	c.entries[query] = res
}

// Len is the number of distinct queries cached.
func (c *RunCache) Len() int { return len(c.entries) }

// Stats returns the hit and miss counts so far.
func (c *RunCache) Stats() (hits, misses int) { return c.hits, c.misses }
