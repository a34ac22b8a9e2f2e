package reconcile

import (
	"fmt"
	"sync"

	"github.com/gofrs/flock"
)

// Guard allows at most one reconciliation run at a time. Acquisition never
// blocks. With a lock file configured, the guard also excludes other
// processes on the same host, such as a cron-driven CLI run next to the
// server.
type Guard struct {
	mu   sync.Mutex
	file *flock.Flock
}

// NewGuard returns a guard. An empty lockPath keeps exclusion in-process.
func NewGuard(lockPath string) *Guard {
	g := &Guard{}
	if lockPath != "" {
		g.file = flock.New(lockPath)
	}
	return g
}

// TryAcquire takes the guard if it is free and reports whether it did.
func (g *Guard) TryAcquire() (bool, error) {
	if !g.mu.TryLock() {
		return false, nil
	}
	if g.file == nil {
		return true, nil
	}
	ok, err := g.file.TryLock()
	if err != nil {
		g.mu.Unlock()
		return false, fmt.Errorf("lock %s: %w", g.file.Path(), err)
	}
	if !ok {
		g.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// Release frees a guard obtained from TryAcquire.
func (g *Guard) Release() error {
	defer g.mu.Unlock()
	if g.file == nil {
		return nil
	}
	if err := g.file.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", g.file.Path(), err)
	}
	return nil
}
