package reconcile

import (
	"context"
	"errors"
	"time"
)

// RunEvery starts a run with default options on every tick of interval
// until ctx is cancelled. A tick that finds a run in progress is skipped.
func (s *Service) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduled runs enabled", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduled runs stopping", "reason", ctx.Err())
			return
		case <-ticker.Chan():
			_, err := s.Run(ctx, RunOptions{})
			switch {
			case errors.Is(err, ErrAlreadyRunning):
			case err != nil:
				s.logger.Error("scheduled run failed", "error", err)
			}
		}
	}
}
