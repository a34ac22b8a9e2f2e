package geocode

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/member-map-geocoder/internal/domain"
	"github.com/couchcryptid/member-map-geocoder/internal/observability"
)

// maxTries is the first call plus one retry.
const maxTries = 2

// RateLimitedClient implements domain.Geocoder on top of a Provider. One
// instance is shared by the whole process so the minimum interval holds
// across runs.
type RateLimitedClient struct {
	provider  Provider
	clock     clockwork.Clock
	timeout   time.Duration
	retryWait time.Duration
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewRateLimitedClient wraps p. timeout bounds each provider call and
// retryWait is the fixed pause before the single retry.
func NewRateLimitedClient(p Provider, clock clockwork.Clock, timeout, retryWait time.Duration, metrics *observability.Metrics, logger *slog.Logger) *RateLimitedClient {
	return &RateLimitedClient{
		provider:  p,
		clock:     clock,
		timeout:   timeout,
		retryWait: retryWait,
		metrics:   metrics,
		logger:    logger,
	}
}

// Name returns the wrapped provider's name.
func (c *RateLimitedClient) Name() string { return c.provider.Name() }

// Geocode resolves query through the provider, honouring the minimum
// interval before every call. Temporary provider errors are retried once;
// the final error always matches domain.ErrProvider.
func (c *RateLimitedClient) Geocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	attempt := 0
	op := func() (domain.GeocodingResult, error) {
		attempt++
		if attempt > 1 {
			c.metrics.GeocodeRequests.WithLabelValues(c.provider.Name(), "retry").Inc()
		}
		res, err := c.call(ctx, query)
		if err != nil && !domain.IsTemporary(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryWait)),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Warn("geocode failed, retrying",
				"provider", c.provider.Name(),
				"query", query,
				"wait", wait,
				"error", err,
			)
		}),
	)
	if err != nil {
		if !errors.Is(err, domain.ErrProvider) {
			err = &domain.ProviderError{Provider: c.provider.Name(), Err: err}
		}
		return domain.GeocodingResult{}, err
	}
	return res, nil
}

func (c *RateLimitedClient) call(ctx context.Context, query string) (domain.GeocodingResult, error) {
	if err := c.throttle(ctx); err != nil {
		return domain.GeocodingResult{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.clock.Now()
	res, err := c.provider.Geocode(callCtx, query)
	c.metrics.GeocodeAPIDuration.WithLabelValues(c.provider.Name()).Observe(c.clock.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(c.provider.Name(), "error").Inc()
	case res.Found:
		c.metrics.GeocodeRequests.WithLabelValues(c.provider.Name(), "found").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues(c.provider.Name(), "not_found").Inc()
	}
	return res, err
}

// throttle blocks until MinInterval has passed since the previous call and
// then claims the current instant as the latest call.
func (c *RateLimitedClient) throttle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastCall.IsZero() {
		if wait := c.provider.MinInterval() - c.clock.Since(c.lastCall); wait > 0 {
			c.metrics.GeocodeThrottled.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.clock.After(wait):
			}
		}
	}
	c.lastCall = c.clock.Now()
	return nil
}
