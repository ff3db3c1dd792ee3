package catalog

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"correction_pricing/internal/logging"
	"correction_pricing/internal/models"
)

// DefaultAttempts is the total number of tries per fetch.
const DefaultAttempts = 2

// Retrying retries a source with exponential backoff. Errors wrapped with
// backoff.Permanent are returned immediately.
type Retrying struct {
	source          Source
	attempts        int
	initialInterval time.Duration
	attemptTimeout  time.Duration
}

// NewRetrying wraps source. attempts below 1 means DefaultAttempts.
func NewRetrying(source Source, attempts int, initialInterval time.Duration) *Retrying {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if initialInterval <= 0 {
		initialInterval = 200 * time.Millisecond
	}
	return &Retrying{
		source:          source,
		attempts:        attempts,
		initialInterval: initialInterval,
	}
}

// WithAttemptTimeout bounds each try separately. Zero leaves tries bounded
// only by the caller's context.
func (r *Retrying) WithAttemptTimeout(timeout time.Duration) *Retrying {
	r.attemptTimeout = timeout
	return r
}

// Budget is the longest a FetchCatalog call can take when every try times
// out: all attempt timeouts plus the largest possible backoff waits between
// them. Zero when no attempt timeout is set.
func (r *Retrying) Budget() time.Duration {
	if r.attemptTimeout <= 0 {
		return 0
	}

	expo := r.newBackOff()
	total := time.Duration(r.attempts) * r.attemptTimeout
	interval := float64(expo.InitialInterval)
	for i := 1; i < r.attempts; i++ {
		wait := time.Duration(interval * (1 + expo.RandomizationFactor))
		if wait > expo.MaxInterval {
			wait = expo.MaxInterval
		}
		total += wait
		interval *= expo.Multiplier
	}
	return total
}

// FetchCatalog tries the wrapped source until it succeeds, fails permanently
// or runs out of attempts.
func (r *Retrying) FetchCatalog(ctx context.Context) ([]models.TariffRecord, error) {
	var tariffs []models.TariffRecord
	operation := func() error {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.attemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.attemptTimeout)
		}
		defer cancel()

		data, err := r.source.FetchCatalog(attemptCtx)
		if err != nil {
			return err
		}
		tariffs = data
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), uint64(r.attempts-1)), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		logging.Warningf("Catalog fetch failed, retrying in %s: %v", wait, err)
	})
	if err != nil {
		return nil, err
	}
	return tariffs, nil
}

func (r *Retrying) newBackOff() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.initialInterval
	return expo
}
