package sync

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/skyfleet/datavault/common/config"
	"github.com/skyfleet/datavault/datastores"
)

// RetryPolicy decides how transient transport failures are retried. It is
// injected into the manager so tests can collapse the backoff to nothing.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Retryable       func(error) bool
}

func DefaultRetryPolicy(cfg *config.VaultConfig) RetryPolicy {
	attempts := cfg.Transfers.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Retryable:       datastores.IsTransient,
	}
}

// Do runs op with bounded attempts and exponential backoff. Permanent errors
// short-circuit. Returns the number of attempts made alongside the final
// error, if any.
func (p RetryPolicy) Do(ctx context.Context, op func() error) (int, error) {
	attempts := 0
	wrapped := func() error {
		attempts++
		err := op()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.MaxElapsedTime = 0

	err := backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1)), ctx))
	return attempts, err
}
