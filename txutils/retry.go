package txutils

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default read retry parameters.
const (
	DefaultReadAttempts   = 3
	DefaultReadRetryDelay = time.Second
)

// RetryPolicy bounds how often and how fast an operation is retried.
type RetryPolicy struct {
	// Attempts is the total number of calls, including the first one.
	Attempts int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
	// Retryable decides whether an error warrants another attempt. Nil retries every error.
	Retryable func(error) bool
	// Log receives one debug line per failed attempt when set.
	Log *slog.Logger
}

// DefaultReadPolicy retries transient and not-yet-propagated reads.
func DefaultReadPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  DefaultReadAttempts,
		Delay:     DefaultReadRetryDelay,
		Retryable: IsRetryableRead,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1)), ctx)
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts are exhausted or ctx is done. The last observed error is returned.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := fn(ctx)
		if err != nil && policy.Retryable != nil && !policy.Retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, next time.Duration) {
		if policy.Log != nil {
			policy.Log.Debug("retrying read", "attempt", attempt, "next", next, "err", err)
		}
	}

	return backoff.RetryNotifyWithData(operation, policy.backOff(ctx), notify)
}
