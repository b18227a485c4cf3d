package app

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
)

// DefaultBackoff is the delay policy between retries of a remote call.
func DefaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// retry runs op up to attempts times. Only rate-limit and transient network
// errors are retried; anything else is returned immediately.
func (s *Service) retry(ctx context.Context, attempts int, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(s.opts.Backoff(), uint64(attempts-1)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil || domain.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
}
