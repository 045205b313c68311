package order

import (
	"context"
	"errors"
	"fmt"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/database"
	"event-ticketing/internal/metrics"
	orderredis "event-ticketing/internal/order/redis"

	"github.com/cenkalti/backoff/v4"
)

func isTransient(err error) bool {
	return errors.Is(err, orderredis.ErrLockNotAcquired) || database.IsTransient(err)
}

// withRetry runs fn until it succeeds, fails with a non-transient error, or
// the attempt budget is spent. Exhaustion is reported as a RetryableError.
func (s *OrderService) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	maxAttempts := s.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if s.Retry.InitialBackoff > 0 {
		b.InitialInterval = s.Retry.InitialBackoff
	}
	if s.Retry.MaxBackoff > 0 {
		b.MaxInterval = s.Retry.MaxBackoff
	}
	b.MaxElapsedTime = 0

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		if attempts < maxAttempts {
			metrics.ReservationRetried()
			s.Logger.Debug("RETRY", fmt.Sprintf("%s attempt %d/%d: %v", op, attempts, maxAttempts, err))
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxAttempts-1)), ctx))

	if err != nil && isTransient(err) {
		return &apperrors.RetryableError{Op: op, Attempts: attempts, Err: err}
	}
	return err
}
