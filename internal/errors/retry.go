package errors

import (
	"context"
	"errors"
	"time"
)

// Backoff describes an exponential retry schedule.
type Backoff struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff suits short transient outages of Postgres or Redis.
var DefaultBackoff = Backoff{
	Attempts:   4,
	Initial:    200 * time.Millisecond,
	Max:        5 * time.Second,
	Multiplier: 2,
}

// StartupBackoff waits for dependencies that may still be booting next to the bot.
var StartupBackoff = Backoff{
	Attempts:   10,
	Initial:    500 * time.Millisecond,
	Max:        10 * time.Second,
	Multiplier: 2,
}

// Delay returns the wait before the given retry (1-based).
func (b Backoff) Delay(retry int) time.Duration {
	delay := b.Initial
	for i := 1; i < retry; i++ {
		delay = time.Duration(float64(delay) * b.Multiplier)
		if delay >= b.Max {
			return b.Max
		}
	}
	if delay > b.Max {
		return b.Max
	}
	return delay
}

// Retry runs fn until it succeeds, returns a non-retryable error or the
// attempts run out. Waiting stops as soon as ctx is done.
func Retry(ctx context.Context, b Backoff, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	if b.Attempts < 1 {
		b.Attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil || !IsRetryable(err) || attempt == b.Attempts {
			return err
		}

		timer := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// WithRetry retries fn on DefaultBackoff. Only errors marked Retryable are retried.
func WithRetry(ctx context.Context, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return Retry(ctx, DefaultBackoff, func(context.Context) error { return fn() })
}

// IsRetryable reports whether err is an AppError marked as transient.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr != nil && appErr.Retryable
}
