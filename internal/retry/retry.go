// Package retry provides the bounded-retry combinator shared by SMS delivery
// and the operator client.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is wrapped into the error returned when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Func is one attempt. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

// permanentError stops the retry loop immediately.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, ctx is done, or
// attempts calls have failed. attempts <= 0 retries until ctx is done. delay
// is waited between attempts, never after the last one.
func Do(ctx context.Context, attempts int, delay time.Duration, fn Func) error {
	var last error

	for attempt := 1; attempts <= 0 || attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, last)
		}

		last = fn(ctx, attempt)
		if last == nil {
			return nil
		}

		var permanent *permanentError
		if errors.As(last, &permanent) {
			return permanent.err
		}

		if attempts > 0 && attempt == attempts {
			break
		}

		if err := sleep(ctx, delay); err != nil {
			return errors.Join(err, last)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, last)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
