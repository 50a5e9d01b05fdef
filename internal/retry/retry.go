// Package retry runs an operation with bounded attempts and exponential backoff.
//
// It is the only retry loop in the module: external calls are wrapped at the
// call site instead of retrying inside each client.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retries exhausted")

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of calls, including the first. Values
	// below one are treated as one.
	Attempts int
	// Delay is the wait before the second attempt.
	Delay time.Duration
	// Backoff multiplies Delay after every failed attempt. Values below one
	// keep the delay constant.
	Backoff float64
}

// DefaultPolicy returns three attempts starting at one second and doubling.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: time.Second, Backoff: 2}
}

// WithAttempts returns a copy of the policy with a different attempt count.
func (p Policy) WithAttempts(n int) Policy {
	p.Attempts = n
	return p
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns it on first sight.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Do calls fn until it succeeds, returns a permanent error, the context ends
// or the policy's attempts are used up.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(policy.Attempts, 1)
	delay := policy.Delay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		if IsPermanent(err) {
			return zero, err
		}
		lastErr = err

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			if policy.Backoff > 1 {
				delay = time.Duration(float64(delay) * policy.Backoff)
			}
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
