package task

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Attempt describes one finished execution inside Retry.
type Attempt struct {
	Number   int
	Duration time.Duration
	Err      error
}

// RetryPolicy configures Retry. Retries is the number of extra attempts after
// the first one, so Retries=2 means at most three executions.
type RetryPolicy struct {
	Retries int
	Delay   time.Duration
	// RetryIf decides whether err is worth another attempt. Nil retries every
	// error except context cancellation.
	RetryIf func(err error) bool
	// OnAttempt observes every finished attempt, successful or not.
	OnAttempt func(Attempt)
}

// ExhaustedError reports that every allowed attempt failed. Err is the error
// from the final attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("task: gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retry wraps t in a bounded retry loop with a fixed delay between attempts.
// The delay honours context cancellation.
func Retry[T any](t Task[T], policy RetryPolicy) Task[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		retries := policy.Retries
		if retries < 0 {
			retries = 0
		}
		total := retries + 1

		var lastErr error
		attempts := 0
		for i := 1; i <= total; i++ {
			attempts = i
			start := time.Now()
			value, err := t.Run(ctx)
			if policy.OnAttempt != nil {
				policy.OnAttempt(Attempt{Number: i, Duration: time.Since(start), Err: err})
			}
			if err == nil {
				return value, nil
			}
			lastErr = err

			if i == total || !shouldRetry(policy, err) {
				break
			}
			if err := Sleep(ctx, policy.Delay); err != nil {
				return zero, fmt.Errorf("task: cancelled during retry: %w", err)
			}
		}
		if attempts == 1 {
			return zero, lastErr
		}
		return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
	}
}

func shouldRetry(policy RetryPolicy, err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if policy.RetryIf != nil {
		return policy.RetryIf(err)
	}
	return true
}
