// Package task provides a small cancellable task abstraction plus the two
// combinators the bridge composes around every transfer: a bounded retry loop
// and a timeout race.
//
//	task.Timeout(task.Retry(pipeline, policy), 5*time.Second)
//
// Each combinator returns a new Task so the three concerns (execute, retry,
// bound time) can be tested in isolation.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Timeout when the wrapped task does not finish in
// time. It wraps context.DeadlineExceeded.
var ErrTimeout = fmt.Errorf("task: timed out: %w", context.DeadlineExceeded)

// Task is a unit of work that honours context cancellation.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes t, treating a nil task as a programming error.
func (t Task[T]) Run(ctx context.Context) (T, error) {
	var zero T
	if t == nil {
		return zero, errors.New("task: nil task")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return t(ctx)
}

// Timeout races t against d. When d elapses first the returned task yields
// ErrTimeout and the result of t, if it ever arrives, is dropped. The wrapped
// task receives a context that is cancelled on timeout, but nothing forces it
// to stop: a timeout means "unknown outcome", not rollback.
func Timeout[T any](t Task[T], d time.Duration) Task[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		if d <= 0 {
			return t.Run(ctx)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		type outcome struct {
			value T
			err   error
		}
		done := make(chan outcome, 1)
		go func() {
			value, err := t.Run(ctx)
			done <- outcome{value: value, err: err}
		}()

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case out := <-done:
			return out.value, out.err
		case <-timer.C:
			return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
