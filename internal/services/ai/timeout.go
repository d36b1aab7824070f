package ai

import (
	"context"
	"errors"
	"time"
)

type outcome[T any] struct {
	value T
	err   error
}

// WithTimeout runs op under a deadline. When the deadline passes first the attempt's context is
// cancelled and a timeout error is returned; whatever op produces afterwards is discarded.
// A non-positive timeout fails without calling op.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, op Operation[T]) (T, error) {
	var zero T
	if timeout <= 0 {
		return zero, NewTimeoutError(timeout, nil)
	}
	if err := ctx.Err(); err != nil {
		return zero, NewCanceledError(err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so an abandoned attempt can always deliver and exit.
	done := make(chan outcome[T], 1)
	go func() {
		value, err := op(attemptCtx)
		done <- outcome[T]{value: value, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return zero, classify(ctx, attemptCtx, timeout, out.err)
		}
		return out.value, nil
	case <-attemptCtx.Done():
		return zero, classify(ctx, attemptCtx, timeout, attemptCtx.Err())
	}
}

// classify turns failures caused by the attempt context into timeout or cancellation errors.
func classify(parent, attemptCtx context.Context, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return NewCanceledError(parent.Err())
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError(timeout, err)
	}
	return err
}
