package ai

import (
	"context"
	"time"
)

// SleepFunc suspends between attempts.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep blocks for d. It only returns early when ctx is done, in which case the context error is returned.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
