// File: internal/services/ai/retry.go
package ai

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1000 * time.Millisecond
	DefaultTimeout    = 30000 * time.Millisecond

	// Upper bounds accepted from callers.
	MaxRetriesLimit = 10
	MaxBaseDelay    = 60 * time.Second
	MaxTimeout      = 10 * time.Minute
)

// Options controls one retried call.
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration

	// OnRetry runs before each backoff wait with the 1-indexed failed attempt.
	OnRetry func(attempt int, delay time.Duration, err error)
	// OnAttempt runs as each attempt starts.
	OnAttempt func(attempt int)
}

func DefaultOptions() Options {
	return Options{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		Timeout:    DefaultTimeout,
	}
}

func (o Options) Validate() error {
	if o.MaxRetries < 1 {
		return NewValidationError("maxRetries must be at least 1")
	}
	if o.MaxRetries > MaxRetriesLimit {
		return NewValidationError(fmt.Sprintf("maxRetries cannot exceed %d", MaxRetriesLimit))
	}
	if o.BaseDelay < 0 {
		return NewValidationError("baseDelayMs cannot be negative")
	}
	if o.BaseDelay > MaxBaseDelay {
		return NewValidationError(fmt.Sprintf("baseDelayMs cannot exceed %d", MaxBaseDelay.Milliseconds()))
	}
	if o.Timeout <= 0 {
		return NewValidationError("timeoutMs must be positive")
	}
	if o.Timeout > MaxTimeout {
		return NewValidationError(fmt.Sprintf("timeoutMs cannot exceed %d", MaxTimeout.Milliseconds()))
	}
	return nil
}

// InvokeOptions is the caller-facing options object. Every key is optional.
type InvokeOptions struct {
	MaxRetries  *int `json:"maxRetries,omitempty"`
	BaseDelayMs *int `json:"baseDelayMs,omitempty"`
	TimeoutMs   *int `json:"timeoutMs,omitempty"`

	OnRetry   func(attempt int, delay time.Duration, err error) `json:"-"`
	OnAttempt func(attempt int)                                 `json:"-"`
}

// Resolve fills unset keys from defaults.
func (o InvokeOptions) Resolve(defaults Options) Options {
	resolved := defaults
	if o.MaxRetries != nil {
		resolved.MaxRetries = *o.MaxRetries
	}
	if o.BaseDelayMs != nil {
		resolved.BaseDelay = millis(*o.BaseDelayMs)
	}
	if o.TimeoutMs != nil {
		resolved.Timeout = millis(*o.TimeoutMs)
	}
	if o.OnRetry != nil {
		resolved.OnRetry = o.OnRetry
	}
	if o.OnAttempt != nil {
		resolved.OnAttempt = o.OnAttempt
	}
	return resolved
}

// millis converts ms to a Duration, saturating instead of overflowing so Validate sees the bound.
func millis(ms int) time.Duration {
	const limit = math.MaxInt64 / int64(time.Millisecond)
	switch {
	case int64(ms) > limit:
		return time.Duration(math.MaxInt64)
	case int64(ms) < -limit:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

// Controller runs operations with timeout and exponential backoff.
type Controller struct {
	sleep  SleepFunc
	logger Logger
}

func NewController(logger Logger) *Controller {
	return NewControllerWithSleep(Sleep, logger)
}

// NewControllerWithSleep swaps the delay primitive, mostly for tests.
func NewControllerWithSleep(sleep SleepFunc, logger Logger) *Controller {
	if sleep == nil {
		sleep = Sleep
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Controller{sleep: sleep, logger: logger}
}

// newSchedule yields base, 2*base, 4*base, ... with no jitter and no cap.
func newSchedule(base time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Retry runs op up to opts.MaxRetries times. Attempts are strictly sequential; the delay before
// attempt k+1 is BaseDelay*2^(k-1). After the last failure the returned error wraps the final
// attempt's error.
func Retry[T any](ctx context.Context, c *Controller, opts Options, op Operation[T]) (T, error) {
	var zero T
	if err := opts.Validate(); err != nil {
		return zero, err
	}

	schedule := newSchedule(opts.BaseDelay)
	var lastErr error

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		if opts.OnAttempt != nil {
			opts.OnAttempt(attempt)
		}
		value, err := WithTimeout(ctx, opts.Timeout, op)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("operation succeeded after retry", "attempts", attempt)
			}
			return value, nil
		}
		lastErr = err

		if IsCanceled(err) {
			c.logger.Warn("operation cancelled", "attempt", attempt, "error", err)
			return zero, err
		}
		if attempt == opts.MaxRetries {
			break
		}

		delay := schedule.NextBackOff()
		c.logger.Warn("operation failed, retrying", "attempt", attempt, "max_retries", opts.MaxRetries, "delay", delay, "error", err)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, delay, err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return zero, NewCanceledError(err)
		}
	}

	c.logger.Error("operation failed after all retries", "attempts", opts.MaxRetries, "error", lastErr)
	return zero, NewExhaustedError(opts.MaxRetries, lastErr)
}
