package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func intPtr(v int) *int { return &v }

func TestRetry_AllAttemptsFail(t *testing.T) {
	for n := 1; n <= 5; n++ {
		t.Run(fmt.Sprintf("max_retries_%d", n), func(t *testing.T) {
			sleeper := &recordingSleeper{}
			c := NewControllerWithSleep(sleeper.Sleep, nil)

			var calls atomic.Int32
			var last error
			_, err := Retry(context.Background(), c, Options{MaxRetries: n, BaseDelay: time.Millisecond, Timeout: time.Second},
				func(ctx context.Context) (string, error) {
					k := calls.Add(1)
					last = fmt.Errorf("attempt %d failed", k)
					return "", last
				})

			require.Error(t, err)
			assert.Equal(t, int32(n), calls.Load())
			assert.True(t, IsExhausted(err))
			assert.ErrorIs(t, err, last)
			assert.Equal(t, fmt.Sprintf("attempt %d failed", n), UserMessage(err))
			assert.Len(t, sleeper.Delays(), n-1)
		})
	}
}

func TestRetry_StopsAtFirstSuccess(t *testing.T) {
	for k := 1; k <= 4; k++ {
		t.Run(fmt.Sprintf("success_at_%d", k), func(t *testing.T) {
			sleeper := &recordingSleeper{}
			c := NewControllerWithSleep(sleeper.Sleep, nil)

			var calls atomic.Int32
			got, err := Retry(context.Background(), c, Options{MaxRetries: 4, BaseDelay: time.Millisecond, Timeout: time.Second},
				func(ctx context.Context) (string, error) {
					n := calls.Add(1)
					if int(n) < k {
						return "", errors.New("transient")
					}
					return fmt.Sprintf("result-%d", n), nil
				})

			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("result-%d", k), got)
			assert.Equal(t, int32(k), calls.Load())
		})
	}
}

func TestRetry_BackoffDoublesFromBase(t *testing.T) {
	sleeper := &recordingSleeper{}
	c := NewControllerWithSleep(sleeper.Sleep, nil)

	var retries []int
	opts := Options{
		MaxRetries: 5,
		BaseDelay:  250 * time.Millisecond,
		Timeout:    time.Second,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			retries = append(retries, attempt)
		},
	}
	_, err := Retry(context.Background(), c, opts, func(ctx context.Context) (int, error) {
		return 0, errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		250 * time.Millisecond,
		500 * time.Millisecond,
		1000 * time.Millisecond,
		2000 * time.Millisecond,
	}, sleeper.Delays())
	assert.Equal(t, []int{1, 2, 3, 4}, retries)
}

func TestRetry_SingleAttemptNeverWaits(t *testing.T) {
	for _, fail := range []bool{true, false} {
		sleeper := &recordingSleeper{}
		c := NewControllerWithSleep(sleeper.Sleep, nil)

		var calls atomic.Int32
		_, err := Retry(context.Background(), c, Options{MaxRetries: 1, BaseDelay: time.Second, Timeout: time.Second},
			func(ctx context.Context) (string, error) {
				calls.Add(1)
				if fail {
					return "", errors.New("boom")
				}
				return "ok", nil
			})

		if fail {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
		assert.Equal(t, int32(1), calls.Load())
		assert.Empty(t, sleeper.Delays())
	}
}

func TestRetry_SucceedsOnThirdAttemptWithRealDelays(t *testing.T) {
	c := NewController(nil)

	var calls atomic.Int32
	start := time.Now()
	got, err := Retry(context.Background(), c, Options{MaxRetries: 3, BaseDelay: 100 * time.Millisecond, Timeout: time.Second},
		func(ctx context.Context) (string, error) {
			if calls.Add(1) < 3 {
				return "", errors.New("unavailable")
			}
			return "third", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "third", got)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestRetry_TimeoutsAreRetried(t *testing.T) {
	sleeper := &recordingSleeper{}
	c := NewControllerWithSleep(sleeper.Sleep, nil)

	var calls atomic.Int32
	_, err := Retry(context.Background(), c, Options{MaxRetries: 2, BaseDelay: 10 * time.Millisecond, Timeout: 20 * time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls.Add(1)
			<-ctx.Done()
			return "", ctx.Err()
		})

	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, IsTimeout(err))
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sleeper.Delays())
}

func TestRetry_LateResultFromAbandonedAttemptIsIgnored(t *testing.T) {
	c := NewController(nil)

	var calls atomic.Int32
	var staleDone atomic.Bool
	got, err := Retry(context.Background(), c, Options{MaxRetries: 2, BaseDelay: time.Millisecond, Timeout: 20 * time.Millisecond},
		func(ctx context.Context) (string, error) {
			if calls.Add(1) == 1 {
				// Ignores the abort signal and resolves after the deadline.
				time.Sleep(60 * time.Millisecond)
				staleDone.Store(true)
				return "stale", nil
			}
			return "fresh", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
	assert.Equal(t, int32(2), calls.Load())
	assert.Eventually(t, staleDone.Load, time.Second, 10*time.Millisecond)
}

func TestRetry_InvalidOptionsNeverCallOperation(t *testing.T) {
	cases := map[string]Options{
		"zero retries":     {MaxRetries: 0, BaseDelay: time.Millisecond, Timeout: time.Second},
		"negative delay":   {MaxRetries: 3, BaseDelay: -time.Millisecond, Timeout: time.Second},
		"zero timeout":     {MaxRetries: 3, BaseDelay: time.Millisecond, Timeout: 0},
		"negative timeout": {MaxRetries: 3, BaseDelay: time.Millisecond, Timeout: -time.Second},
		"too many retries": {MaxRetries: MaxRetriesLimit + 1, BaseDelay: 0, Timeout: time.Second},
		"delay too long":   {MaxRetries: 3, BaseDelay: MaxBaseDelay + time.Millisecond, Timeout: time.Second},
		"timeout too long": {MaxRetries: 3, BaseDelay: time.Millisecond, Timeout: MaxTimeout + time.Millisecond},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewControllerWithSleep((&recordingSleeper{}).Sleep, nil)
			var calls atomic.Int32
			_, err := Retry(context.Background(), c, opts, func(ctx context.Context) (string, error) {
				calls.Add(1)
				return "", nil
			})
			assert.True(t, IsValidation(err))
			assert.Zero(t, calls.Load())
		})
	}
}

func TestRetry_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewControllerWithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return Sleep(ctx, d)
	}, nil)

	var calls atomic.Int32
	_, err := Retry(ctx, c, Options{MaxRetries: 3, BaseDelay: time.Second, Timeout: time.Second},
		func(ctx context.Context) (string, error) {
			calls.Add(1)
			return "", errors.New("fail")
		})

	assert.True(t, IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvokeOptions_Resolve(t *testing.T) {
	defaults := DefaultOptions()

	resolved := InvokeOptions{}.Resolve(defaults)
	assert.Equal(t, 3, resolved.MaxRetries)
	assert.Equal(t, time.Second, resolved.BaseDelay)
	assert.Equal(t, 30*time.Second, resolved.Timeout)

	resolved = InvokeOptions{MaxRetries: intPtr(5), BaseDelayMs: intPtr(100), TimeoutMs: intPtr(0)}.Resolve(defaults)
	assert.Equal(t, 5, resolved.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, resolved.BaseDelay)
	assert.Equal(t, time.Duration(0), resolved.Timeout)
	assert.True(t, IsValidation(resolved.Validate()))
}

func TestInvokeOptions_ResolveRejectsHugeValues(t *testing.T) {
	huge := int(math.MaxInt64 / int64(time.Millisecond))
	cases := map[string]InvokeOptions{
		"retries":             {MaxRetries: intPtr(1000000000), BaseDelayMs: intPtr(0)},
		"overflowing delay":   {BaseDelayMs: intPtr(huge + 1)},
		"negative overflow":   {BaseDelayMs: intPtr(-huge - 1)},
		"overflowing timeout": {TimeoutMs: intPtr(math.MaxInt64)},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			resolved := opts.Resolve(DefaultOptions())
			assert.True(t, IsValidation(resolved.Validate()))
		})
	}

	resolved := InvokeOptions{TimeoutMs: intPtr(huge + 1)}.Resolve(DefaultOptions())
	assert.Equal(t, time.Duration(math.MaxInt64), resolved.Timeout)
}

func TestRetry_OnAttemptCountsStartedAttemptsOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewControllerWithSleep(Sleep, nil)

	var started []int
	opts := Options{
		MaxRetries: 3,
		BaseDelay:  time.Hour,
		Timeout:    time.Second,
		OnAttempt:  func(attempt int) { started = append(started, attempt) },
		OnRetry:    func(int, time.Duration, error) { cancel() },
	}
	_, err := Retry(ctx, c, opts, func(ctx context.Context) (string, error) {
		return "", errors.New("fail")
	})

	assert.True(t, IsCanceled(err))
	assert.Equal(t, []int{1}, started)
}
