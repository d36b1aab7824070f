package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRateLimiter_BurstThenBlocks(t *testing.T) {
	rl := NewMemoryRateLimiter(&Config{PerMinute: 1, Burst: 2})
	defer rl.Close()

	allowed, info := rl.Allow("imprensa")
	assert.True(t, allowed)
	assert.Equal(t, 1, info.Remaining)

	allowed, _ = rl.Allow("imprensa")
	assert.True(t, allowed)

	allowed, info = rl.Allow("imprensa")
	assert.False(t, allowed)
	assert.Greater(t, info.RetryAfter, time.Duration(0))

	allowed, _ = rl.Allow("gabinete")
	assert.True(t, allowed, "clients have independent buckets")
}

func TestMemoryRateLimiter_CleanupForgetsIdleClients(t *testing.T) {
	rl := NewMemoryRateLimiter(&Config{PerMinute: 60, Burst: 1, IdleTTL: time.Minute})
	defer rl.Close()

	rl.Allow("a")
	rl.cleanup(time.Now().Add(2 * time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.clients)
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "10.0.0.7", GetClientIP(r))

	r.Header.Set("X-Real-IP", "172.16.0.1")
	assert.Equal(t, "172.16.0.1", GetClientIP(r))

	r.Header.Set("X-Forwarded-For", "200.1.2.3, 10.0.0.1")
	assert.Equal(t, "200.1.2.3", GetClientIP(r))
}
