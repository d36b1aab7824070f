// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration
type Config struct {
	PerMinute     int           // Sustained requests per minute per client
	Burst         int           // Requests allowed at once
	IdleTTL       time.Duration // Forget clients idle for this long
	CleanupPeriod time.Duration // How often to clean up old entries
}

// DefaultAIConfig returns defaults for the AI invocation endpoints.
func DefaultAIConfig() *Config {
	return &Config{
		PerMinute:     30,
		Burst:         5,
		IdleTTL:       30 * time.Minute,
		CleanupPeriod: 10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimiter keeps one token bucket per client identifier.
type MemoryRateLimiter struct {
	config  *Config
	clients map[string]*clientLimiter
	mu      sync.Mutex
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryRateLimiter creates a new in-memory rate limiter
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	limiter := &MemoryRateLimiter{
		config:  config,
		clients: make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
	}

	if config.CleanupPeriod > 0 {
		go limiter.cleanupLoop()
	}

	return limiter
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Allow checks if a request should be allowed
func (rl *MemoryRateLimiter) Allow(identifier string) (bool, *RateLimitInfo) {
	now := time.Now()

	rl.mu.Lock()
	entry, ok := rl.clients[identifier]
	if !ok {
		perSecond := rate.Limit(float64(rl.config.PerMinute) / 60)
		entry = &clientLimiter{limiter: rate.NewLimiter(perSecond, rl.config.Burst)}
		rl.clients[identifier] = entry
	}
	entry.lastSeen = now
	rl.mu.Unlock()

	info := &RateLimitInfo{Limit: rl.config.Burst}
	reservation := entry.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, info
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		info.RetryAfter = delay
		return false, info
	}

	info.Allowed = true
	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	info.Remaining = remaining
	return true, info
}

// cleanupLoop periodically removes idle clients
func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryRateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for identifier, entry := range rl.clients {
		if now.Sub(entry.lastSeen) > rl.config.IdleTTL {
			delete(rl.clients, identifier)
		}
	}
}

// Close stops the cleanup goroutine
func (rl *MemoryRateLimiter) Close() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the caller address, preferring proxy headers.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
