// File: internal/middleware/ratelimit.go
package middleware

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/iyunix/go-subportal/internal/ratelimit"
)

// RateLimitMiddleware throttles each portal client independently. It must run after ClientIdentity.
func RateLimitMiddleware(limiter *ratelimit.MemoryRateLimiter, logger Logger) func(http.Handler) http.Handler {
	return limitBy(limiter, logger, func(r *http.Request) string {
		if id := ClientID(r.Context()); id != "" {
			return id
		}
		return "ip:" + ratelimit.GetClientIP(r)
	})
}

// IPRateLimitMiddleware throttles all client ids arriving from one address together, so rotating
// X-Client-ID values cannot lift the per-client limit.
func IPRateLimitMiddleware(limiter *ratelimit.MemoryRateLimiter, logger Logger) func(http.Handler) http.Handler {
	return limitBy(limiter, logger, func(r *http.Request) string {
		return "ip:" + ratelimit.GetClientIP(r)
	})
}

func limitBy(limiter *ratelimit.MemoryRateLimiter, logger Logger, key func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := key(r)
			allowed, info := limiter.Allow(identifier)

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))

			if !allowed {
				logger.Info("rate limited", "key", identifier, "path", r.URL.Path)

				retryAfter := int(math.Ceil(info.RetryAfter.Seconds()))
				if retryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      "Too many requests. Please try again later.",
					"retryAfter": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
