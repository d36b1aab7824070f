// In: internal/middleware/recovery.go

package middleware

import (
	"net/http"
	"runtime/debug"
)

func RecoverPanic(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path, "stack", string(debug.Stack()))

					w.Header().Set("Connection", "close")
					http.Error(w, "Something went wrong on our end.", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
