package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/iyunix/go-subportal/internal/ratelimit"
)

var validClientID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// ClientIdentity stores the caller's client id in the request context. Requests without a usable
// X-Client-ID header are keyed by their IP address.
func ClientIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := r.Header.Get(ClientIDHeader)
		if !validClientID.MatchString(clientID) {
			clientID = "ip:" + ratelimit.GetClientIP(r)
		}
		ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientID returns the id placed by ClientIdentity, or "" when absent.
func ClientID(ctx context.Context) string {
	id, _ := ctx.Value(ClientIDKey).(string)
	return id
}
