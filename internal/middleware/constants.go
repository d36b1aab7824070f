// File: internal/middleware/constants.go
package middleware

// Context keys for middleware communication
type contextKey string

const (
	ClientIDKey contextKey = "client_id"
)

// ClientIDHeader carries the portal client identifier set by the front-end.
const ClientIDHeader = "X-Client-ID"
