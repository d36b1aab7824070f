// File: internal/domain/invocation.go
package domain

import "time"

type InvocationStatus string

const (
	InvocationSucceeded InvocationStatus = "succeeded"
	InvocationFailed    InvocationStatus = "failed"
	InvocationRejected  InvocationStatus = "rejected"
)

// Invocation records one call of a remote AI function made on behalf of a portal client.
type Invocation struct {
	ID         string           `json:"id" gorm:"primaryKey;size:36"`
	ClientID   string           `json:"client_id" gorm:"index;not null;size:128"`
	Function   string           `json:"function" gorm:"not null;size:128"`
	Status     InvocationStatus `json:"status" gorm:"not null;size:16;index"`
	Attempts   int              `json:"attempts" gorm:"not null;default:0"`
	DurationMs int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}
