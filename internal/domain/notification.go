// File: internal/domain/notification.go
package domain

import "time"

type NotificationLevel string

const (
	NotificationError NotificationLevel = "error"
	NotificationInfo  NotificationLevel = "info"
)

// Notification is a toast shown to a portal client.
type Notification struct {
	ID        uint              `json:"id" gorm:"primarykey"`
	ClientID  string            `json:"client_id" gorm:"index;not null;size:128"`
	Level     NotificationLevel `json:"level" gorm:"not null;size:16"`
	Message   string            `json:"message" gorm:"not null"`
	ReadAt    *time.Time        `json:"read_at,omitempty" gorm:"default:null"`
	CreatedAt time.Time         `json:"created_at"`
}

// IsRead reports whether the client has dismissed the notification.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// MarkRead stamps the notification as read.
func (n *Notification) MarkRead() {
	now := time.Now()
	n.ReadAt = &now
}
