// File: internal/repository/interface.go
package repository

import (
	"context"
	"errors"

	"github.com/iyunix/go-subportal/internal/domain"
)

var ErrNotificationNotFound = errors.New("notification not found")

// InvocationRepository stores the audit trail of remote AI calls.
type InvocationRepository interface {
	Create(ctx context.Context, invocation *domain.Invocation) error
	FindRecentByClient(ctx context.Context, clientID string, limit int) ([]domain.Invocation, error)
}

// NotificationRepository stores toasts addressed to portal clients.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	FindByClient(ctx context.Context, clientID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, clientID string, id uint) error
}
