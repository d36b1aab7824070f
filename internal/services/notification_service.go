package services

import (
	"context"

	"github.com/iyunix/go-subportal/internal/domain"
	"github.com/iyunix/go-subportal/internal/repository"
)

// NotificationService delivers error toasts to portal clients. It satisfies ai.Notifier.
type NotificationService struct {
	repo   repository.NotificationRepository
	logger Logger
}

func NewNotificationService(repo repository.NotificationRepository, logger Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

func (s *NotificationService) NotifyError(ctx context.Context, clientID, message string) {
	s.logger.Warn("notifying client", "client", clientID, "message", message)
	n := &domain.Notification{
		ClientID: clientID,
		Level:    domain.NotificationError,
		Message:  message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to store notification", "client", clientID, "error", err)
	}
}

func (s *NotificationService) List(ctx context.Context, clientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	return s.repo.FindByClient(ctx, clientID, unreadOnly, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, clientID string, id uint) error {
	return s.repo.MarkRead(ctx, clientID, id)
}
