// File: internal/repository/notification_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/iyunix/go-subportal/internal/domain"
)

type gormNotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	if notification.ClientID == "" {
		return errors.New("notification client is required")
	}
	if notification.Level == "" {
		notification.Level = domain.NotificationInfo
	}
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *gormNotificationRepository) FindByClient(ctx context.Context, clientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := r.db.WithContext(ctx).Where("client_id = ?", clientID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var notifications []domain.Notification
	err := query.Order("created_at DESC").Order("id DESC").Limit(clampLimit(limit)).Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead only touches notifications owned by clientID.
func (r *gormNotificationRepository) MarkRead(ctx context.Context, clientID string, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND client_id = ?", id, clientID).
		Update("read_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
