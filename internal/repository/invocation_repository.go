// File: internal/repository/invocation_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/iyunix/go-subportal/internal/domain"
)

const maxPageSize = 200

type gormInvocationRepository struct {
	db *gorm.DB
}

func NewInvocationRepository(db *gorm.DB) InvocationRepository {
	return &gormInvocationRepository{db: db}
}

func (r *gormInvocationRepository) Create(ctx context.Context, invocation *domain.Invocation) error {
	if invocation.ID == "" {
		return errors.New("invocation ID is required")
	}
	if invocation.ClientID == "" || invocation.Function == "" {
		return errors.New("invocation client and function are required")
	}
	if err := r.db.WithContext(ctx).Create(invocation).Error; err != nil {
		return fmt.Errorf("failed to create invocation: %w", err)
	}
	return nil
}

func (r *gormInvocationRepository) FindRecentByClient(ctx context.Context, clientID string, limit int) ([]domain.Invocation, error) {
	limit = clampLimit(limit)

	var invocations []domain.Invocation
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&invocations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invocations: %w", err)
	}
	return invocations, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
