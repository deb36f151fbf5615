package repositories

import (
	"context"
	"fmt"
	"time"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// AlertRepository stores the operator escalation queue.
type AlertRepository interface {
	Create(ctx context.Context, a *models.AdminAlert) error
	ListOpen(ctx context.Context, limit, offset int) ([]*models.AdminAlert, int64, error)
	Acknowledge(ctx context.Context, id uint, operator string) error
}

type alertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, a *models.AdminAlert) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create admin alert: %w", err)
	}
	return nil
}

func (r *alertRepository) ListOpen(ctx context.Context, limit, offset int) ([]*models.AdminAlert, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.AdminAlert{}).Where("acknowledged = ?", false)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	var alerts []*models.AdminAlert
	if err := q.Order("created_at ASC").Limit(limit).Offset(offset).Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, total, nil
}

func (r *alertRepository) Acknowledge(ctx context.Context, id uint, operator string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.AdminAlert{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"acknowledged":    true,
			"acknowledged_by": operator,
			"acknowledged_at": &now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to acknowledge alert %d: %w", id, res.Error)
	}
	return nil
}
