package repositories

import (
	"context"
	"errors"
	"fmt"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

var ErrRemittanceNotFound = errors.New("remittance not found")

// RemittanceRepository stores logistics-partner COD remittance reports.
type RemittanceRepository interface {
	Create(ctx context.Context, r *models.CODRemittance) error
	GetByID(ctx context.Context, id string) (*models.CODRemittance, error)
	Update(ctx context.Context, r *models.CODRemittance) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.CODRemittance, int64, error)
}

type remittanceRepository struct {
	db *gorm.DB
}

func NewRemittanceRepository(db *gorm.DB) RemittanceRepository {
	return &remittanceRepository{db: db}
}

func (r *remittanceRepository) Create(ctx context.Context, rem *models.CODRemittance) error {
	if err := r.db.WithContext(ctx).Create(rem).Error; err != nil {
		return fmt.Errorf("failed to create remittance: %w", err)
	}
	return nil
}

func (r *remittanceRepository) GetByID(ctx context.Context, id string) (*models.CODRemittance, error) {
	var rem models.CODRemittance
	err := r.db.WithContext(ctx).First(&rem, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRemittanceNotFound
		}
		return nil, fmt.Errorf("failed to get remittance: %w", err)
	}
	return &rem, nil
}

func (r *remittanceRepository) Update(ctx context.Context, rem *models.CODRemittance) error {
	if err := r.db.WithContext(ctx).Save(rem).Error; err != nil {
		return fmt.Errorf("failed to update remittance %s: %w", rem.ID, err)
	}
	return nil
}

func (r *remittanceRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.CODRemittance, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.CODRemittance{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count remittances: %w", err)
	}

	var rems []*models.CODRemittance
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rems).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list remittances: %w", err)
	}
	return rems, total, nil
}
