package repositories

import (
	"context"
	"errors"
	"fmt"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

var ErrRiskProfileNotFound = errors.New("customer risk profile not found")

// RiskRepository stores per-customer risk profiles.
type RiskRepository interface {
	GetByCustomerID(ctx context.Context, customerID string) (*models.CustomerRiskProfile, error)
	Save(ctx context.Context, p *models.CustomerRiskProfile) error
}

type riskRepository struct {
	db *gorm.DB
}

func NewRiskRepository(db *gorm.DB) RiskRepository {
	return &riskRepository{db: db}
}

func (r *riskRepository) GetByCustomerID(ctx context.Context, customerID string) (*models.CustomerRiskProfile, error) {
	var p models.CustomerRiskProfile
	err := r.db.WithContext(ctx).First(&p, "customer_id = ?", customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRiskProfileNotFound
		}
		return nil, fmt.Errorf("failed to get risk profile: %w", err)
	}
	return &p, nil
}

func (r *riskRepository) Save(ctx context.Context, p *models.CustomerRiskProfile) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to save risk profile %s: %w", p.CustomerID, err)
	}
	return nil
}
