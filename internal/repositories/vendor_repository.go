package repositories

import (
	"context"
	"errors"
	"fmt"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

var (
	ErrVendorNotFound   = errors.New("vendor settlement account not found")
	ErrVendorExists     = errors.New("vendor settlement account already exists")
)

// VendorRepository stores vendor settlement accounts. Accounts are never
// deleted, only status-transitioned.
type VendorRepository interface {
	Create(ctx context.Context, a *models.VendorSettlementAccount) error
	GetByVendorID(ctx context.Context, vendorID string) (*models.VendorSettlementAccount, error)
	Update(ctx context.Context, a *models.VendorSettlementAccount) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.VendorSettlementAccount, int64, error)
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) Create(ctx context.Context, a *models.VendorSettlementAccount) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrVendorExists
		}
		return fmt.Errorf("failed to create vendor account: %w", err)
	}
	return nil
}

func (r *vendorRepository) GetByVendorID(ctx context.Context, vendorID string) (*models.VendorSettlementAccount, error) {
	var a models.VendorSettlementAccount
	err := r.db.WithContext(ctx).First(&a, "vendor_id = ?", vendorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("failed to get vendor account: %w", err)
	}
	return &a, nil
}

func (r *vendorRepository) Update(ctx context.Context, a *models.VendorSettlementAccount) error {
	if err := r.db.WithContext(ctx).Save(a).Error; err != nil {
		return fmt.Errorf("failed to update vendor account %s: %w", a.VendorID, err)
	}
	return nil
}

func (r *vendorRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.VendorSettlementAccount, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.VendorSettlementAccount{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count vendor accounts: %w", err)
	}

	var accounts []*models.VendorSettlementAccount
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&accounts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list vendor accounts: %w", err)
	}
	return accounts, total, nil
}
