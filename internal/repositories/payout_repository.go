package repositories

import (
	"context"
	"errors"
	"fmt"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

var (
	ErrPayoutNotFound  = errors.New("payout not found")
	ErrDuplicatePayout = errors.New("payout already exists for this order and payment")
)

// PayoutRepository is the source of truth for payout records and their
// lifecycle state.
type PayoutRepository interface {
	Create(ctx context.Context, p *models.Payout) error
	GetByID(ctx context.Context, id string) (*models.Payout, error)
	GetByTransferID(ctx context.Context, transferID string) (*models.Payout, error)
	GetByOrderAndPayment(ctx context.Context, orderID, paymentID string) (*models.Payout, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Payout, error)
	Update(ctx context.Context, p *models.Payout) error
	ListByVendor(ctx context.Context, vendorID, status string, limit, offset int) ([]*models.Payout, int64, error)
	Summary(ctx context.Context, vendorID string) (*models.PayoutSummary, error)
	// MarkAdminNotified flips admin_notified exactly once. It reports whether
	// this call performed the flip, so escalation side effects run once even
	// under concurrent retries.
	MarkAdminNotified(ctx context.Context, payoutID string) (bool, error)
}

type payoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) Create(ctx context.Context, p *models.Payout) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePayout
		}
		return fmt.Errorf("failed to create payout: %w", err)
	}
	return nil
}

func (r *payoutRepository) GetByID(ctx context.Context, id string) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return &p, nil
}

func (r *payoutRepository) GetByTransferID(ctx context.Context, transferID string) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).First(&p, "transfer_id = ?", transferID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout by transfer: %w", err)
	}
	return &p, nil
}

func (r *payoutRepository) GetByOrderAndPayment(ctx context.Context, orderID, paymentID string) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).
		First(&p, "order_id = ? AND payment_id = ?", orderID, paymentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout by order and payment: %w", err)
	}
	return &p, nil
}

func (r *payoutRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).First(&p, "order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout by order: %w", err)
	}
	return &p, nil
}

func (r *payoutRepository) Update(ctx context.Context, p *models.Payout) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to update payout %s: %w", p.ID, err)
	}
	return nil
}

func (r *payoutRepository) ListByVendor(ctx context.Context, vendorID, status string, limit, offset int) ([]*models.Payout, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Payout{}).Where("vendor_id = ?", vendorID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payouts: %w", err)
	}

	var payouts []*models.Payout
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&payouts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payouts: %w", err)
	}
	return payouts, total, nil
}

func (r *payoutRepository) Summary(ctx context.Context, vendorID string) (*models.PayoutSummary, error) {
	type row struct {
		Status string
		Count  int64
		Amount int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Payout{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(net_payout), 0) AS amount").
		Where("vendor_id = ?", vendorID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payouts: %w", err)
	}

	summary := &models.PayoutSummary{VendorID: vendorID}
	for _, rw := range rows {
		switch rw.Status {
		case models.PayoutStatusPending:
			summary.PendingCount, summary.PendingAmount = rw.Count, rw.Amount
		case models.PayoutStatusProcessing:
			summary.ProcessingCount, summary.ProcessingAmount = rw.Count, rw.Amount
		case models.PayoutStatusCompleted:
			summary.CompletedCount, summary.CompletedAmount = rw.Count, rw.Amount
		case models.PayoutStatusFailed:
			summary.FailedCount, summary.FailedAmount = rw.Count, rw.Amount
		case models.PayoutStatusOnHold:
			summary.OnHoldCount, summary.OnHoldAmount = rw.Count, rw.Amount
		case models.PayoutStatusReversed:
			summary.ReversedCount, summary.ReversedAmount = rw.Count, rw.Amount
		}
	}
	return summary, nil
}

func (r *payoutRepository) MarkAdminNotified(ctx context.Context, payoutID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payout{}).
		Where("id = ? AND admin_notified = ?", payoutID, false).
		Update("admin_notified", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark admin notified: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
