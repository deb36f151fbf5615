package models

import "time"

// Payout statuses
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
	PayoutStatusOnHold     = "on_hold"
	PayoutStatusReversed   = "reversed"
)

// Payout is one planned or executed movement of net funds to a vendor for a
// single settlement event. All amounts are integer minor currency units.
// Rows are never deleted; terminal payouts are retained for reconciliation.
type Payout struct {
	ID        string `gorm:"primaryKey"`
	Reference string `gorm:"uniqueIndex"` // short code quoted in vendor communication

	VendorID     string  `gorm:"index;not null"`
	OrderID      string  `gorm:"index;uniqueIndex:idx_payouts_order_payment"`
	PaymentID    string  `gorm:"uniqueIndex:idx_payouts_order_payment"`
	RemittanceID *string `gorm:"index"` // set for COD-settled payouts

	GrossAmount          int64 `gorm:"not null"`
	CommissionPercentage float64
	CommissionAmount     int64
	TaxAmount            int64
	NetPayout            int64  `gorm:"not null"`
	Currency             string `gorm:"default:'INR'"`

	// Gateway-side transfer reference, set once the transfer is accepted.
	TransferID string `gorm:"index"`

	Status      string `gorm:"not null;default:'pending';index"`
	RetryCount  int    `gorm:"default:0"`
	MaxRetries  int    `gorm:"default:5"`
	NextRetryAt *time.Time

	// Last structured gateway failure.
	ErrorCode        string
	ErrorDescription string
	ErrorStep        string
	ErrorReason      string

	HoldReason     string
	ReversalReason string

	VendorNotified bool `gorm:"default:false"`
	AdminNotified  bool `gorm:"default:false"`

	Metadata JSON `gorm:"type:jsonb"`

	InitiatedAt *time.Time
	ProcessedAt *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
	ReversedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RetriesExhausted reports whether the retry budget is spent.
func (p *Payout) RetriesExhausted() bool {
	return p.RetryCount >= p.MaxRetries
}

// PayoutSummary aggregates a vendor's payouts for dashboard use.
type PayoutSummary struct {
	VendorID         string `json:"vendor_id"`
	PendingCount     int64  `json:"pending_count"`
	PendingAmount    int64  `json:"pending_amount"`
	ProcessingCount  int64  `json:"processing_count"`
	ProcessingAmount int64  `json:"processing_amount"`
	CompletedCount   int64  `json:"completed_count"`
	CompletedAmount  int64  `json:"completed_amount"`
	FailedCount      int64  `json:"failed_count"`
	FailedAmount     int64  `json:"failed_amount"`
	OnHoldCount      int64  `json:"on_hold_count"`
	OnHoldAmount     int64  `json:"on_hold_amount"`
	ReversedCount    int64  `json:"reversed_count"`
	ReversedAmount   int64  `json:"reversed_amount"`
}
