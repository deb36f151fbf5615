package models

import "time"

// Vendor settlement account statuses
const (
	VendorStatusPending     = "pending"
	VendorStatusUnderReview = "under_review"
	VendorStatusVerified    = "verified"
	VendorStatusRejected    = "rejected"
	VendorStatusSuspended   = "suspended"
)

// VendorSettlementAccount is a vendor's payout destination and commission
// terms. Created once at onboarding; a rejected account is terminal and a new
// onboarding attempt creates a fresh record. Accounts are never deleted, only
// status-transitioned, for audit purposes.
type VendorSettlementAccount struct {
	ID                   uint   `gorm:"primarykey"`
	VendorID             string `gorm:"uniqueIndex;not null"`
	FundAccountID        string // gateway-side payout destination reference
	BusinessName         string
	CommissionPercentage float64 `gorm:"not null"`
	AutoPayoutEnabled    bool    `gorm:"default:true"`
	WithholdingApplicable bool   `gorm:"default:true"`
	TaxID                string  // legal tax identifier; lower withholding tier when present
	Status               string  `gorm:"not null;default:'pending';index"`
	ReviewedBy           string
	ReviewedAt           *time.Time
	SuspendedAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Eligible reports whether payouts may be created against this account.
func (a *VendorSettlementAccount) Eligible() bool {
	return a.Status == VendorStatusVerified
}
