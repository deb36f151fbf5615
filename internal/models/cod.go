package models

import "time"

// COD remittance statuses
const (
	RemittanceStatusPending    = "pending"
	RemittanceStatusVerified   = "verified"
	RemittanceStatusMismatched = "mismatched"
	RemittanceStatusCompleted  = "completed"
)

// CODRemittance is a logistics partner's report of cash collected on
// delivery, reconciled against the order before any payout is created.
// A mismatched remittance requires manual reconciliation and is never
// silently corrected.
type CODRemittance struct {
	ID               string `gorm:"primaryKey"`
	OrderID          string `gorm:"index;not null"`
	VendorID         string `gorm:"index;not null"`
	Amount           int64  `gorm:"not null"`
	ExpectedAmount   int64
	LogisticsPartner string
	Status           string  `gorm:"not null;default:'pending';index"`
	PayoutID         *string `gorm:"index"`
	Notes            string
	CreatedAt        time.Time
	VerifiedAt       *time.Time
	UpdatedAt        time.Time
}

// Risk levels
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// NeutralRiskScore is the starting score of a customer with no history.
const NeutralRiskScore = 50

// CustomerRiskProfile is a rolling per-buyer profile gating COD eligibility
// and order-value ceilings. Lazily created with a neutral default on first
// COD check, updated after every order outcome.
type CustomerRiskProfile struct {
	CustomerID         string `gorm:"primaryKey"`
	TotalOrders        int
	SuccessfulCODOrders int
	FailedCODOrders    int
	ReturnedOrders     int
	ReturnRate         float64
	RiskScore          int    `gorm:"default:50"`
	RiskLevel          string `gorm:"default:'medium'"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// LevelForScore maps a risk score onto a risk level.
func LevelForScore(score int) string {
	switch {
	case score < 30:
		return RiskLevelLow
	case score < 70:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}
