package models

import "time"

// Alert kinds.
const (
	AlertKindRetryExhausted = "retry_exhausted"
	AlertKindWebhookFailed  = "webhook_failed"
)

// AdminAlert is one entry in the operator escalation queue. Exactly one
// alert exists per subject: the payout id when the retry budget is
// exhausted, the webhook event key when reconciliation of a delivery fails.
// Alerts carry the last structured gateway error where one exists.
type AdminAlert struct {
	ID               uint   `gorm:"primarykey"`
	Kind             string `gorm:"index;not null"`
	SubjectID        string `gorm:"uniqueIndex;not null"`
	VendorID         string `gorm:"index"`
	OrderID          string
	Reason           string
	ErrorCode        string
	ErrorDescription string
	RetryCount       int
	Acknowledged     bool `gorm:"default:false;index"`
	AcknowledgedBy   string
	AcknowledgedAt   *time.Time
	CreatedAt        time.Time
}
