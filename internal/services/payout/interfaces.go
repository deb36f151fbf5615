package payout

import (
	"context"

	"bazaar/internal/gateway"
	"bazaar/internal/models"
)

// Service is the transfer orchestrator: it creates payouts from capturable
// payments or verified COD remittances, drives the payout state machine and
// talks to the gateway.
type Service interface {
	CreatePayout(ctx context.Context, input CreatePayoutInput) (*models.Payout, error)
	InitiateTransfer(ctx context.Context, payoutID string) (*models.Payout, error)
	RetryPayout(ctx context.Context, payoutID string) (*models.Payout, error)

	HoldPayout(ctx context.Context, payoutID, reason string) (*models.Payout, error)
	ReleasePayout(ctx context.Context, payoutID string) (*models.Payout, error)
	ReversePayout(ctx context.Context, payoutID, reason string) (*models.Payout, error)
	ReverseByOrderID(ctx context.Context, orderID, reason string) (*models.Payout, error)

	// Webhook-driven transitions; the gateway is the source of truth for
	// settlement outcome.
	MarkTransferProcessed(ctx context.Context, transferID string) (*models.Payout, error)
	MarkTransferFailed(ctx context.Context, transferID string, gerr *gateway.Error) (*models.Payout, error)

	GetPayout(ctx context.Context, payoutID string) (*models.Payout, error)
	GetPayoutSummary(ctx context.Context, vendorID string) (*models.PayoutSummary, error)
	GetPayoutsByStatus(ctx context.Context, vendorID, status string, limit, offset int) ([]*models.Payout, int64, error)
}

// CreatePayoutInput describes one settlement event to pay out.
type CreatePayoutInput struct {
	VendorID     string
	OrderID      string
	PaymentID    string
	RemittanceID string
	GrossAmount  int64
	Currency     string
	Hold         bool
	HoldReason   string
	Metadata     map[string]interface{}
}

// Scheduler is the retry handoff the orchestrator calls after a failed
// transfer attempt.
type Scheduler interface {
	Schedule(ctx context.Context, p *models.Payout) error
}
