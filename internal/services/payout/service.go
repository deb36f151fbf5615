package payout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"bazaar/internal/config"
	domainerrors "bazaar/internal/errors"
	"bazaar/internal/events"
	"bazaar/internal/gateway"
	"bazaar/internal/metrics"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"
	"bazaar/internal/services/split"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
)

type service struct {
	repo      repositories.PayoutRepository
	vendors   repositories.VendorRepository
	store     cache.Store
	gw        gateway.Gateway
	scheduler Scheduler
	publisher events.Publisher
	metrics   metrics.Collector
	cfg       config.Settlement

	newReference func() string
}

// NewService wires the transfer orchestrator. The scheduler is injected
// after construction (SetScheduler) because scheduler and orchestrator
// reference each other.
func NewService(
	repo repositories.PayoutRepository,
	vendors repositories.VendorRepository,
	store cache.Store,
	gw gateway.Gateway,
	publisher events.Publisher,
	collector metrics.Collector,
	cfg config.Settlement,
) *DefaultService {
	ref, err := nanoid.CustomASCII("0123456789ABCDEFGHJKMNPQRSTVWXYZ", 14)
	if err != nil {
		panic(fmt.Sprintf("payout: reference generator: %v", err))
	}
	return &DefaultService{service{
		repo:         repo,
		vendors:      vendors,
		store:        store,
		gw:           gw,
		publisher:    publisher,
		metrics:      collector,
		cfg:          cfg,
		newReference: func() string { return "PO" + ref() },
	}}
}

// DefaultService is the concrete orchestrator.
type DefaultService struct {
	service
}

// SetScheduler injects the retry scheduler after construction.
func (s *DefaultService) SetScheduler(sched Scheduler) {
	s.scheduler = sched
}

func (s *DefaultService) CreatePayout(ctx context.Context, input CreatePayoutInput) (*models.Payout, error) {
	if input.GrossAmount <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}

	account, err := s.vendors.GetByVendorID(ctx, input.VendorID)
	if err != nil {
		if errors.Is(err, repositories.ErrVendorNotFound) {
			return nil, domainerrors.ErrVendorNotFound
		}
		return nil, err
	}
	if !account.Eligible() {
		return nil, domainerrors.ErrAccountNotEligible
	}

	// Idempotent on (order, payment): a webhook and a direct capture racing
	// for the same payment must not create two payouts.
	if input.OrderID != "" || input.PaymentID != "" {
		if existing, err := s.repo.GetByOrderAndPayment(ctx, input.OrderID, input.PaymentID); err == nil {
			return existing, nil
		} else if !errors.Is(err, repositories.ErrPayoutNotFound) {
			return nil, err
		}
	}

	breakdown, err := split.Calculate(
		input.GrossAmount,
		account.CommissionPercentage,
		account.WithholdingApplicable,
		account.TaxID != "",
		split.Config{
			RateWithTaxID: s.cfg.WithholdingRateWithTaxID,
			RateDefault:   s.cfg.WithholdingRateDefault,
			MinAmount:     s.cfg.WithholdingMinAmount,
		},
	)
	if err != nil {
		if errors.Is(err, split.ErrCommissionOutOfRange) {
			return nil, domainerrors.ErrCommissionOutOfRange
		}
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	status := models.PayoutStatusPending
	if input.Hold {
		status = models.PayoutStatusOnHold
	}

	p := &models.Payout{
		ID:                   uuid.NewString(),
		Reference:            s.newReference(),
		VendorID:             input.VendorID,
		OrderID:              input.OrderID,
		PaymentID:            input.PaymentID,
		GrossAmount:          breakdown.GrossAmount,
		CommissionPercentage: account.CommissionPercentage,
		CommissionAmount:     breakdown.CommissionAmount,
		TaxAmount:            breakdown.TaxAmount,
		NetPayout:            breakdown.NetAmount,
		Currency:             currency,
		Status:               status,
		HoldReason:           input.HoldReason,
		MaxRetries:           s.cfg.MaxRetries,
		Metadata:             models.NewJSON(input.Metadata),
	}
	if input.RemittanceID != "" {
		p.RemittanceID = &input.RemittanceID
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrDuplicatePayout) {
			// Lost the race against a concurrent creation; the unique index
			// resolved it, return the winner.
			return s.repo.GetByOrderAndPayment(ctx, input.OrderID, input.PaymentID)
		}
		return nil, err
	}

	s.metrics.PayoutCreated(status)
	s.invalidateSummary(ctx, p.VendorID)
	events.PublishAsync(s.publisher, s.payoutEvent(p, ""))
	slog.Info("payout created",
		"payout_id", p.ID, "vendor_id", p.VendorID, "order_id", p.OrderID,
		"net", p.NetPayout, "status", p.Status)

	if status == models.PayoutStatusPending && account.AutoPayoutEnabled {
		attempted, err := s.InitiateTransfer(ctx, p.ID)
		if err != nil {
			// A failed auto-attempt does not fail creation; the retry path
			// owns remediation from here.
			log.Printf("auto payout attempt for %s failed: %v", p.ID, err)
			return s.repo.GetByID(ctx, p.ID)
		}
		return attempted, nil
	}
	return p, nil
}

func (s *DefaultService) InitiateTransfer(ctx context.Context, payoutID string) (*models.Payout, error) {
	p, err := s.getPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusPending {
		return nil, fmt.Errorf("%w: payout %s is %s", ErrPayoutNotPending, p.ID, p.Status)
	}

	account, err := s.vendors.GetByVendorID(ctx, p.VendorID)
	if err != nil {
		return nil, err
	}
	if !account.Eligible() {
		return nil, domainerrors.ErrAccountNotEligible
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	transfer, err := s.gw.CreateTransfer(callCtx, gateway.TransferRequest{
		Destination: account.FundAccountID,
		Amount:      p.NetPayout,
		Currency:    p.Currency,
		ReferenceID: p.ID,
		Narration:   fmt.Sprintf("Settlement %s", p.Reference),
		Notes: map[string]string{
			"order_id":  p.OrderID,
			"vendor_id": p.VendorID,
		},
	})
	if err != nil {
		// Network-level failures and timeouts are treated identically to
		// gateway-reported failures; the gateway side effect may still have
		// happened, and webhook reconciliation corrects that ambiguity.
		gerr := gateway.WrapError(err, "create_transfer")
		s.metrics.TransferInitiated("failure")
		return s.failTransfer(ctx, p, gerr)
	}

	now := time.Now()
	if err := transition(p, models.PayoutStatusProcessing); err != nil {
		return nil, err
	}
	p.TransferID = transfer.ID
	p.InitiatedAt = &now
	p.ProcessedAt = &now
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.metrics.TransferInitiated("success")
	s.invalidateSummary(ctx, p.VendorID)
	events.PublishAsync(s.publisher, s.payoutEvent(p, ""))
	slog.Info("transfer initiated", "payout_id", p.ID, "transfer_id", transfer.ID, "net", p.NetPayout)
	return p, nil
}

// failTransfer records a transfer attempt failure and hands the payout to
// the retry scheduler. Called for both synchronous failures and
// webhook-reported ones.
func (s *DefaultService) failTransfer(ctx context.Context, p *models.Payout, gerr *gateway.Error) (*models.Payout, error) {
	now := time.Now()
	if err := transition(p, models.PayoutStatusFailed); err != nil {
		return nil, err
	}
	p.RetryCount++
	p.FailedAt = &now
	p.ErrorCode = gerr.Code
	p.ErrorDescription = gerr.Description
	p.ErrorStep = gerr.Step
	p.ErrorReason = gerr.Reason
	// The failure event below goes out on the payout topic the vendor
	// notification consumer reads.
	p.VendorNotified = true

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.metrics.PayoutFailed()
	s.invalidateSummary(ctx, p.VendorID)
	events.PublishAsync(s.publisher, s.payoutEvent(p, gerr.Description))
	slog.Error("transfer failed",
		"payout_id", p.ID, "retry_count", p.RetryCount,
		"code", gerr.Code, "step", gerr.Step, "reason", gerr.Reason)

	if s.scheduler != nil {
		if err := s.scheduler.Schedule(ctx, p); err != nil {
			log.Printf("failed to schedule retry for payout %s: %v", p.ID, err)
		}
	}
	return s.repo.GetByID(ctx, p.ID)
}

func (s *DefaultService) RetryPayout(ctx context.Context, payoutID string) (*models.Payout, error) {
	p, err := s.getPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusFailed {
		return nil, fmt.Errorf("%w: payout %s is %s", ErrPayoutNotRetryable, p.ID, p.Status)
	}
	if p.RetriesExhausted() {
		return nil, fmt.Errorf("%w: payout %s", ErrRetryBudgetExhausted, p.ID)
	}

	if err := transition(p, models.PayoutStatusPending); err != nil {
		return nil, err
	}
	p.NextRetryAt = nil
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	slog.Info("payout retry", "payout_id", p.ID, "attempt", p.RetryCount+1)
	return s.InitiateTransfer(ctx, p.ID)
}

func (s *DefaultService) HoldPayout(ctx context.Context, payoutID, reason string) (*models.Payout, error) {
	p, err := s.getPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if err := transition(p, models.PayoutStatusOnHold); err != nil {
		return nil, err
	}
	p.HoldReason = reason
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateSummary(ctx, p.VendorID)
	events.PublishAsync(s.publisher, s.payoutEvent(p, reason))
	return p, nil
}

func (s *DefaultService) ReleasePayout(ctx context.Context, payoutID string) (*models.Payout, error) {
	p, err := s.getPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PayoutStatusOnHold {
		return nil, fmt.Errorf("%w: payout %s is %s", ErrNotHeld, p.ID, p.Status)
	}
	if err := transition(p, models.PayoutStatusPending); err != nil {
		return nil, err
	}
	p.HoldReason = ""
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateSummary(ctx, p.VendorID)

	account, err := s.vendors.GetByVendorID(ctx, p.VendorID)
	if err == nil && account.AutoPayoutEnabled && account.Eligible() {
		if attempted, err := s.InitiateTransfer(ctx, p.ID); err == nil {
			return attempted, nil
		}
		return s.repo.GetByID(ctx, p.ID)
	}
	return p, nil
}

func (s *DefaultService) ReversePayout(ctx context.Context, payoutID, reason string) (*models.Payout, error) {
	p, err := s.getPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	return s.reverse(ctx, p, reason)
}

func (s *DefaultService) ReverseByOrderID(ctx context.Context, orderID, reason string) (*models.Payout, error) {
	p, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrPayoutNotFound) {
			return nil, domainerrors.ErrPayoutNotFound
		}
		return nil, err
	}
	return s.reverse(ctx, p, reason)
}

func (s *DefaultService) reverse(ctx context.Context, p *models.Payout, reason string) (*models.Payout, error) {
	// Reversing an already-reversed payout is a no-op, not an error.
	if p.Status == models.PayoutStatusReversed {
		return p, nil
	}
	if p.Status != models.PayoutStatusCompleted && p.Status != models.PayoutStatusOnHold {
		return nil, fmt.Errorf("%w: payout %s is %s", ErrNotReversible, p.ID, p.Status)
	}

	// An on_hold payout was never sent to the gateway; only settled
	// transfers need a gateway-side clawback.
	if p.TransferID != "" && p.Status == models.PayoutStatusCompleted {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		defer cancel()
		if _, err := s.gw.ReverseTransfer(callCtx, p.TransferID, reason); err != nil {
			return nil, gateway.WrapError(err, "reverse_transfer")
		}
	}

	now := time.Now()
	if err := transition(p, models.PayoutStatusReversed); err != nil {
		return nil, err
	}
	p.ReversalReason = reason
	p.ReversedAt = &now
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.metrics.PayoutReversed()
	s.invalidateSummary(ctx, p.VendorID)
	events.PublishAsync(s.publisher, s.payoutEvent(p, reason))
	slog.Info("payout reversed", "payout_id", p.ID, "reason", reason)
	return p, nil
}

func (s *DefaultService) MarkTransferProcessed(ctx context.Context, transferID string) (*models.Payout, error) {
	p, err := s.getByTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PayoutStatusCompleted {
		return p, nil
	}

	now := time.Now()
	if err := transition(p, models.PayoutStatusCompleted); err != nil {
		return nil, err
	}
	p.CompletedAt = &now
	p.NextRetryAt = nil
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.metrics.PayoutCompleted(p.NetPayout)
	s.invalidateSummary(ctx, p.VendorID)
	events.PublishAsync(s.publisher, s.payoutEvent(p, ""))
	slog.Info("payout completed", "payout_id", p.ID, "transfer_id", transferID, "net", p.NetPayout)
	return p, nil
}

func (s *DefaultService) MarkTransferFailed(ctx context.Context, transferID string, gerr *gateway.Error) (*models.Payout, error) {
	p, err := s.getByTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PayoutStatusFailed {
		return p, nil
	}
	return s.failTransfer(ctx, p, gerr)
}

func (s *DefaultService) GetPayout(ctx context.Context, payoutID string) (*models.Payout, error) {
	return s.getPayout(ctx, payoutID)
}

func (s *DefaultService) GetPayoutSummary(ctx context.Context, vendorID string) (*models.PayoutSummary, error) {
	key := cache.PayoutSummaryKey(vendorID)

	var cached models.PayoutSummary
	if found, err := s.store.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	summary, err := s.repo.Summary(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, key, summary, s.cfg.SummaryCacheTTL); err != nil {
		log.Printf("failed to cache payout summary for %s: %v", vendorID, err)
	}
	return summary, nil
}

func (s *DefaultService) GetPayoutsByStatus(ctx context.Context, vendorID, status string, limit, offset int) ([]*models.Payout, int64, error) {
	return s.repo.ListByVendor(ctx, vendorID, status, limit, offset)
}

func (s *DefaultService) getPayout(ctx context.Context, payoutID string) (*models.Payout, error) {
	p, err := s.repo.GetByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, repositories.ErrPayoutNotFound) {
			return nil, domainerrors.ErrPayoutNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *DefaultService) getByTransfer(ctx context.Context, transferID string) (*models.Payout, error) {
	p, err := s.repo.GetByTransferID(ctx, transferID)
	if err != nil {
		if errors.Is(err, repositories.ErrPayoutNotFound) {
			return nil, domainerrors.ErrPayoutNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *DefaultService) invalidateSummary(ctx context.Context, vendorID string) {
	if err := s.store.Delete(ctx, cache.PayoutSummaryKey(vendorID)); err != nil {
		log.Printf("failed to invalidate payout summary for %s: %v", vendorID, err)
	}
}

func (s *DefaultService) payoutEvent(p *models.Payout, reason string) events.PayoutEvent {
	return events.PayoutEvent{
		PayoutID:  p.ID,
		VendorID:  p.VendorID,
		OrderID:   p.OrderID,
		Status:    p.Status,
		NetPayout: p.NetPayout,
		Currency:  p.Currency,
		Reason:    reason,
		At:        time.Now(),
	}
}
