// Package cod handles cash-on-delivery: order-time availability checks
// gated by the customer's risk profile, and reconciliation of logistics
// partner remittances into vendor payouts.
package cod

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"bazaar/internal/config"
	domainerrors "bazaar/internal/errors"
	"bazaar/internal/metrics"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"
	"bazaar/internal/services/payout"

	"github.com/jaevor/go-nanoid"
)

// Availability is the answer to a checkout-time COD check.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	RiskLevel string `json:"risk_level"`
	Ceiling   int64  `json:"ceiling"`
}

// RemittanceInput is one collected-cash report from a logistics partner.
type RemittanceInput struct {
	OrderID          string
	VendorID         string
	Amount           int64
	LogisticsPartner string
	Notes            string
}

// Service is the COD surface: availability checks, pincode management and
// remittance reconciliation.
type Service interface {
	ValidateCODAvailability(ctx context.Context, customerID, pincode string, amount int64) (*Availability, error)
	RecordRemittance(ctx context.Context, input RemittanceInput) (*models.CODRemittance, error)
	GetRemittance(ctx context.Context, id string) (*models.CODRemittance, error)
	ListRemittances(ctx context.Context, status string, limit, offset int) ([]*models.CODRemittance, int64, error)
	AddServiceablePincodes(ctx context.Context, pincodes ...string) error
	RemoveServiceablePincodes(ctx context.Context, pincodes ...string) error
}

type service struct {
	remittances repositories.RemittanceRepository
	store       cache.Store
	risk        RiskScorer
	payouts     payout.Service
	metrics     metrics.Collector
	cfg         config.Settlement

	newRemittanceID func() string
}

func NewService(
	remittances repositories.RemittanceRepository,
	store cache.Store,
	risk RiskScorer,
	payouts payout.Service,
	collector metrics.Collector,
	cfg config.Settlement,
) Service {
	id, err := nanoid.CustomASCII("0123456789ABCDEFGHJKMNPQRSTVWXYZ", 14)
	if err != nil {
		panic(fmt.Sprintf("cod: remittance id generator: %v", err))
	}
	return &service{
		remittances:     remittances,
		store:           store,
		risk:            risk,
		payouts:         payouts,
		metrics:         collector,
		cfg:             cfg,
		newRemittanceID: func() string { return "RM" + id() },
	}
}

// ValidateCODAvailability answers whether this customer may place a COD
// order of the given value at the given pincode. A denial is a normal
// answer, not an error; errors are reserved for infrastructure failures.
func (s *service) ValidateCODAvailability(ctx context.Context, customerID, pincode string, amount int64) (*Availability, error) {
	if amount <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}

	serviceable, err := s.store.SIsMember(ctx, cache.CODPincodeSetKey, pincode)
	if err != nil {
		return nil, fmt.Errorf("failed to check pincode %s: %w", pincode, err)
	}
	if !serviceable {
		return &Availability{Available: false, Reason: ErrPincodeNotServiceable.Error()}, nil
	}

	profile, err := s.risk.GetProfile(ctx, customerID)
	if err != nil {
		return nil, err
	}
	ceiling := s.ceilingFor(profile)
	if amount > ceiling {
		return &Availability{
			Available: false,
			Reason:    ErrAmountExceedsCeiling.Error(),
			RiskLevel: profile.RiskLevel,
			Ceiling:   ceiling,
		}, nil
	}

	return &Availability{Available: true, RiskLevel: profile.RiskLevel, Ceiling: ceiling}, nil
}

// ceilingFor maps a risk profile onto an order-value ceiling. A customer
// with no order history gets the most conservative ceiling regardless of
// the neutral score.
func (s *service) ceilingFor(p *models.CustomerRiskProfile) int64 {
	if p.TotalOrders == 0 {
		return s.cfg.CODCeilingHighRisk
	}
	switch p.RiskLevel {
	case models.RiskLevelLow:
		return s.cfg.CODCeilingLowRisk
	case models.RiskLevelHigh:
		return s.cfg.CODCeilingHighRisk
	default:
		return s.cfg.CODCeilingMediumRisk
	}
}

// RecordRemittance reconciles a partner's collected-cash report against the
// order's expected collectible. An exact match settles the vendor through a
// regular payout; any other amount parks the remittance as mismatched for a
// human to resolve. The returned remittance always reflects what was stored.
func (s *service) RecordRemittance(ctx context.Context, input RemittanceInput) (*models.CODRemittance, error) {
	if input.Amount <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}

	rem := &models.CODRemittance{
		ID:               s.newRemittanceID(),
		OrderID:          input.OrderID,
		VendorID:         input.VendorID,
		Amount:           input.Amount,
		LogisticsPartner: input.LogisticsPartner,
		Status:           models.RemittanceStatusPending,
		Notes:            input.Notes,
	}

	var expected int64
	found, err := s.store.Get(ctx, cache.OrderCollectibleKey(input.OrderID), &expected)
	if err != nil {
		return nil, fmt.Errorf("failed to read collectible for order %s: %w", input.OrderID, err)
	}
	if !found {
		rem.Status = models.RemittanceStatusMismatched
		rem.Notes = appendNote(rem.Notes, "no expected collectible on record")
		if cerr := s.remittances.Create(ctx, rem); cerr != nil {
			return nil, cerr
		}
		s.metrics.RemittanceRecorded(rem.Status)
		return rem, domainerrors.ErrOrderNotCollectible
	}
	rem.ExpectedAmount = expected

	if input.Amount != expected {
		rem.Status = models.RemittanceStatusMismatched
		if cerr := s.remittances.Create(ctx, rem); cerr != nil {
			return nil, cerr
		}
		s.metrics.RemittanceRecorded(rem.Status)
		slog.Warn("cod remittance mismatched",
			"remittance_id", rem.ID, "order_id", input.OrderID,
			"reported", input.Amount, "expected", expected)
		return rem, domainerrors.ErrRemittanceMismatch
	}

	now := time.Now()
	rem.Status = models.RemittanceStatusVerified
	rem.VerifiedAt = &now
	if err := s.remittances.Create(ctx, rem); err != nil {
		return nil, err
	}

	p, err := s.payouts.CreatePayout(ctx, payout.CreatePayoutInput{
		VendorID:     input.VendorID,
		OrderID:      input.OrderID,
		RemittanceID: rem.ID,
		GrossAmount:  input.Amount,
		Metadata: map[string]interface{}{
			"source":            "cod_remittance",
			"logistics_partner": input.LogisticsPartner,
		},
	})
	if err != nil {
		// The cash is verified either way; payout creation is retried by
		// re-submitting through the mismatch queue.
		slog.Error("verified remittance could not open payout",
			"remittance_id", rem.ID, "order_id", input.OrderID, "error", err)
		return rem, err
	}

	rem.PayoutID = &p.ID
	rem.Status = models.RemittanceStatusCompleted
	if err := s.remittances.Update(ctx, rem); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, cache.OrderCollectibleKey(input.OrderID)); err != nil {
		log.Printf("failed to clear collectible for order %s: %v", input.OrderID, err)
	}
	s.metrics.RemittanceRecorded(rem.Status)

	slog.Info("cod remittance settled",
		"remittance_id", rem.ID, "order_id", input.OrderID, "payout_id", p.ID)
	return rem, nil
}

func (s *service) GetRemittance(ctx context.Context, id string) (*models.CODRemittance, error) {
	return s.remittances.GetByID(ctx, id)
}

func (s *service) ListRemittances(ctx context.Context, status string, limit, offset int) ([]*models.CODRemittance, int64, error) {
	return s.remittances.ListByStatus(ctx, status, limit, offset)
}

func (s *service) AddServiceablePincodes(ctx context.Context, pincodes ...string) error {
	if len(pincodes) == 0 {
		return nil
	}
	return s.store.SAdd(ctx, cache.CODPincodeSetKey, pincodes...)
}

func (s *service) RemoveServiceablePincodes(ctx context.Context, pincodes ...string) error {
	if len(pincodes) == 0 {
		return nil
	}
	return s.store.SRem(ctx, cache.CODPincodeSetKey, pincodes...)
}

func appendNote(notes, extra string) string {
	if notes == "" {
		return extra
	}
	return notes + "; " + extra
}
