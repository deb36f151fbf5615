// Package webhook reconciles gateway webhook deliveries against local
// payout state. Deliveries are verified, deduplicated on a deterministic
// event key and dispatched to the orchestrator; every transition it drives
// is idempotent, so redeliveries and out-of-order arrivals are harmless.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"bazaar/internal/gateway"
	"bazaar/internal/metrics"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"
	"bazaar/internal/services/payout"
)

const (
	statusReceived  = "received"
	statusProcessed = "processed"
)

// eventRecord is the durable outcome of one event key: at most one record
// per key, holding the processing result. A failed handler still yields a
// processed record; remediation goes through the operator queue, never
// through gateway redelivery.
type eventRecord struct {
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
}

// Service handles one raw webhook delivery end to end.
type Service interface {
	Handle(ctx context.Context, raw []byte, signature string) error
}

type service struct {
	gateway   gateway.Gateway
	payouts   payout.Service
	store     cache.Store
	alerts    repositories.AlertRepository
	metrics   metrics.Collector
	retention time.Duration
}

func NewService(
	gw gateway.Gateway,
	payouts payout.Service,
	store cache.Store,
	alerts repositories.AlertRepository,
	collector metrics.Collector,
	retention time.Duration,
) Service {
	return &service{
		gateway:   gw,
		payouts:   payouts,
		store:     store,
		alerts:    alerts,
		metrics:   collector,
		retention: retention,
	}
}

// Handle verifies, deduplicates and processes a delivery. The outcome is
// recorded against the event key whether the handler succeeded or not, so a
// redelivery never reprocesses; failures land in the admin queue instead.
func (s *service) Handle(ctx context.Context, raw []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(raw, signature) {
		return ErrInvalidSignature
	}

	ev, err := ParseEvent(raw)
	if err != nil {
		return err
	}

	entityID := ev.EntityID()
	if entityID == "" {
		s.metrics.WebhookEvent(ev.Kind, "unhandled")
		slog.Info("webhook without a known entity ignored", "kind", ev.Kind)
		return nil
	}

	key := cache.WebhookEventKey(ev.Kind, entityID)
	first, err := s.store.SetNX(ctx, key, eventRecord{Status: statusReceived}, s.retention)
	if err != nil {
		// Store outage: process anyway, the transitions are idempotent.
		log.Printf("webhook dedup unavailable for %s: %v", key, err)
		first = true
	}
	if !first {
		s.metrics.WebhookEvent(ev.Kind, "duplicate")
		slog.Info("duplicate webhook dropped", "kind", ev.Kind, "entity_id", entityID)
		return nil
	}

	record := eventRecord{Status: statusProcessed}
	if perr := s.process(ctx, ev); perr != nil {
		record.Result = perr.Error()
		s.escalate(ctx, ev, key, entityID, perr)
		s.metrics.WebhookEvent(ev.Kind, "error")
	} else {
		s.metrics.WebhookEvent(ev.Kind, "processed")
	}
	if err := s.store.Set(ctx, key, record, s.retention); err != nil {
		log.Printf("failed to record outcome of %s: %v", key, err)
	}
	return nil
}

// escalate routes a failed delivery to the operator queue. The event key is
// the alert subject, so the unique index gives one alert per event.
func (s *service) escalate(ctx context.Context, ev *Event, key, entityID string, perr error) {
	slog.Error("webhook processing failed, escalated to admin queue",
		"kind", ev.Kind, "entity_id", entityID, "error", perr)
	if s.alerts == nil {
		return
	}
	alert := &models.AdminAlert{
		Kind:             models.AlertKindWebhookFailed,
		SubjectID:        key,
		Reason:           fmt.Sprintf("webhook %s for %s failed", ev.Kind, entityID),
		ErrorDescription: perr.Error(),
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		log.Printf("failed to create admin alert for %s: %v", key, err)
	}
}

func (s *service) process(ctx context.Context, ev *Event) error {
	switch ev.Kind {
	case KindPaymentCaptured:
		if ev.Payment == nil {
			return fmt.Errorf("%w: %s without payment entity", ErrMalformedPayload, ev.Kind)
		}
		return s.onPaymentCaptured(ctx, ev.Payment)
	case KindPaymentFailed:
		if ev.Payment != nil {
			s.recordPaymentStatus(ctx, ev.Payment.ID, "failed")
			slog.Info("payment failed at gateway",
				"payment_id", ev.Payment.ID, "order_id", ev.Payment.OrderID)
		}
		return nil
	case KindTransferProcessed:
		if ev.Transfer == nil {
			return fmt.Errorf("%w: %s without transfer entity", ErrMalformedPayload, ev.Kind)
		}
		_, err := s.payouts.MarkTransferProcessed(ctx, ev.Transfer.ID)
		return ignoreUnknownPayout(err)
	case KindTransferFailed:
		if ev.Transfer == nil {
			return fmt.Errorf("%w: %s without transfer entity", ErrMalformedPayload, ev.Kind)
		}
		_, err := s.payouts.MarkTransferFailed(ctx, ev.Transfer.ID, &gateway.Error{
			Code:        ev.Transfer.Error.Code,
			Description: ev.Transfer.Error.Description,
			Step:        ev.Transfer.Error.Step,
			Reason:      ev.Transfer.Error.Reason,
		})
		return ignoreUnknownPayout(err)
	case KindRefundProcessed:
		if ev.Refund == nil {
			return fmt.Errorf("%w: %s without refund entity", ErrMalformedPayload, ev.Kind)
		}
		return s.onRefundProcessed(ctx, ev.Refund)
	case KindOrderPaid:
		return s.onOrderPaid(ctx, ev)
	default:
		slog.Info("unhandled webhook kind acknowledged", "kind", ev.Kind)
		return nil
	}
}

// recordPaymentStatus keeps the last gateway-side payment status in the
// keyed store for availability checks and support lookups.
func (s *service) recordPaymentStatus(ctx context.Context, paymentID, status string) {
	if err := s.store.Set(ctx, cache.PaymentStatusKey(paymentID), status, s.retention); err != nil {
		log.Printf("failed to record status of payment %s: %v", paymentID, err)
	}
}

// onPaymentCaptured marks the payment captured, then opens the settlement.
// The vendor is carried in the payment notes at checkout time.
func (s *service) onPaymentCaptured(ctx context.Context, p *PaymentPayload) error {
	s.recordPaymentStatus(ctx, p.ID, "captured")
	vendorID := p.Notes["vendor_id"]
	if vendorID == "" {
		slog.Warn("captured payment without vendor note, no payout opened",
			"payment_id", p.ID, "order_id", p.OrderID)
		return nil
	}

	_, err := s.payouts.CreatePayout(ctx, payout.CreatePayoutInput{
		VendorID:    vendorID,
		OrderID:     p.OrderID,
		PaymentID:   p.ID,
		GrossAmount: p.Amount,
		Currency:    p.Currency,
		Hold:        p.Notes["hold"] == "true",
		HoldReason:  p.Notes["hold_reason"],
		Metadata:    map[string]interface{}{"payment_method": p.Method},
	})
	return err
}

// onRefundProcessed claws the payout back. The refund entity carries only
// the payment id, so the order is resolved through the gateway.
func (s *service) onRefundProcessed(ctx context.Context, r *RefundPayload) error {
	p, err := s.gateway.FetchPayment(ctx, r.PaymentID)
	if err != nil {
		return fmt.Errorf("failed to resolve refunded payment %s: %w", r.PaymentID, err)
	}

	_, err = s.payouts.ReverseByOrderID(ctx, p.OrderID, "refund "+r.ID)
	return ignoreUnknownPayout(err)
}

// onOrderPaid records the expected collectible for cash-on-delivery orders
// so the remittance matcher has an amount to verify against. Online orders
// settle through payment.captured instead.
func (s *service) onOrderPaid(ctx context.Context, ev *Event) error {
	if ev.Payment == nil || ev.Payment.Method != "cod" || ev.Order == nil {
		return nil
	}
	if err := s.store.Set(ctx, cache.OrderCollectibleKey(ev.Order.ID), ev.Order.Amount, 0); err != nil {
		return fmt.Errorf("failed to record collectible for order %s: %w", ev.Order.ID, err)
	}
	slog.Info("cod collectible recorded", "order_id", ev.Order.ID, "amount", ev.Order.Amount)
	return nil
}

// ignoreUnknownPayout drops not-found errors: a transfer or refund we never
// opened a payout for (manual gateway activity, pre-migration data) is not a
// reconciliation failure.
func ignoreUnknownPayout(err error) error {
	if err == nil || errors.Is(err, repositories.ErrPayoutNotFound) {
		return nil
	}
	return err
}
