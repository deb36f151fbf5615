// Package retry schedules failed payout transfers for re-execution with
// exponential backoff, and escalates to the admin queue once the retry
// budget is exhausted.
package retry

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"bazaar/internal/events"
	"bazaar/internal/metrics"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"
)

// TransferInitiator re-runs the transfer for a due payout. Implemented by
// the payout orchestrator.
type TransferInitiator interface {
	RetryPayout(ctx context.Context, payoutID string) (*models.Payout, error)
}

// Scheduler tracks due retries in the keyed store: each scheduled payout is
// a member of a retry set plus a marker whose TTL equals the backoff delay.
// A set member without a live marker is due. No cron column required.
type Scheduler struct {
	store     cache.Store
	repo      repositories.PayoutRepository
	alerts    repositories.AlertRepository
	publisher events.Publisher
	metrics   metrics.Collector
	initiator TransferInitiator

	scanInterval time.Duration
}

func NewScheduler(
	store cache.Store,
	repo repositories.PayoutRepository,
	alerts repositories.AlertRepository,
	publisher events.Publisher,
	collector metrics.Collector,
	scanInterval time.Duration,
) *Scheduler {
	return &Scheduler{
		store:        store,
		repo:         repo,
		alerts:       alerts,
		publisher:    publisher,
		metrics:      collector,
		scanInterval: scanInterval,
	}
}

// SetInitiator injects the orchestrator after construction; scheduler and
// orchestrator reference each other.
func (s *Scheduler) SetInitiator(initiator TransferInitiator) {
	s.initiator = initiator
}

// Delay returns the backoff before the next attempt: 2^retryCount minutes.
func Delay(retryCount int) time.Duration {
	return time.Duration(1<<uint(retryCount)) * time.Minute
}

// Schedule stamps the payout's next retry time and stores the due-retry
// marker, or escalates when the budget is spent. Called by the orchestrator
// after every failed transfer attempt.
func (s *Scheduler) Schedule(ctx context.Context, p *models.Payout) error {
	if p.RetriesExhausted() {
		return s.escalate(ctx, p)
	}

	delay := Delay(p.RetryCount)
	next := time.Now().Add(delay)
	p.NextRetryAt = &next
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to stamp next retry: %w", err)
	}

	if err := s.store.Set(ctx, cache.RetryMarkerKey(p.ID), p.RetryCount, delay); err != nil {
		return fmt.Errorf("failed to store retry marker: %w", err)
	}
	if err := s.store.SAdd(ctx, cache.RetrySetKey, p.ID); err != nil {
		return fmt.Errorf("failed to track retrying payout: %w", err)
	}

	s.metrics.RetryScheduled()
	slog.Info("retry scheduled",
		"payout_id", p.ID, "retry_count", p.RetryCount, "delay", delay, "next_retry_at", next)
	return nil
}

// escalate raises the admin alert exactly once per payout; the payout stays
// failed permanently. The underlying order is never auto-cancelled.
func (s *Scheduler) escalate(ctx context.Context, p *models.Payout) error {
	if err := s.store.SRem(ctx, cache.RetrySetKey, p.ID); err != nil {
		log.Printf("failed to drop %s from retry set: %v", p.ID, err)
	}

	first, err := s.repo.MarkAdminNotified(ctx, p.ID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	alert := &models.AdminAlert{
		Kind:             models.AlertKindRetryExhausted,
		SubjectID:        p.ID,
		VendorID:         p.VendorID,
		OrderID:          p.OrderID,
		Reason:           "payout exhausted retry budget",
		ErrorCode:        p.ErrorCode,
		ErrorDescription: p.ErrorDescription,
		RetryCount:       p.RetryCount,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return fmt.Errorf("failed to create admin alert: %w", err)
	}

	s.metrics.EscalationRaised()
	if s.publisher != nil {
		if err := s.publisher.PublishEscalation(ctx, events.EscalationEvent{
			PayoutID:         p.ID,
			VendorID:         p.VendorID,
			OrderID:          p.OrderID,
			RetryCount:       p.RetryCount,
			ErrorCode:        p.ErrorCode,
			ErrorDescription: p.ErrorDescription,
			At:               time.Now(),
		}); err != nil {
			log.Printf("failed to publish escalation for %s: %v", p.ID, err)
		}
	}
	slog.Error("payout escalated to admin queue",
		"payout_id", p.ID, "retry_count", p.RetryCount, "code", p.ErrorCode)
	return nil
}

// Start runs the due-retry scan on a timer until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ScanDue(ctx); err != nil {
				log.Printf("retry scan error: %v", err)
			}
		}
	}
}

// ScanDue re-initiates every payout whose backoff marker has expired.
// Retries for different payouts are independent; a single payout cannot get
// two in-flight attempts because initiateTransfer refuses non-pending
// payouts.
func (s *Scheduler) ScanDue(ctx context.Context) error {
	ids, err := s.store.SMembers(ctx, cache.RetrySetKey)
	if err != nil {
		return fmt.Errorf("failed to list retrying payouts: %w", err)
	}

	for _, id := range ids {
		waiting, err := s.store.Exists(ctx, cache.RetryMarkerKey(id))
		if err != nil {
			log.Printf("retry marker check failed for %s: %v", id, err)
			continue
		}
		if waiting {
			continue
		}

		if err := s.store.SRem(ctx, cache.RetrySetKey, id); err != nil {
			log.Printf("failed to remove %s from retry set: %v", id, err)
		}
		if s.initiator == nil {
			continue
		}
		if _, err := s.initiator.RetryPayout(ctx, id); err != nil {
			// The payout may have moved on (completed via webhook,
			// reversed, or exhausted); that is not a scan failure.
			slog.Warn("due retry not executed", "payout_id", id, "error", err)
		}
	}
	return nil
}
