package retry

import (
	"context"
	"testing"

	"bazaar/internal/events"
	"bazaar/internal/metrics"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayoutRepo struct {
	payouts map[string]*models.Payout
}

func newFakePayoutRepo(payouts ...*models.Payout) *fakePayoutRepo {
	r := &fakePayoutRepo{payouts: make(map[string]*models.Payout)}
	for _, p := range payouts {
		cp := *p
		r.payouts[p.ID] = &cp
	}
	return r
}

func (r *fakePayoutRepo) Create(_ context.Context, p *models.Payout) error {
	cp := *p
	r.payouts[p.ID] = &cp
	return nil
}

func (r *fakePayoutRepo) GetByID(_ context.Context, id string) (*models.Payout, error) {
	p, ok := r.payouts[id]
	if !ok {
		return nil, repositories.ErrPayoutNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePayoutRepo) GetByTransferID(_ context.Context, transferID string) (*models.Payout, error) {
	for _, p := range r.payouts {
		if p.TransferID == transferID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPayoutNotFound
}

func (r *fakePayoutRepo) GetByOrderAndPayment(_ context.Context, orderID, paymentID string) (*models.Payout, error) {
	for _, p := range r.payouts {
		if p.OrderID == orderID && p.PaymentID == paymentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPayoutNotFound
}

func (r *fakePayoutRepo) GetByOrderID(_ context.Context, orderID string) (*models.Payout, error) {
	for _, p := range r.payouts {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPayoutNotFound
}

func (r *fakePayoutRepo) Update(_ context.Context, p *models.Payout) error {
	cp := *p
	r.payouts[p.ID] = &cp
	return nil
}

func (r *fakePayoutRepo) ListByVendor(_ context.Context, vendorID, status string, _, _ int) ([]*models.Payout, int64, error) {
	var out []*models.Payout
	for _, p := range r.payouts {
		if p.VendorID != vendorID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakePayoutRepo) Summary(_ context.Context, vendorID string) (*models.PayoutSummary, error) {
	return &models.PayoutSummary{VendorID: vendorID}, nil
}

func (r *fakePayoutRepo) MarkAdminNotified(_ context.Context, payoutID string) (bool, error) {
	p, ok := r.payouts[payoutID]
	if !ok {
		return false, repositories.ErrPayoutNotFound
	}
	if p.AdminNotified {
		return false, nil
	}
	p.AdminNotified = true
	return true, nil
}

type fakeAlertRepo struct {
	alerts []*models.AdminAlert
}

func (r *fakeAlertRepo) Create(_ context.Context, a *models.AdminAlert) error {
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *fakeAlertRepo) ListOpen(_ context.Context, _, _ int) ([]*models.AdminAlert, int64, error) {
	return r.alerts, int64(len(r.alerts)), nil
}

func (r *fakeAlertRepo) Acknowledge(_ context.Context, _ uint, _ string) error { return nil }

type fakeInitiator struct {
	retried []string
	err     error
}

func (f *fakeInitiator) RetryPayout(_ context.Context, payoutID string) (*models.Payout, error) {
	f.retried = append(f.retried, payoutID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Payout{ID: payoutID}, nil
}

func failedPayout(id string, retryCount int) *models.Payout {
	return &models.Payout{
		ID:         id,
		VendorID:   "vnd_1",
		OrderID:    "ord_1",
		Status:     models.PayoutStatusFailed,
		RetryCount: retryCount,
		MaxRetries: 5,
		ErrorCode:  "BAD_REQUEST_ERROR",
	}
}

func TestDelay_DoublesPerAttempt(t *testing.T) {
	assert.Equal(t, "2m0s", Delay(1).String())
	assert.Equal(t, "4m0s", Delay(2).String())
	assert.Equal(t, "8m0s", Delay(3).String())
	assert.Equal(t, "16m0s", Delay(4).String())
}

func TestSchedule_StampsNextRetryAndMarker(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	p := failedPayout("po_1", 1)
	repo := newFakePayoutRepo(p)
	s := NewScheduler(store, repo, &fakeAlertRepo{}, events.NoopPublisher{}, metrics.Noop{}, 0)

	require.NoError(t, s.Schedule(ctx, p))

	stored, err := repo.GetByID(ctx, "po_1")
	require.NoError(t, err)
	require.NotNil(t, stored.NextRetryAt)

	waiting, err := store.Exists(ctx, cache.RetryMarkerKey("po_1"))
	require.NoError(t, err)
	assert.True(t, waiting, "backoff marker should be live right after scheduling")

	member, err := store.SIsMember(ctx, cache.RetrySetKey, "po_1")
	require.NoError(t, err)
	assert.True(t, member)
}

func TestSchedule_ExhaustedBudgetEscalatesOnce(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	p := failedPayout("po_1", 5)
	repo := newFakePayoutRepo(p)
	alerts := &fakeAlertRepo{}
	s := NewScheduler(store, repo, alerts, events.NoopPublisher{}, metrics.Noop{}, 0)

	require.NoError(t, s.Schedule(ctx, p))
	require.NoError(t, s.Schedule(ctx, p))

	assert.Len(t, alerts.alerts, 1, "escalation must fire exactly once")
	assert.Equal(t, "po_1", alerts.alerts[0].SubjectID)
	assert.Equal(t, models.AlertKindRetryExhausted, alerts.alerts[0].Kind)
	assert.Equal(t, 5, alerts.alerts[0].RetryCount)
	assert.Equal(t, "BAD_REQUEST_ERROR", alerts.alerts[0].ErrorCode)

	waiting, err := store.Exists(ctx, cache.RetryMarkerKey("po_1"))
	require.NoError(t, err)
	assert.False(t, waiting, "no further retry is scheduled after escalation")
}

func TestScanDue_SkipsWhileMarkerLive(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	p := failedPayout("po_1", 1)
	repo := newFakePayoutRepo(p)
	init := &fakeInitiator{}
	s := NewScheduler(store, repo, &fakeAlertRepo{}, events.NoopPublisher{}, metrics.Noop{}, 0)
	s.SetInitiator(init)

	require.NoError(t, s.Schedule(ctx, p))
	require.NoError(t, s.ScanDue(ctx))

	assert.Empty(t, init.retried, "payout is not due until the marker expires")
}

func TestScanDue_RetriesWhenMarkerExpired(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	p := failedPayout("po_1", 1)
	repo := newFakePayoutRepo(p)
	init := &fakeInitiator{}
	s := NewScheduler(store, repo, &fakeAlertRepo{}, events.NoopPublisher{}, metrics.Noop{}, 0)
	s.SetInitiator(init)

	require.NoError(t, s.Schedule(ctx, p))
	// Simulate backoff expiry; the marker TTL has lapsed.
	require.NoError(t, store.Delete(ctx, cache.RetryMarkerKey("po_1")))

	require.NoError(t, s.ScanDue(ctx))
	assert.Equal(t, []string{"po_1"}, init.retried)

	member, err := store.SIsMember(ctx, cache.RetrySetKey, "po_1")
	require.NoError(t, err)
	assert.False(t, member, "a due payout is removed from the retry set before re-initiation")

	// A second scan finds nothing; the retry is not executed twice.
	require.NoError(t, s.ScanDue(ctx))
	assert.Len(t, init.retried, 1)
}

func TestScanDue_IndependentPayouts(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	due := failedPayout("po_due", 2)
	waiting := failedPayout("po_waiting", 1)
	repo := newFakePayoutRepo(due, waiting)
	init := &fakeInitiator{}
	s := NewScheduler(store, repo, &fakeAlertRepo{}, events.NoopPublisher{}, metrics.Noop{}, 0)
	s.SetInitiator(init)

	require.NoError(t, s.Schedule(ctx, due))
	require.NoError(t, s.Schedule(ctx, waiting))
	require.NoError(t, store.Delete(ctx, cache.RetryMarkerKey("po_due")))

	require.NoError(t, s.ScanDue(ctx))

	assert.Equal(t, []string{"po_due"}, init.retried)
	member, err := store.SIsMember(ctx, cache.RetrySetKey, "po_waiting")
	require.NoError(t, err)
	assert.True(t, member, "the waiting payout stays scheduled")
}
