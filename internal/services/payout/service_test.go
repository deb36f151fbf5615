package payout

import (
	"context"
	"testing"
	"time"

	"bazaar/internal/config"
	domainerrors "bazaar/internal/errors"
	"bazaar/internal/events"
	"bazaar/internal/gateway"
	"bazaar/internal/metrics"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayoutRepo struct {
	payouts map[string]*models.Payout
	creates int
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{payouts: make(map[string]*models.Payout)}
}

func (r *fakePayoutRepo) Create(_ context.Context, p *models.Payout) error {
	for _, existing := range r.payouts {
		if existing.OrderID == p.OrderID && existing.PaymentID == p.PaymentID {
			return repositories.ErrDuplicatePayout
		}
	}
	cp := *p
	r.payouts[p.ID] = &cp
	r.creates++
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
	summary := &models.PayoutSummary{VendorID: vendorID}
	for _, p := range r.payouts {
		if p.VendorID != vendorID {
			continue
		}
		switch p.Status {
		case models.PayoutStatusPending:
			summary.PendingCount++
			summary.PendingAmount += p.NetPayout
		case models.PayoutStatusProcessing:
			summary.ProcessingCount++
			summary.ProcessingAmount += p.NetPayout
		case models.PayoutStatusCompleted:
			summary.CompletedCount++
			summary.CompletedAmount += p.NetPayout
		case models.PayoutStatusFailed:
			summary.FailedCount++
			summary.FailedAmount += p.NetPayout
		case models.PayoutStatusOnHold:
			summary.OnHoldCount++
			summary.OnHoldAmount += p.NetPayout
		case models.PayoutStatusReversed:
			summary.ReversedCount++
			summary.ReversedAmount += p.NetPayout
		}
	}
	return summary, nil
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

type fakeVendorRepo struct {
	accounts map[string]*models.VendorSettlementAccount
}

func newFakeVendorRepo(accounts ...*models.VendorSettlementAccount) *fakeVendorRepo {
	r := &fakeVendorRepo{accounts: make(map[string]*models.VendorSettlementAccount)}
	for _, a := range accounts {
		cp := *a
		r.accounts[a.VendorID] = &cp
	}
	return r
}

func (r *fakeVendorRepo) Create(_ context.Context, a *models.VendorSettlementAccount) error {
	if _, exists := r.accounts[a.VendorID]; exists {
		return repositories.ErrVendorExists
	}
	cp := *a
	r.accounts[a.VendorID] = &cp
	return nil
}

func (r *fakeVendorRepo) GetByVendorID(_ context.Context, vendorID string) (*models.VendorSettlementAccount, error) {
	a, ok := r.accounts[vendorID]
	if !ok {
		return nil, repositories.ErrVendorNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeVendorRepo) Update(_ context.Context, a *models.VendorSettlementAccount) error {
	cp := *a
	r.accounts[a.VendorID] = &cp
	return nil
}

func (r *fakeVendorRepo) ListByStatus(_ context.Context, status string, _, _ int) ([]*models.VendorSettlementAccount, int64, error) {
	var out []*models.VendorSettlementAccount
	for _, a := range r.accounts {
		if status == "" || a.Status == status {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

type fakeScheduler struct {
	scheduled []*models.Payout
}

func (f *fakeScheduler) Schedule(_ context.Context, p *models.Payout) error {
	cp := *p
	f.scheduled = append(f.scheduled, &cp)
	return nil
}

func testConfig() config.Settlement {
	return config.Settlement{
		Currency:                 "INR",
		MaxRetries:               5,
		GatewayTimeout:           time.Second,
		WithholdingRateWithTaxID: 1.0,
		WithholdingRateDefault:   5.0,
		WithholdingMinAmount:     250000,
		SummaryCacheTTL:          time.Minute,
	}
}

func verifiedVendor(vendorID string, auto bool) *models.VendorSettlementAccount {
	return &models.VendorSettlementAccount{
		VendorID:              vendorID,
		FundAccountID:         "fa_" + vendorID,
		CommissionPercentage:  10,
		AutoPayoutEnabled:     auto,
		WithholdingApplicable: true,
		Status:                models.VendorStatusVerified,
	}
}

type fixture struct {
	svc       *DefaultService
	repo      *fakePayoutRepo
	vendors   *fakeVendorRepo
	gw        *gateway.MemoryGateway
	store     *cache.MemoryStore
	scheduler *fakeScheduler
}

func newFixture(t *testing.T, accounts ...*models.VendorSettlementAccount) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newFakePayoutRepo(),
		vendors:   newFakeVendorRepo(accounts...),
		gw:        gateway.NewMemoryGateway(),
		store:     cache.NewMemoryStore(),
		scheduler: &fakeScheduler{},
	}
	f.svc = NewService(f.repo, f.vendors, f.store, f.gw, events.NoopPublisher{}, metrics.Noop{}, testConfig())
	f.svc.SetScheduler(f.scheduler)
	return f
}

func baseInput() CreatePayoutInput {
	return CreatePayoutInput{
		VendorID:    "vnd_1",
		OrderID:     "ord_1",
		PaymentID:   "pay_1",
		GrossAmount: 100000,
	}
}

func TestCreatePayout_SplitsAndDefaults(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))

	p, err := f.svc.CreatePayout(context.Background(), baseInput())
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusPending, p.Status)
	assert.Equal(t, int64(100000), p.GrossAmount)
	assert.Equal(t, int64(10000), p.CommissionAmount)
	assert.Zero(t, p.TaxAmount, "below the withholding threshold")
	assert.Equal(t, int64(90000), p.NetPayout)
	assert.Equal(t, "INR", p.Currency)
	assert.Equal(t, 5, p.MaxRetries)
	assert.Equal(t, "PO", p.Reference[:2])
	assert.NotEmpty(t, p.ID)
}

func TestCreatePayout_WithholdsAboveThreshold(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	in := baseInput()
	in.GrossAmount = 400000

	p, err := f.svc.CreatePayout(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(40000), p.CommissionAmount)
	assert.Equal(t, int64(20000), p.TaxAmount, "5 percent, no tax id on file")
	assert.Equal(t, int64(340000), p.NetPayout)
}

func TestCreatePayout_IdempotentOnOrderAndPayment(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	ctx := context.Background()

	first, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)
	second, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.repo.creates, "one settlement event, one payout")
}

func TestCreatePayout_RejectsUnverifiedVendor(t *testing.T) {
	pending := verifiedVendor("vnd_1", false)
	pending.Status = models.VendorStatusPending
	f := newFixture(t, pending)

	_, err := f.svc.CreatePayout(context.Background(), baseInput())
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotEligible)
	assert.Zero(t, f.repo.creates)
}

func TestCreatePayout_UnknownVendor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreatePayout(context.Background(), baseInput())
	assert.ErrorIs(t, err, domainerrors.ErrVendorNotFound)
}

func TestCreatePayout_InvalidAmount(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	in := baseInput()
	in.GrossAmount = 0

	_, err := f.svc.CreatePayout(context.Background(), in)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidAmount)
}

func TestCreatePayout_HoldStartsOnHold(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))
	in := baseInput()
	in.Hold = true
	in.HoldReason = "manual review"

	p, err := f.svc.CreatePayout(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusOnHold, p.Status)
	assert.Equal(t, "manual review", p.HoldReason)
	assert.Zero(t, f.gw.TransferCalls, "a held payout never reaches the gateway")
}

func TestCreatePayout_AutoPayoutInitiatesTransfer(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))

	p, err := f.svc.CreatePayout(context.Background(), baseInput())
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusProcessing, p.Status)
	assert.NotEmpty(t, p.TransferID)
	assert.Equal(t, 1, f.gw.TransferCalls)
	require.NotNil(t, p.InitiatedAt)
}

func TestCreatePayout_FailedAutoAttemptDoesNotFailCreation(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))
	f.gw.FailTransfers = true

	p, err := f.svc.CreatePayout(context.Background(), baseInput())
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusFailed, p.Status)
	assert.Equal(t, 1, p.RetryCount)
	assert.Len(t, f.scheduler.scheduled, 1)
}

func TestInitiateTransfer_RefusesNonPendingWithoutGatewayCall(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)
	require.Equal(t, models.PayoutStatusProcessing, p.Status)
	callsAfterCreate := f.gw.TransferCalls

	_, err = f.svc.InitiateTransfer(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPayoutNotPending)
	assert.Equal(t, callsAfterCreate, f.gw.TransferCalls,
		"a non-pending payout must be refused before any gateway contact")
}

func TestInitiateTransfer_FailureSchedulesRetry(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	f.gw.FailTransfers = true
	f.gw.FailWith = &gateway.Error{
		Code:        "BAD_REQUEST_ERROR",
		Description: "account closed",
		Step:        "transfer_processing",
		Reason:      "invalid_account",
	}
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)

	failed, err := f.svc.InitiateTransfer(ctx, p.ID)
	require.NoError(t, err, "a gateway-side failure is recorded, not returned")

	assert.Equal(t, models.PayoutStatusFailed, failed.Status)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, "BAD_REQUEST_ERROR", failed.ErrorCode)
	assert.Equal(t, "invalid_account", failed.ErrorReason)
	require.NotNil(t, failed.FailedAt)
	assert.True(t, failed.VendorNotified, "the failure event notifies the vendor")
	require.Len(t, f.scheduler.scheduled, 1)
	assert.Equal(t, p.ID, f.scheduler.scheduled[0].ID)
}

func TestInitiateTransfer_TimeoutTreatedAsGatewayFailure(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	f.gw.FailTransfers = true
	f.gw.FailWith = &gateway.Error{
		Code:        "GATEWAY_UNREACHABLE",
		Description: "context deadline exceeded",
		Step:        "create_transfer",
		Reason:      "network_or_timeout",
	}
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)

	failed, err := f.svc.InitiateTransfer(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusFailed, failed.Status)
	assert.Equal(t, "GATEWAY_UNREACHABLE", failed.ErrorCode)
	assert.Len(t, f.scheduler.scheduled, 1, "ambiguous network failures still enter the retry loop")
}

func TestRetryPayout_ReinitiatesFromFailed(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)

	f.gw.FailTransfers = true
	_, err = f.svc.InitiateTransfer(ctx, p.ID)
	require.NoError(t, err)

	f.gw.FailTransfers = false
	retried, err := f.svc.RetryPayout(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusProcessing, retried.Status)
	assert.NotEmpty(t, retried.TransferID)
	assert.Equal(t, 1, retried.RetryCount, "a successful retry does not consume further budget")
}

func TestRetryPayout_RejectsNonFailed(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)

	_, err = f.svc.RetryPayout(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPayoutNotRetryable)
}

func TestRetryPayout_RejectsExhaustedBudget(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)
	p.Status = models.PayoutStatusFailed
	p.RetryCount = 5
	require.NoError(t, f.repo.Update(ctx, p))

	_, err = f.svc.RetryPayout(ctx, p.ID)
	assert.ErrorIs(t, err, ErrRetryBudgetExhausted)
	assert.Zero(t, f.gw.TransferCalls)
}

func TestHoldAndRelease(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))
	ctx := context.Background()
	in := baseInput()
	in.Hold = true
	in.HoldReason = "kyc refresh"

	p, err := f.svc.CreatePayout(ctx, in)
	require.NoError(t, err)
	require.Equal(t, models.PayoutStatusOnHold, p.Status)

	released, err := f.svc.ReleasePayout(ctx, p.ID)
	require.NoError(t, err)

	// Auto payout vendor, so release flows straight into a transfer.
	assert.Equal(t, models.PayoutStatusProcessing, released.Status)
	assert.Empty(t, released.HoldReason)
	assert.Equal(t, 1, f.gw.TransferCalls)
}

func TestReleasePayout_RejectsNotHeld(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)

	_, err = f.svc.ReleasePayout(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotHeld)
}

func TestReversePayout_CompletedClawsBackThroughGateway(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)
	completed, err := f.svc.MarkTransferProcessed(ctx, p.TransferID)
	require.NoError(t, err)
	require.Equal(t, models.PayoutStatusCompleted, completed.Status)

	reversed, err := f.svc.ReversePayout(ctx, p.ID, "full refund")
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusReversed, reversed.Status)
	assert.Equal(t, "full refund", reversed.ReversalReason)
	require.NotNil(t, reversed.ReversedAt)
	assert.Equal(t, 1, f.gw.ReversalCalls)
}

func TestReversePayout_AlreadyReversedIsNoOp(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)
	_, err = f.svc.MarkTransferProcessed(ctx, p.TransferID)
	require.NoError(t, err)
	_, err = f.svc.ReversePayout(ctx, p.ID, "full refund")
	require.NoError(t, err)

	again, err := f.svc.ReversePayout(ctx, p.ID, "second delivery")
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusReversed, again.Status)
	assert.Equal(t, "full refund", again.ReversalReason, "the original reason is kept")
	assert.Equal(t, 1, f.gw.ReversalCalls, "no second gateway clawback")
}

func TestReversePayout_OnHoldSkipsGateway(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	ctx := context.Background()
	in := baseInput()
	in.Hold = true

	p, err := f.svc.CreatePayout(ctx, in)
	require.NoError(t, err)

	reversed, err := f.svc.ReversePayout(ctx, p.ID, "order cancelled")
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusReversed, reversed.Status)
	assert.Zero(t, f.gw.ReversalCalls, "funds never moved, nothing to claw back")
}

func TestReversePayout_RejectsProcessing(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)
	require.Equal(t, models.PayoutStatusProcessing, p.Status)

	_, err = f.svc.ReversePayout(ctx, p.ID, "refund")
	assert.ErrorIs(t, err, ErrNotReversible)
}

func TestReverseByOrderID(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)
	_, err = f.svc.MarkTransferProcessed(ctx, p.TransferID)
	require.NoError(t, err)

	reversed, err := f.svc.ReverseByOrderID(ctx, "ord_1", "refund rfnd_1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusReversed, reversed.Status)

	_, err = f.svc.ReverseByOrderID(ctx, "ord_missing", "refund")
	assert.ErrorIs(t, err, domainerrors.ErrPayoutNotFound)
}

func TestMarkTransferProcessed_Idempotent(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)

	first, err := f.svc.MarkTransferProcessed(ctx, p.TransferID)
	require.NoError(t, err)
	second, err := f.svc.MarkTransferProcessed(ctx, p.TransferID)
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusCompleted, first.Status)
	assert.Equal(t, models.PayoutStatusCompleted, second.Status)
	require.NotNil(t, first.CompletedAt)
}

func TestMarkTransferFailed_Idempotent(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", true))
	ctx := context.Background()

	p, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)

	gerr := &gateway.Error{Code: "BAD_REQUEST_ERROR", Description: "rejected"}
	first, err := f.svc.MarkTransferFailed(ctx, p.TransferID, gerr)
	require.NoError(t, err)
	second, err := f.svc.MarkTransferFailed(ctx, p.TransferID, gerr)
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusFailed, first.Status)
	assert.Equal(t, 1, first.RetryCount)
	assert.Equal(t, 1, second.RetryCount, "a duplicate failure webhook consumes no extra budget")
	assert.Len(t, f.scheduler.scheduled, 1)
}

func TestGetPayoutSummary_CachesAndInvalidates(t *testing.T) {
	f := newFixture(t, verifiedVendor("vnd_1", false))
	ctx := context.Background()

	_, err := f.svc.CreatePayout(ctx, baseInput())
	require.NoError(t, err)

	s1, err := f.svc.GetPayoutSummary(ctx, "vnd_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s1.PendingCount)

	in := baseInput()
	in.OrderID, in.PaymentID = "ord_2", "pay_2"
	_, err = f.svc.CreatePayout(ctx, in)
	require.NoError(t, err)

	s2, err := f.svc.GetPayoutSummary(ctx, "vnd_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), s2.PendingCount, "creation invalidates the cached summary")
	assert.Equal(t, int64(180000), s2.PendingAmount)
}
