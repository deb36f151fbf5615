package webhook

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"bazaar/internal/gateway"
	"bazaar/internal/metrics"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"
	"bazaar/internal/services/payout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayoutService struct {
	created   []payout.CreatePayoutInput
	processed []string
	failed    []string
	failedErr *gateway.Error
	reversed  []string

	createErr  error
	processErr error
}

func (f *fakePayoutService) CreatePayout(_ context.Context, input payout.CreatePayoutInput) (*models.Payout, error) {
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return nil, err
	}
	f.created = append(f.created, input)
	return &models.Payout{ID: "po_1", VendorID: input.VendorID}, nil
}

func (f *fakePayoutService) InitiateTransfer(_ context.Context, payoutID string) (*models.Payout, error) {
	return &models.Payout{ID: payoutID}, nil
}

func (f *fakePayoutService) RetryPayout(_ context.Context, payoutID string) (*models.Payout, error) {
	return &models.Payout{ID: payoutID}, nil
}

func (f *fakePayoutService) HoldPayout(_ context.Context, payoutID, _ string) (*models.Payout, error) {
	return &models.Payout{ID: payoutID}, nil
}

func (f *fakePayoutService) ReleasePayout(_ context.Context, payoutID string) (*models.Payout, error) {
	return &models.Payout{ID: payoutID}, nil
}

func (f *fakePayoutService) ReversePayout(_ context.Context, payoutID, _ string) (*models.Payout, error) {
	return &models.Payout{ID: payoutID}, nil
}

func (f *fakePayoutService) ReverseByOrderID(_ context.Context, orderID, reason string) (*models.Payout, error) {
	f.reversed = append(f.reversed, orderID+"|"+reason)
	return &models.Payout{OrderID: orderID}, nil
}

func (f *fakePayoutService) MarkTransferProcessed(_ context.Context, transferID string) (*models.Payout, error) {
	if f.processErr != nil {
		return nil, f.processErr
	}
	f.processed = append(f.processed, transferID)
	return &models.Payout{TransferID: transferID}, nil
}

func (f *fakePayoutService) MarkTransferFailed(_ context.Context, transferID string, gerr *gateway.Error) (*models.Payout, error) {
	f.failed = append(f.failed, transferID)
	f.failedErr = gerr
	return &models.Payout{TransferID: transferID}, nil
}

func (f *fakePayoutService) GetPayout(_ context.Context, payoutID string) (*models.Payout, error) {
	return &models.Payout{ID: payoutID}, nil
}

func (f *fakePayoutService) GetPayoutSummary(_ context.Context, vendorID string) (*models.PayoutSummary, error) {
	return &models.PayoutSummary{VendorID: vendorID}, nil
}

func (f *fakePayoutService) GetPayoutsByStatus(_ context.Context, _, _ string, _, _ int) ([]*models.Payout, int64, error) {
	return nil, 0, nil
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

type fixture struct {
	svc     Service
	payouts *fakePayoutService
	gw      *gateway.MemoryGateway
	store   *cache.MemoryStore
	alerts  *fakeAlertRepo
}

func newTestService(t *testing.T) (Service, *fakePayoutService, *gateway.MemoryGateway, *cache.MemoryStore) {
	t.Helper()
	f := newFixture(t)
	return f.svc, f.payouts, f.gw, f.store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gw := gateway.NewMemoryGateway()
	payouts := &fakePayoutService{}
	store := cache.NewMemoryStore()
	alerts := &fakeAlertRepo{}
	svc := NewService(gw, payouts, store, alerts, metrics.Noop{}, 0)
	return fixture{svc: svc, payouts: payouts, gw: gw, store: store, alerts: alerts}
}

func capturedPaymentBody(paymentID string, notes string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "payment.captured",
		"created_at": 1756700000,
		"payload": {
			"payment": {"entity": {
				"id": %q, "order_id": "ord_1", "amount": 500000,
				"currency": "INR", "status": "captured", "method": "upi",
				"captured": true, "notes": {%s}
			}}
		}
	}`, paymentID, notes))
}

func TestHandle_RejectsBadSignature(t *testing.T) {
	svc, payouts, _, _ := newTestService(t)

	err := svc.Handle(context.Background(), capturedPaymentBody("pay_1", `"vendor_id": "vnd_1"`), "")
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, payouts.created)
}

func TestHandle_PaymentCapturedOpensPayout(t *testing.T) {
	svc, payouts, _, _ := newTestService(t)

	err := svc.Handle(context.Background(), capturedPaymentBody("pay_1", `"vendor_id": "vnd_1"`), "sig")
	require.NoError(t, err)

	require.Len(t, payouts.created, 1)
	in := payouts.created[0]
	assert.Equal(t, "vnd_1", in.VendorID)
	assert.Equal(t, "ord_1", in.OrderID)
	assert.Equal(t, "pay_1", in.PaymentID)
	assert.Equal(t, int64(500000), in.GrossAmount)
	assert.False(t, in.Hold)
}

func TestHandle_HoldNoteHonored(t *testing.T) {
	svc, payouts, _, _ := newTestService(t)

	body := capturedPaymentBody("pay_1",
		`"vendor_id": "vnd_1", "hold": "true", "hold_reason": "manual review"`)
	require.NoError(t, svc.Handle(context.Background(), body, "sig"))

	require.Len(t, payouts.created, 1)
	assert.True(t, payouts.created[0].Hold)
	assert.Equal(t, "manual review", payouts.created[0].HoldReason)
}

func TestHandle_MissingVendorNoteIsAcked(t *testing.T) {
	svc, payouts, _, _ := newTestService(t)

	err := svc.Handle(context.Background(), capturedPaymentBody("pay_1", ``), "sig")
	require.NoError(t, err)
	assert.Empty(t, payouts.created)
}

func TestHandle_DuplicateDeliveryDropped(t *testing.T) {
	svc, payouts, _, _ := newTestService(t)
	body := capturedPaymentBody("pay_1", `"vendor_id": "vnd_1"`)

	require.NoError(t, svc.Handle(context.Background(), body, "sig"))
	require.NoError(t, svc.Handle(context.Background(), body, "sig"))

	assert.Len(t, payouts.created, 1, "redelivery of the same payment must not create twice")
}

func TestHandle_FailedProcessingRecordedAndEscalated(t *testing.T) {
	f := newFixture(t)
	f.payouts.createErr = errors.New("db down")
	body := capturedPaymentBody("pay_1", `"vendor_id": "vnd_1"`)

	// The delivery is absorbed: the outcome is recorded against the event
	// key with the failure, and the operator queue gets the remediation.
	require.NoError(t, f.svc.Handle(context.Background(), body, "sig"))
	assert.Empty(t, f.payouts.created)

	key := cache.WebhookEventKey(KindPaymentCaptured, "pay_1")
	var rec eventRecord
	found, err := f.store.Get(context.Background(), key, &rec)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, statusProcessed, rec.Status)
	assert.Contains(t, rec.Result, "db down")

	require.Len(t, f.alerts.alerts, 1)
	assert.Equal(t, models.AlertKindWebhookFailed, f.alerts.alerts[0].Kind)
	assert.Equal(t, key, f.alerts.alerts[0].SubjectID)

	// Redelivery is a duplicate, not a second attempt; the gateway side is
	// done with this event even though the handler failed.
	require.NoError(t, f.svc.Handle(context.Background(), body, "sig"))
	assert.Empty(t, f.payouts.created)
	assert.Len(t, f.alerts.alerts, 1)
}

func TestHandle_PaymentCapturedRecordsStatus(t *testing.T) {
	f := newFixture(t)

	body := capturedPaymentBody("pay_1", `"vendor_id": "vnd_1"`)
	require.NoError(t, f.svc.Handle(context.Background(), body, "sig"))

	var status string
	found, err := f.store.Get(context.Background(), cache.PaymentStatusKey("pay_1"), &status)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "captured", status)
}

func TestHandle_PaymentFailedRecordsStatus(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{
		"event": "payment.failed",
		"payload": {"payment": {"entity": {"id": "pay_9", "order_id": "ord_9", "status": "failed"}}}
	}`)

	require.NoError(t, f.svc.Handle(context.Background(), body, "sig"))

	var status string
	found, err := f.store.Get(context.Background(), cache.PaymentStatusKey("pay_9"), &status)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "failed", status)
}

func TestHandle_TransferProcessed(t *testing.T) {
	svc, payouts, _, _ := newTestService(t)
	body := []byte(`{
		"event": "transfer.processed",
		"payload": {"transfer": {"entity": {"id": "trf_1", "status": "processed"}}}
	}`)

	require.NoError(t, svc.Handle(context.Background(), body, "sig"))
	assert.Equal(t, []string{"trf_1"}, payouts.processed)
}

func TestHandle_TransferProcessedForUnknownPayoutIsAcked(t *testing.T) {
	svc, payouts, _, _ := newTestService(t)
	payouts.processErr = repositories.ErrPayoutNotFound
	body := []byte(`{
		"event": "transfer.processed",
		"payload": {"transfer": {"entity": {"id": "trf_stray"}}}
	}`)

	assert.NoError(t, svc.Handle(context.Background(), body, "sig"))
}

func TestHandle_TransferFailedCarriesGatewayError(t *testing.T) {
	svc, payouts, _, _ := newTestService(t)
	body := []byte(`{
		"event": "transfer.failed",
		"payload": {"transfer": {"entity": {
			"id": "trf_1", "status": "failed",
			"error": {"code": "BAD_REQUEST_ERROR", "description": "account closed",
				"step": "transfer_processing", "reason": "invalid_account"}
		}}}
	}`)

	require.NoError(t, svc.Handle(context.Background(), body, "sig"))
	require.Equal(t, []string{"trf_1"}, payouts.failed)
	require.NotNil(t, payouts.failedErr)
	assert.Equal(t, "BAD_REQUEST_ERROR", payouts.failedErr.Code)
	assert.Equal(t, "invalid_account", payouts.failedErr.Reason)
}

func TestHandle_RefundReversesPayoutByOrder(t *testing.T) {
	svc, payouts, gw, _ := newTestService(t)
	gw.AddPayment(&gateway.Payment{ID: "pay_1", OrderID: "ord_1", Amount: 500000})
	body := []byte(`{
		"event": "refund.processed",
		"payload": {"refund": {"entity": {
			"id": "rfnd_1", "payment_id": "pay_1", "amount": 500000, "status": "processed"
		}}}
	}`)

	require.NoError(t, svc.Handle(context.Background(), body, "sig"))
	assert.Equal(t, []string{"ord_1|refund rfnd_1"}, payouts.reversed)
}

func TestHandle_OrderPaidRecordsCODCollectible(t *testing.T) {
	svc, _, _, store := newTestService(t)
	body := []byte(`{
		"event": "order.paid",
		"payload": {
			"order": {"entity": {"id": "ord_cod", "amount": 120000, "currency": "INR"}},
			"payment": {"entity": {"id": "pay_cod", "method": "cod"}}
		}
	}`)

	require.NoError(t, svc.Handle(context.Background(), body, "sig"))

	var amount int64
	found, err := store.Get(context.Background(), cache.OrderCollectibleKey("ord_cod"), &amount)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(120000), amount)
}

func TestHandle_OrderPaidOnlineIsIgnored(t *testing.T) {
	svc, _, _, store := newTestService(t)
	body := []byte(`{
		"event": "order.paid",
		"payload": {
			"order": {"entity": {"id": "ord_upi", "amount": 120000}},
			"payment": {"entity": {"id": "pay_upi", "method": "upi"}}
		}
	}`)

	require.NoError(t, svc.Handle(context.Background(), body, "sig"))

	found, err := store.Get(context.Background(), cache.OrderCollectibleKey("ord_upi"), nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHandle_UnknownKindAcked(t *testing.T) {
	svc, payouts, _, _ := newTestService(t)
	body := []byte(`{
		"event": "settlement.processed",
		"payload": {"order": {"entity": {"id": "ord_x"}}}
	}`)

	require.NoError(t, svc.Handle(context.Background(), body, "sig"))
	assert.Empty(t, payouts.created)
	assert.Empty(t, payouts.processed)
}

func TestParseEvent_Malformed(t *testing.T) {
	_, err := ParseEvent([]byte(`{"payload": {}}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = ParseEvent([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
