package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
	"github.com/stripe/stripe-go/v72/refund"
	"github.com/stripe/stripe-go/v72/reversal"
	"github.com/stripe/stripe-go/v72/transfer"
	"github.com/stripe/stripe-go/v72/webhook"
)

// StripeGateway is the production Gateway. Buyer payments run through
// PaymentIntents; vendor payouts are Connect transfers with reversals for
// clawbacks.
type StripeGateway struct {
	secretKey     string
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	params.AddMetadata("receipt", receipt)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, stripeError(err, "create_order")
	}
	return &Order{
		ID:       pi.ID,
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
		Receipt:  receipt,
		Status:   string(pi.Status),
	}, nil
}

func (g *StripeGateway) CapturePayment(ctx context.Context, paymentID string, amount int64) (*Payment, error) {
	params := &stripe.PaymentIntentCaptureParams{
		AmountToCapture: stripe.Int64(amount),
	}
	params.Context = ctx

	pi, err := paymentintent.Capture(paymentID, params)
	if err != nil {
		return nil, stripeError(err, "capture_payment")
	}
	return paymentFromIntent(pi), nil
}

func (g *StripeGateway) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(paymentID, params)
	if err != nil {
		return nil, stripeError(err, "fetch_payment")
	}
	return paymentFromIntent(pi), nil
}

func (g *StripeGateway) FetchRefund(ctx context.Context, refundID string) (*Refund, error) {
	params := &stripe.RefundParams{}
	params.Context = ctx

	rf, err := refund.Get(refundID, params)
	if err != nil {
		return nil, stripeError(err, "fetch_refund")
	}
	out := &Refund{
		ID:     rf.ID,
		Amount: rf.Amount,
		Status: string(rf.Status),
	}
	if rf.PaymentIntent != nil {
		out.PaymentID = rf.PaymentIntent.ID
	}
	return out, nil
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Destination: stripe.String(req.Destination),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.ReferenceID)
	params.AddMetadata("reference_id", req.ReferenceID)
	if req.Narration != "" {
		params.AddMetadata("narration", req.Narration)
	}
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}

	tr, err := transfer.New(params)
	if err != nil {
		return nil, stripeError(err, "create_transfer")
	}
	return transferFromStripe(tr), nil
}

func (g *StripeGateway) FetchTransfer(ctx context.Context, transferID string) (*Transfer, error) {
	params := &stripe.TransferParams{}
	params.Context = ctx

	tr, err := transfer.Get(transferID, params)
	if err != nil {
		return nil, stripeError(err, "fetch_transfer")
	}
	return transferFromStripe(tr), nil
}

func (g *StripeGateway) ReverseTransfer(ctx context.Context, transferID, reason string) (*Transfer, error) {
	params := &stripe.ReversalParams{
		Transfer: stripe.String(transferID),
	}
	params.Context = ctx
	params.AddMetadata("reason", reason)

	if _, err := reversal.New(params); err != nil {
		return nil, stripeError(err, "reverse_transfer")
	}
	return g.FetchTransfer(ctx, transferID)
}

func (g *StripeGateway) EditTransfer(ctx context.Context, transferID string, notes map[string]string) (*Transfer, error) {
	params := &stripe.TransferParams{}
	params.Context = ctx
	for k, v := range notes {
		params.AddMetadata(k, v)
	}

	tr, err := transfer.Update(transferID, params)
	if err != nil {
		return nil, stripeError(err, "edit_transfer")
	}
	return transferFromStripe(tr), nil
}

// VerifyPaymentSignature checks the HMAC the checkout flow attaches to a
// captured payment: SHA-256 over "orderID|paymentID" keyed with the API
// secret.
func (g *StripeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.secretKey))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *StripeGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	_, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	return err == nil
}

func paymentFromIntent(pi *stripe.PaymentIntent) *Payment {
	p := &Payment{
		ID:       pi.ID,
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
		Status:   string(pi.Status),
		Captured: pi.Status == stripe.PaymentIntentStatusSucceeded,
		Metadata: pi.Metadata,
	}
	if p.Metadata != nil {
		p.OrderID = p.Metadata["order_id"]
	}
	return p
}

func transferFromStripe(tr *stripe.Transfer) *Transfer {
	t := &Transfer{
		ID:       tr.ID,
		Amount:   tr.Amount,
		Currency: string(tr.Currency),
		Status:   "processing",
		Reversed: tr.Reversed,
	}
	if tr.Destination != nil {
		t.Destination = tr.Destination.ID
	}
	if tr.Metadata != nil {
		t.ReferenceID = tr.Metadata["reference_id"]
	}
	if tr.Reversed {
		t.Status = "reversed"
	}
	return t
}

func stripeError(err error, step string) *Error {
	if serr, ok := err.(*stripe.Error); ok {
		return &Error{
			Code:        string(serr.Code),
			Description: serr.Msg,
			Step:        step,
			Reason:      string(serr.Type),
		}
	}
	return WrapError(err, step)
}
