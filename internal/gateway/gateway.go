// Package gateway defines the narrow capability surface of the payment
// gateway and its implementations: one production client and one in-memory
// client for tests, selected at the composition root.
package gateway

import (
	"context"
	"fmt"
)

// Error is a typed gateway failure. All gateway failures, including
// network-level ones, surface as this type; the orchestrator treats them
// uniformly for retry purposes.
type Error struct {
	Code        string
	Description string
	Step        string
	Reason      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %s at %s: %s", e.Code, e.Step, e.Description)
}

// Payment is the gateway-side view of a captured or failed payment.
type Payment struct {
	ID       string
	OrderID  string
	Amount   int64
	Currency string
	Status   string
	Method   string
	Captured bool
	Metadata map[string]string
}

// Refund is the gateway-side view of a refund.
type Refund struct {
	ID        string
	PaymentID string
	Amount    int64
	Status    string
}

// Order is a gateway-side payment order.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// TransferRequest asks the gateway to move funds to a payout destination.
type TransferRequest struct {
	Destination string // vendor's fund-account / connected-account reference
	Amount      int64  // minor currency units
	Currency    string
	ReferenceID string // internal payout id, doubles as idempotency key
	Narration   string
	Notes       map[string]string
}

// Transfer is the gateway-side object representing an in-flight or settled
// payout.
type Transfer struct {
	ID          string
	Destination string
	Amount      int64
	Currency    string
	Status      string
	Reversed    bool
	ReferenceID string
}

// Gateway is everything the settlement layer needs from the payment
// provider. Implementations must honor context deadlines; a timeout is a
// failure, never silently ignored.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
	CapturePayment(ctx context.Context, paymentID string, amount int64) (*Payment, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	FetchRefund(ctx context.Context, refundID string) (*Refund, error)

	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
	FetchTransfer(ctx context.Context, transferID string) (*Transfer, error)
	ReverseTransfer(ctx context.Context, transferID, reason string) (*Transfer, error)
	EditTransfer(ctx context.Context, transferID string, notes map[string]string) (*Transfer, error)

	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// WrapError coerces any error into a typed gateway Error, preserving typed
// errors as-is. Network failures and timeouts land here with a generic code
// so the retry path treats them like gateway-reported failures.
func WrapError(err error, step string) *Error {
	if err == nil {
		return nil
	}
	if gerr, ok := err.(*Error); ok {
		return gerr
	}
	return &Error{
		Code:        "GATEWAY_UNREACHABLE",
		Description: err.Error(),
		Step:        step,
		Reason:      "network_or_timeout",
	}
}
