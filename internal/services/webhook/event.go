package webhook

import (
	"encoding/json"
	"fmt"
)

// Webhook kinds the reconciler understands. Anything else is acknowledged
// and dropped.
const (
	KindPaymentCaptured   = "payment.captured"
	KindPaymentFailed     = "payment.failed"
	KindTransferProcessed = "transfer.processed"
	KindTransferFailed    = "transfer.failed"
	KindRefundProcessed   = "refund.processed"
	KindOrderPaid         = "order.paid"
)

// PaymentPayload is the payment entity carried by payment.* and order.paid
// events.
type PaymentPayload struct {
	ID       string            `json:"id"`
	OrderID  string            `json:"order_id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Method   string            `json:"method"`
	Captured bool              `json:"captured"`
	Notes    map[string]string `json:"notes"`
}

// TransferPayload is the transfer entity carried by transfer.* events.
type TransferPayload struct {
	ID          string `json:"id"`
	ReferenceID string `json:"reference_id"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	Error       struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Step        string `json:"step"`
		Reason      string `json:"reason"`
	} `json:"error"`
}

// RefundPayload is the refund entity carried by refund.processed.
type RefundPayload struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// OrderPayload is the order entity carried by order.paid.
type OrderPayload struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Event is one parsed webhook delivery.
type Event struct {
	Kind      string
	CreatedAt int64

	Payment  *PaymentPayload
	Transfer *TransferPayload
	Refund   *RefundPayload
	Order    *OrderPayload
}

type wrapped[T any] struct {
	Entity *T `json:"entity"`
}

type envelope struct {
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Payment  wrapped[PaymentPayload]  `json:"payment"`
		Transfer wrapped[TransferPayload] `json:"transfer"`
		Refund   wrapped[RefundPayload]   `json:"refund"`
		Order    wrapped[OrderPayload]    `json:"order"`
	} `json:"payload"`
}

// ParseEvent decodes a raw webhook body into an Event.
func ParseEvent(raw []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event kind", ErrMalformedPayload)
	}
	return &Event{
		Kind:      env.Event,
		CreatedAt: env.CreatedAt,
		Payment:   env.Payload.Payment.Entity,
		Transfer:  env.Payload.Transfer.Entity,
		Refund:    env.Payload.Refund.Entity,
		Order:     env.Payload.Order.Entity,
	}, nil
}

// EntityID identifies the gateway entity the event is about. Deduplication
// keys on kind plus entity, never on the delivery id, so redeliveries of
// the same fact collapse no matter how often the gateway sends them.
func (e *Event) EntityID() string {
	if e.Kind == KindOrderPaid && e.Order != nil {
		return e.Order.ID
	}
	switch {
	case e.Transfer != nil:
		return e.Transfer.ID
	case e.Refund != nil:
		return e.Refund.ID
	case e.Payment != nil:
		return e.Payment.ID
	case e.Order != nil:
		return e.Order.ID
	}
	return ""
}
