package gateway

import (
	"context"
	"fmt"
	"sync"
)

// MemoryGateway is the in-memory Gateway used in tests and local runs. It
// can be told to fail transfer creation to exercise the retry path.
type MemoryGateway struct {
	mu        sync.Mutex
	seq       int
	payments  map[string]*Payment
	refunds   map[string]*Refund
	transfers map[string]*Transfer

	// FailTransfers makes CreateTransfer return FailWith until cleared.
	FailTransfers bool
	FailWith      *Error

	TransferCalls int
	ReversalCalls int
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		payments:  make(map[string]*Payment),
		refunds:   make(map[string]*Refund),
		transfers: make(map[string]*Transfer),
	}
}

// AddPayment seeds a gateway-side payment for tests.
func (g *MemoryGateway) AddPayment(p *Payment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[p.ID] = p
}

// AddRefund seeds a gateway-side refund for tests.
func (g *MemoryGateway) AddRefund(r *Refund) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds[r.ID] = r
}

func (g *MemoryGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return &Order{
		ID:       fmt.Sprintf("order_mem_%d", g.seq),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *MemoryGateway) CapturePayment(_ context.Context, paymentID string, amount int64) (*Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		p = &Payment{ID: paymentID, Amount: amount, Currency: "INR"}
		g.payments[paymentID] = p
	}
	p.Captured = true
	p.Status = "captured"
	return p, nil
}

func (g *MemoryGateway) FetchPayment(_ context.Context, paymentID string) (*Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, &Error{Code: "NOT_FOUND", Description: "payment not found", Step: "fetch_payment"}
	}
	return p, nil
}

func (g *MemoryGateway) FetchRefund(_ context.Context, refundID string) (*Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.refunds[refundID]
	if !ok {
		return nil, &Error{Code: "NOT_FOUND", Description: "refund not found", Step: "fetch_refund"}
	}
	return r, nil
}

func (g *MemoryGateway) CreateTransfer(_ context.Context, req TransferRequest) (*Transfer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.TransferCalls++

	if g.FailTransfers {
		if g.FailWith != nil {
			return nil, g.FailWith
		}
		return nil, &Error{
			Code:        "BAD_REQUEST_ERROR",
			Description: "transfer rejected",
			Step:        "create_transfer",
			Reason:      "test_failure",
		}
	}

	// Idempotent on reference id, mirroring gateway behavior.
	for _, tr := range g.transfers {
		if tr.ReferenceID == req.ReferenceID {
			return tr, nil
		}
	}

	g.seq++
	tr := &Transfer{
		ID:          fmt.Sprintf("trf_mem_%d", g.seq),
		Destination: req.Destination,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      "processing",
		ReferenceID: req.ReferenceID,
	}
	g.transfers[tr.ID] = tr
	return tr, nil
}

func (g *MemoryGateway) FetchTransfer(_ context.Context, transferID string) (*Transfer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tr, ok := g.transfers[transferID]
	if !ok {
		return nil, &Error{Code: "NOT_FOUND", Description: "transfer not found", Step: "fetch_transfer"}
	}
	return tr, nil
}

func (g *MemoryGateway) ReverseTransfer(_ context.Context, transferID, reason string) (*Transfer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ReversalCalls++
	tr, ok := g.transfers[transferID]
	if !ok {
		return nil, &Error{Code: "NOT_FOUND", Description: "transfer not found", Step: "reverse_transfer"}
	}
	tr.Reversed = true
	tr.Status = "reversed"
	return tr, nil
}

func (g *MemoryGateway) EditTransfer(_ context.Context, transferID string, _ map[string]string) (*Transfer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tr, ok := g.transfers[transferID]
	if !ok {
		return nil, &Error{Code: "NOT_FOUND", Description: "transfer not found", Step: "edit_transfer"}
	}
	return tr, nil
}

func (g *MemoryGateway) VerifyPaymentSignature(_, _, signature string) bool {
	return signature != ""
}

func (g *MemoryGateway) VerifyWebhookSignature(_ []byte, signature string) bool {
	return signature != ""
}
