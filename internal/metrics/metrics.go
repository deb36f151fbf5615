// Package metrics exposes settlement counters. Services depend on the
// Collector interface; production wires the Prometheus implementation and
// tests use the no-op.
package metrics

// Collector records settlement-pipeline observations.
type Collector interface {
	PayoutCreated(status string)
	TransferInitiated(result string)
	PayoutCompleted(amount int64)
	PayoutFailed()
	PayoutReversed()
	RetryScheduled()
	EscalationRaised()
	WebhookEvent(kind, result string)
	RemittanceRecorded(result string)
}

// Noop is the Collector used in tests.
type Noop struct{}

func (Noop) PayoutCreated(string)      {}
func (Noop) TransferInitiated(string)  {}
func (Noop) PayoutCompleted(int64)     {}
func (Noop) PayoutFailed()             {}
func (Noop) PayoutReversed()           {}
func (Noop) RetryScheduled()           {}
func (Noop) EscalationRaised()         {}
func (Noop) WebhookEvent(string, string) {}
func (Noop) RemittanceRecorded(string)  {}
