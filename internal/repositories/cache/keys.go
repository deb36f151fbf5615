package cache

import "fmt"

// Key construction lives here so the schema of the keyed store is owned by
// one package instead of being scattered across callers.

// WebhookEventKey is the deterministic idempotency key of a gateway
// notification: event kind plus underlying entity id, never the delivery id,
// because redeliveries arrive under fresh envelopes.
func WebhookEventKey(kind, entityID string) string {
	return fmt.Sprintf("webhook:event:%s:%s", kind, entityID)
}

// RetryMarkerKey marks a payout as scheduled-but-not-yet-due. The marker
// carries a TTL equal to the backoff delay; its expiry is what makes the
// payout "due".
func RetryMarkerKey(payoutID string) string {
	return fmt.Sprintf("payout:retry:%s", payoutID)
}

// RetrySetKey is the set of payout ids currently in the retry loop.
const RetrySetKey = "payouts:retrying"

// RiskProfileKey caches a customer's computed risk profile.
func RiskProfileKey(customerID string) string {
	return fmt.Sprintf("risk:profile:%s", customerID)
}

// CODPincodeSetKey is the set of serviceable COD pincodes.
const CODPincodeSetKey = "cod:serviceable_pincodes"

// OrderCollectibleKey records the expected COD collectible amount of an
// order, written by the order.paid reconciler and read by the remittance
// matcher.
func OrderCollectibleKey(orderID string) string {
	return fmt.Sprintf("cod:order:%s:collectible", orderID)
}

// PaymentStatusKey records the last known gateway-side status of a payment.
func PaymentStatusKey(paymentID string) string {
	return fmt.Sprintf("payment:%s:status", paymentID)
}

// PayoutSummaryKey caches a vendor's aggregated payout summary.
func PayoutSummaryKey(vendorID string) string {
	return fmt.Sprintf("payout:summary:%s", vendorID)
}
