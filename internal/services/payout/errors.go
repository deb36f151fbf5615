package payout

import "errors"

var (
	// ErrPayoutNotPending guards the single-in-flight-transfer invariant:
	// initiateTransfer refuses, without contacting the gateway, unless the
	// payout is pending.
	ErrPayoutNotPending = errors.New("payout is not pending; transfer not attempted")

	ErrPayoutNotRetryable   = errors.New("payout is not in a retryable state")
	ErrRetryBudgetExhausted = errors.New("payout has exhausted its retry budget")
	ErrNotReversible        = errors.New("payout can only be reversed from completed or on_hold")
	ErrNotHeld              = errors.New("payout is not on hold")
)
