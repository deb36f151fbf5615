package payout

import (
	"errors"
	"fmt"
	"log"

	"bazaar/internal/models"
)

// ErrIllegalTransition is a programming-error-class fault: the caller asked
// for a transition the state machine forbids. It is never retried.
var ErrIllegalTransition = errors.New("illegal payout state transition")

// legalTransitions is the payout state machine. processing can only leave
// via the webhook reconciler, because the gateway is the source of truth for
// settlement outcome; reversal is reachable only from completed or on_hold.
var legalTransitions = map[string][]string{
	models.PayoutStatusPending:    {models.PayoutStatusProcessing, models.PayoutStatusFailed, models.PayoutStatusOnHold},
	models.PayoutStatusProcessing: {models.PayoutStatusCompleted, models.PayoutStatusFailed},
	models.PayoutStatusFailed:     {models.PayoutStatusPending},
	models.PayoutStatusOnHold:     {models.PayoutStatusPending, models.PayoutStatusReversed},
	models.PayoutStatusCompleted:  {models.PayoutStatusReversed},
	models.PayoutStatusReversed:   {},
}

// CanTransition reports whether from → to is a legal transition.
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves a payout to the next status, rejecting illegal moves
// loudly. The caller persists the payout afterwards.
func transition(p *models.Payout, to string) error {
	if !CanTransition(p.Status, to) {
		log.Printf("ILLEGAL PAYOUT TRANSITION payout=%s %s -> %s", p.ID, p.Status, to)
		return fmt.Errorf("%w: payout %s cannot move %s -> %s", ErrIllegalTransition, p.ID, p.Status, to)
	}
	p.Status = to
	return nil
}
