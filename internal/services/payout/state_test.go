package payout

import (
	"testing"

	"bazaar/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := [][2]string{
		{models.PayoutStatusPending, models.PayoutStatusProcessing},
		{models.PayoutStatusPending, models.PayoutStatusFailed},
		{models.PayoutStatusPending, models.PayoutStatusOnHold},
		{models.PayoutStatusProcessing, models.PayoutStatusCompleted},
		{models.PayoutStatusProcessing, models.PayoutStatusFailed},
		{models.PayoutStatusFailed, models.PayoutStatusPending},
		{models.PayoutStatusOnHold, models.PayoutStatusPending},
		{models.PayoutStatusOnHold, models.PayoutStatusReversed},
		{models.PayoutStatusCompleted, models.PayoutStatusReversed},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc[0], tc[1]), "%s -> %s should be legal", tc[0], tc[1])
	}

	illegal := [][2]string{
		{models.PayoutStatusPending, models.PayoutStatusCompleted},
		{models.PayoutStatusPending, models.PayoutStatusReversed},
		{models.PayoutStatusProcessing, models.PayoutStatusPending},
		{models.PayoutStatusProcessing, models.PayoutStatusOnHold},
		{models.PayoutStatusProcessing, models.PayoutStatusReversed},
		{models.PayoutStatusFailed, models.PayoutStatusCompleted},
		{models.PayoutStatusFailed, models.PayoutStatusReversed},
		{models.PayoutStatusCompleted, models.PayoutStatusPending},
		{models.PayoutStatusCompleted, models.PayoutStatusProcessing},
		{models.PayoutStatusReversed, models.PayoutStatusPending},
		{models.PayoutStatusReversed, models.PayoutStatusCompleted},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc[0], tc[1]), "%s -> %s should be illegal", tc[0], tc[1])
	}
}

func TestTransition_IllegalMoveLeavesStatusUntouched(t *testing.T) {
	p := &models.Payout{ID: "po_1", Status: models.PayoutStatusProcessing}

	err := transition(p, models.PayoutStatusPending)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, models.PayoutStatusProcessing, p.Status)

	assert.NoError(t, transition(p, models.PayoutStatusCompleted))
	assert.Equal(t, models.PayoutStatusCompleted, p.Status)
}
