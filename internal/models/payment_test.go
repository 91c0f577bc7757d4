package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusTransitions(t *testing.T) {
	all := []PaymentStatusType{PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusFailed}
	allowed := map[[2]PaymentStatusType]bool{
		{PaymentStatusPending, PaymentStatusSucceeded}: true,
		{PaymentStatusPending, PaymentStatusFailed}:    true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]PaymentStatusType{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestLeaseStatusHoldsUnit(t *testing.T) {
	s, err := ParseLeaseStatus("terminated")
	assert.NoError(t, err)
	assert.False(t, s.HoldsUnit())
	assert.True(t, LeaseStatusActive.HoldsUnit())

	_, err = ParseLeaseStatus("paused")
	assert.Error(t, err)
}
