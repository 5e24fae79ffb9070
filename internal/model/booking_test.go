package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBooking_DeliveryState(t *testing.T) {
	b := &Booking{}
	assert.Equal(t, DeliveryPending, b.DeliveryState(3))

	b.NotifyAttempts = 3
	assert.Equal(t, DeliveryFailed, b.DeliveryState(3))

	b.NotifySent = true
	assert.Equal(t, DeliverySent, b.DeliveryState(3))
}
