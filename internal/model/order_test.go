package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPending, OrderProcessing, true},
		{OrderProcessing, OrderPending, true},
		{OrderShipped, OrderProcessing, true},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, true},
		{OrderDelivered, OrderCompleted, true},
		{OrderDelivered, OrderShipped, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderCompleted, OrderPending, false},
		{OrderCancelled, OrderPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestReleasedStockStaysReleased(t *testing.T) {
	for from, nexts := range orderTransitions {
		if from.HoldsStock() {
			continue
		}
		for _, next := range nexts {
			assert.False(t, next.HoldsStock(), "%s -> %s", from, next)
		}
	}
}
