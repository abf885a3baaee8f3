package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	t.Parallel()

	allowed := map[OrderStatus][]OrderStatus{
		OrderPending:    {OrderProcessing, OrderCancelled},
		OrderProcessing: {OrderDelivered, OrderCancelled},
		OrderDelivered:  {},
		OrderCancelled:  {},
	}
	all := []OrderStatus{OrderPending, OrderProcessing, OrderDelivered, OrderCancelled}

	for from, targets := range allowed {
		ok := make(map[OrderStatus]bool, len(targets))
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			require.Equal(t, ok[to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatusSelfTransitionRejected(t *testing.T) {
	t.Parallel()

	for _, s := range []OrderStatus{OrderPending, OrderProcessing, OrderDelivered, OrderCancelled} {
		require.False(t, s.CanTransitionTo(s), "%s -> %s", s, s)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	t.Parallel()

	require.False(t, OrderPending.IsTerminal())
	require.False(t, OrderProcessing.IsTerminal())
	require.True(t, OrderDelivered.IsTerminal())
	require.True(t, OrderCancelled.IsTerminal())
}

func TestOrderStatusValidity(t *testing.T) {
	t.Parallel()

	require.True(t, OrderProcessing.IsValid())
	require.False(t, OrderStatus("SHIPPED").IsValid())
	require.False(t, OrderStatus("").IsValid())
}

func TestPaymentMethodValidity(t *testing.T) {
	t.Parallel()

	require.True(t, PaymentCash.IsValid())
	require.True(t, PaymentOnline.IsValid())
	require.False(t, PaymentMethod("CARD").IsValid())
}
