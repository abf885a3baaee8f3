package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMockGatewayIdempotency(t *testing.T) {
	t.Parallel()

	g := NewMockGateway()
	amount := decimal.RequireFromString("30.00")

	first, err := g.CreateSession(context.Background(), amount, "usd", nil, "idem-1")
	require.NoError(t, err)
	second, err := g.CreateSession(context.Background(), amount, "usd", nil, "idem-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	other, err := g.CreateSession(context.Background(), amount, "usd", nil, "idem-2")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestMockGatewayPaymentLifecycle(t *testing.T) {
	t.Parallel()

	g := NewMockGateway()
	session, err := g.CreateSession(context.Background(), decimal.RequireFromString("10.00"), "usd", nil, "idem-3")
	require.NoError(t, err)

	paid, err := g.CheckStatus(context.Background(), session.ID)
	require.NoError(t, err)
	require.False(t, paid)

	g.MarkPaid(session.ID)
	paid, err = g.CheckStatus(context.Background(), session.ID)
	require.NoError(t, err)
	require.True(t, paid)

	_, err = g.CheckStatus(context.Background(), "unknown")
	require.Error(t, err)
}

func TestMockGatewayFailNext(t *testing.T) {
	t.Parallel()

	g := NewMockGateway()
	g.FailNext = true

	_, err := g.CreateSession(context.Background(), decimal.RequireFromString("10.00"), "usd", nil, "idem-4")
	require.Error(t, err)

	// Only the next call fails.
	_, err = g.CreateSession(context.Background(), decimal.RequireFromString("10.00"), "usd", nil, "idem-4")
	require.NoError(t, err)
}
