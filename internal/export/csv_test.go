package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"workspace-backoffice/internal/domain"
)

func TestOrdersCSV(t *testing.T) {
	t.Parallel()

	placedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	orders := []domain.Order{
		{
			ID:            uuid.New(),
			UserID:        uuid.New(),
			Status:        domain.OrderProcessing,
			PaymentMethod: domain.PaymentOnline,
			TotalAmount:   decimal.RequireFromString("129.9"),
			PlacedAt:      placedAt,
		},
		{
			ID:            uuid.New(),
			UserID:        uuid.New(),
			Status:        domain.OrderCancelled,
			PaymentMethod: domain.PaymentCash,
			TotalAmount:   decimal.RequireFromString("5"),
			PlacedAt:      placedAt.Add(time.Hour),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, OrdersCSV(&buf, orders))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"order_id", "user_id", "status", "payment_method", "total_amount", "placed_at"}, records[0])
	require.Equal(t, orders[0].ID.String(), records[1][0])
	require.Equal(t, "PROCESSING", records[1][2])
	require.Equal(t, "129.90", records[1][4])
	require.Equal(t, "2026-03-14T09:30:00Z", records[1][5])
	require.Equal(t, "5.00", records[2][4])
}

func TestOrdersCSVEmptyListStillWritesHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, OrdersCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestInvoiceLinesCSV(t *testing.T) {
	t.Parallel()

	order := &domain.Order{ID: uuid.New(), TotalAmount: decimal.RequireFromString("35.00")}
	items := []domain.OrderItem{
		{VariantID: uuid.New(), Quantity: 3, Price: decimal.RequireFromString("10.00")},
		{VariantID: uuid.New(), Quantity: 1, Price: decimal.RequireFromString("5.00")},
	}

	var buf bytes.Buffer
	require.NoError(t, InvoiceLinesCSV(&buf, order, items))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, []string{"variant_id", "quantity", "unit_price", "line_total"}, records[0])
	require.Equal(t, "30.00", records[1][3])
	require.Equal(t, "5.00", records[2][3])
	require.Equal(t, []string{"total", "", "", "35.00"}, records[3])
}
