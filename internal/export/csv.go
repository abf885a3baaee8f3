package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"workspace-backoffice/internal/domain"
)

// OrdersCSV streams an order listing as CSV. It is a pure
// transformation; the caller owns the writer.
func OrdersCSV(w io.Writer, orders []domain.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"order_id", "user_id", "status", "payment_method", "total_amount", "placed_at"}); err != nil {
		return err
	}
	for _, o := range orders {
		record := []string{
			o.ID.String(),
			o.UserID.String(),
			string(o.Status),
			string(o.PaymentMethod),
			o.TotalAmount.StringFixed(2),
			o.PlacedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// InvoiceLinesCSV streams one order's line items with a trailing total
// row, suitable as input to an invoice renderer.
func InvoiceLinesCSV(w io.Writer, order *domain.Order, items []domain.OrderItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"variant_id", "quantity", "unit_price", "line_total"}); err != nil {
		return err
	}
	for _, item := range items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		record := []string{
			item.VariantID.String(),
			strconv.Itoa(item.Quantity),
			item.Price.StringFixed(2),
			lineTotal.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"total", "", "", order.TotalAmount.StringFixed(2)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
