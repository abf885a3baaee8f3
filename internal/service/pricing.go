package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"workspace-backoffice/internal/domain"
)

// RequestedItem is one line of a cart as submitted by a client. Any
// price the client attached is dropped at the boundary; only variant
// and quantity survive.
type RequestedItem struct {
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

type PricedLine struct {
	VariantID uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

// PriceItems resolves each requested line against the current variant
// catalog and computes the authoritative total: sum of quantity x
// current price, rounded half-up to two decimal places.
func PriceItems(requested []RequestedItem, variants []domain.ProductVariant) ([]PricedLine, decimal.Decimal, error) {
	byId := make(map[uuid.UUID]domain.ProductVariant, len(variants))
	for _, v := range variants {
		byId[v.ID] = v
	}

	lines := make([]PricedLine, 0, len(requested))
	total := decimal.Zero
	for _, item := range requested {
		variant, ok := byId[item.VariantID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", domain.ErrVariantNotFound, item.VariantID)
		}
		lines = append(lines, PricedLine{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Price:     variant.Price,
		})
		total = total.Add(variant.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	// Round is half-away-from-zero, which is half-up for money that is
	// never negative.
	return lines, total.Round(2), nil
}
