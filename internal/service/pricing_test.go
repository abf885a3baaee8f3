package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"workspace-backoffice/internal/domain"
)

func variant(price string) domain.ProductVariant {
	return domain.ProductVariant{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		SKU:         "SKU-" + uuid.NewString()[:8],
		Price:       decimal.RequireFromString(price),
		Stock:       100,
		IsAvailable: true,
	}
}

func TestPriceItemsComputesTotalFromCatalogPrices(t *testing.T) {
	t.Parallel()

	mug := variant("10.00")
	requested := []RequestedItem{{VariantID: mug.ID, Quantity: 3}}

	lines, total, err := PriceItems(requested, []domain.ProductVariant{mug})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 3, lines[0].Quantity)
	require.True(t, lines[0].Price.Equal(decimal.RequireFromString("10.00")))
	require.Equal(t, "30.00", total.StringFixed(2))
}

func TestPriceItemsSumsMultipleLines(t *testing.T) {
	t.Parallel()

	a := variant("9.99")
	b := variant("0.50")
	requested := []RequestedItem{
		{VariantID: a.ID, Quantity: 2},
		{VariantID: b.ID, Quantity: 5},
	}

	_, total, err := PriceItems(requested, []domain.ProductVariant{a, b})
	require.NoError(t, err)
	require.Equal(t, "22.48", total.StringFixed(2))
}

func TestPriceItemsRoundsHalfUp(t *testing.T) {
	t.Parallel()

	// 3 x 1.115 = 3.345, rounds up to 3.35 (never banker's rounding).
	v := variant("1.115")
	_, total, err := PriceItems([]RequestedItem{{VariantID: v.ID, Quantity: 3}}, []domain.ProductVariant{v})
	require.NoError(t, err)
	require.Equal(t, "3.35", total.StringFixed(2))

	// 1 x 0.005 rounds up to 0.01.
	w := variant("0.005")
	_, total, err = PriceItems([]RequestedItem{{VariantID: w.ID, Quantity: 1}}, []domain.ProductVariant{w})
	require.NoError(t, err)
	require.Equal(t, "0.01", total.StringFixed(2))
}

func TestPriceItemsUnknownVariant(t *testing.T) {
	t.Parallel()

	v := variant("5.00")
	_, _, err := PriceItems([]RequestedItem{{VariantID: uuid.New(), Quantity: 1}}, []domain.ProductVariant{v})
	require.ErrorIs(t, err, domain.ErrVariantNotFound)
}

func TestPriceItemsIgnoresNothingButQuantityAndCatalogPrice(t *testing.T) {
	t.Parallel()

	// The request carries no price field at all; the catalog price is the
	// only input, so two identical requests always price identically.
	v := variant("19.90")
	req := []RequestedItem{{VariantID: v.ID, Quantity: 2}}

	_, first, err := PriceItems(req, []domain.ProductVariant{v})
	require.NoError(t, err)
	_, second, err := PriceItems(req, []domain.ProductVariant{v})
	require.NoError(t, err)
	require.True(t, first.Equal(second))
	require.Equal(t, "39.80", first.StringFixed(2))
}
