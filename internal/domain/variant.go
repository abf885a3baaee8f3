package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductVariant struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	SKU         string
	Price       decimal.Decimal
	Stock       int
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StockAdjustment is one relative stock change applied by the ledger.
type StockAdjustment struct {
	VariantID uuid.UUID
	Quantity  int
}
