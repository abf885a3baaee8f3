package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// orderTransitions is the full set of legal status moves. Anything not
// listed here, including a transition into the current status, is rejected.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderDelivered, OrderCancelled},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentOnline PaymentMethod = "ONLINE"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentCash || m == PaymentOnline
}

type Order struct {
	ID                uuid.UUID
	WorkspaceID       uuid.UUID
	UserID            uuid.UUID
	Status            OrderStatus
	PaymentMethod     PaymentMethod
	TotalAmount       decimal.Decimal
	Notes             string
	ShippingAddressID uuid.UUID
	BillingAddressID  uuid.UUID
	// StockCommitted records whether this order has decremented variant
	// stock, so cancellation knows whether there is anything to reverse.
	StockCommitted bool
	PlacedAt       time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem snapshots the variant price at order time; the price is
// never re-read from the catalog afterwards.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	VariantID uuid.UUID
	Quantity  int
	Price     decimal.Decimal
	CreatedAt time.Time
}

// OrderStatusHistory is an append-only log, one row per transition
// including the initial placement.
type OrderStatusHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    OrderStatus
	Note      string
	ChangedBy uuid.UUID
	CreatedAt time.Time
}
