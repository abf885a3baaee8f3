package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutSessionStatus string

const (
	CheckoutInit CheckoutSessionStatus = "INIT"
	// CheckoutConfirming marks a session claimed by exactly one
	// confirmation attempt; a webhook retry and the reconciliation
	// sweep can race, and only the claim holder materializes the order.
	CheckoutConfirming CheckoutSessionStatus = "CONFIRMING"
	CheckoutConfirmed  CheckoutSessionStatus = "CONFIRMED"
	CheckoutExpired    CheckoutSessionStatus = "EXPIRED"
	CheckoutFailed     CheckoutSessionStatus = "FAILED"
)

// CheckoutSession is the deferred-commit order intent for pay-online
// checkouts. The order itself is not materialized until the gateway
// confirms payment; until then the intent rides in Intent as opaque
// JSON and no stock is reserved.
type CheckoutSession struct {
	ID               uuid.UUID
	WorkspaceID      uuid.UUID
	Status           CheckoutSessionStatus
	GatewaySessionID string
	Intent           []byte
	Amount           decimal.Decimal
	OrderID          *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
