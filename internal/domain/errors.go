package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrValidation          = errors.New("orders: invalid input")
	ErrUserNotFound        = errors.New("orders: user not found")
	ErrOrderNotFound       = errors.New("orders: order not found")
	ErrOrderItemNotFound   = errors.New("orders: order item not found")
	ErrVariantNotFound     = errors.New("pricing: variant not found")
	ErrAddressNotFound     = errors.New("orders: address not found")
	ErrInvalidAddress      = errors.New("orders: exactly one of address id or address body is required")
	ErrCrossWorkspaceOrder = errors.New("orders: items span multiple workspaces")
	ErrInvalidTransition   = errors.New("orders: invalid status transition")
	ErrInsufficientStock   = errors.New("stock: insufficient stock")
	ErrPermissionDenied    = errors.New("auth: permission denied")
	ErrSessionNotFound     = errors.New("checkout: session not found")
)

// StockViolation describes one line item whose requested quantity
// exceeds the variant's available stock.
type StockViolation struct {
	VariantID uuid.UUID `json:"variant_id"`
	SKU       string    `json:"sku"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// InsufficientStockError carries every violating line item so a client
// can correct the whole cart in one round trip.
type InsufficientStockError struct {
	Violations []StockViolation
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s requested %d available %d", v.SKU, v.Requested, v.Available))
	}
	return fmt.Sprintf("stock: insufficient stock: %s", strings.Join(parts, "; "))
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// TransactionFailedError wraps a persistence failure that surfaced
// inside a transaction and forced a rollback.
type TransactionFailedError struct {
	Op  string
	Err error
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("orders: transaction %s failed: %v", e.Op, e.Err)
}

func (e *TransactionFailedError) Unwrap() error { return e.Err }
