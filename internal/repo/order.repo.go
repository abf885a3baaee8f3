package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"workspace-backoffice/internal/domain"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByWorkspace(ctx context.Context, workspaceId uuid.UUID) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, orderId uuid.UUID, from, to domain.OrderStatus, stockCommitted bool) error
	AdjustTotal(ctx context.Context, tx *sql.Tx, orderId uuid.UUID, delta decimal.Decimal) error
	CreateItem(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error
	DeleteItem(ctx context.Context, tx *sql.Tx, itemId uuid.UUID) error
	FindItemById(ctx context.Context, itemId uuid.UUID) (*domain.OrderItem, error)
	FindItems(ctx context.Context, orderId uuid.UUID) ([]domain.OrderItem, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, workspace_id, user_id, status, payment_method, total_amount, notes,
	shipping_address_id, billing_address_id, stock_committed, placed_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }, o *domain.Order) error {
	return row.Scan(
		&o.ID, &o.WorkspaceID, &o.UserID, &o.Status, &o.PaymentMethod, &o.TotalAmount, &o.Notes,
		&o.ShippingAddressID, &o.BillingAddressID, &o.StockCommitted, &o.PlacedAt, &o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := tx.ExecContext(ctx, query,
		order.ID, order.WorkspaceID, order.UserID, order.Status, order.PaymentMethod,
		order.TotalAmount, order.Notes, order.ShippingAddressID, order.BillingAddressID,
		order.StockCommitted, order.PlacedAt, order.CreatedAt, order.UpdatedAt,
	)
	return err
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	err := scanOrder(row, &order)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) ListByWorkspace(ctx context.Context, workspaceId uuid.UUID) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE workspace_id = $1 ORDER BY placed_at DESC`, workspaceId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// UpdateStatus moves the order out of an expected prior status in one
// guarded statement. Racing transitions both read the same prior
// status, but only one matches the WHERE clause; the loser sees zero
// rows and its transaction rolls back.
func (r *orderRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, orderId uuid.UUID, from, to domain.OrderStatus, stockCommitted bool) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $3, stock_committed = $4, updated_at = $5
		 WHERE id = $1 AND status = $2`,
		orderId, from, to, stockCommitted, time.Now(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: order %s is no longer %s", domain.ErrInvalidTransition, orderId, from)
	}
	return nil
}

// AdjustTotal shifts total_amount by the exact line delta rather than
// recomputing the whole order.
func (r *orderRepo) AdjustTotal(ctx context.Context, tx *sql.Tx, orderId uuid.UUID, delta decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE orders SET total_amount = total_amount + $2, updated_at = now() WHERE id = $1`,
		orderId, delta,
	)
	return err
}

func (r *orderRepo) CreateItem(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_items (id, order_id, variant_id, quantity, price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.OrderID, item.VariantID, item.Quantity, item.Price, item.CreatedAt,
	)
	return err
}

func (r *orderRepo) DeleteItem(ctx context.Context, tx *sql.Tx, itemId uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE id = $1`, itemId)
	return err
}

func (r *orderRepo) FindItemById(ctx context.Context, itemId uuid.UUID) (*domain.OrderItem, error) {
	var item domain.OrderItem
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, variant_id, quantity, price, created_at FROM order_items WHERE id = $1`, itemId).
		Scan(&item.ID, &item.OrderID, &item.VariantID, &item.Quantity, &item.Price, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *orderRepo) FindItems(ctx context.Context, orderId uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, variant_id, quantity, price, created_at
		 FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.VariantID, &item.Quantity, &item.Price, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
