package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"workspace-backoffice/internal/domain"
)

// HistoryRepo appends to the order status log. Rows are never updated
// or deleted.
type HistoryRepo interface {
	Append(ctx context.Context, tx *sql.Tx, entry *domain.OrderStatusHistory) error
	ListByOrder(ctx context.Context, orderId uuid.UUID) ([]domain.OrderStatusHistory, error)
}

type historyRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) HistoryRepo {
	return &historyRepo{db: db}
}

func (r *historyRepo) Append(ctx context.Context, tx *sql.Tx, entry *domain.OrderStatusHistory) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_status_history (id, order_id, status, note, changed_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.OrderID, entry.Status, entry.Note, entry.ChangedBy, entry.CreatedAt,
	)
	return err
}

func (r *historyRepo) ListByOrder(ctx context.Context, orderId uuid.UUID) ([]domain.OrderStatusHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, status, note, changed_by, created_at
		 FROM order_status_history WHERE order_id = $1 ORDER BY created_at`, orderId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.OrderStatusHistory
	for rows.Next() {
		var e domain.OrderStatusHistory
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Note, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
