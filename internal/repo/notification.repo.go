package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"workspace-backoffice/internal/domain"
)

type NotificationRepo interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByWorkspace(ctx context.Context, workspaceId uuid.UUID) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type notificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) NotificationRepo {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, workspace_id, user_id, kind, order_id, message, read_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.WorkspaceID, n.UserID, n.Kind, n.OrderID, n.Message, n.ReadAt, n.CreatedAt,
	)
	return err
}

func (r *notificationRepo) ListByWorkspace(ctx context.Context, workspaceId uuid.UUID) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workspace_id, user_id, kind, order_id, message, read_at, created_at
		 FROM notifications WHERE workspace_id = $1 ORDER BY created_at DESC`, workspaceId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.WorkspaceID, &n.UserID, &n.Kind, &n.OrderID, &n.Message, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = $2 WHERE id = $1 AND read_at IS NULL`, id, time.Now())
	return err
}
