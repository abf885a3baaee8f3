package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"workspace-backoffice/internal/domain"
)

type CheckoutSessionRepo interface {
	Create(ctx context.Context, session *domain.CheckoutSession) error
	FindByGatewaySessionId(ctx context.Context, gatewaySessionId string) (*domain.CheckoutSession, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CheckoutSessionStatus, orderId *uuid.UUID) error
	ClaimConfirming(ctx context.Context, id uuid.UUID) (bool, error)
	FindStaleInit(ctx context.Context, olderThan time.Duration, limit int) ([]domain.CheckoutSession, error)
}

type checkoutSessionRepo struct {
	db *sql.DB
}

func NewCheckoutSessionRepo(db *sql.DB) CheckoutSessionRepo {
	return &checkoutSessionRepo{db: db}
}

func (r *checkoutSessionRepo) Create(ctx context.Context, session *domain.CheckoutSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO checkout_sessions (id, workspace_id, status, gateway_session_id, intent, amount, order_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID, session.WorkspaceID, session.Status, session.GatewaySessionID,
		session.Intent, session.Amount, nullableId(session.OrderID), session.CreatedAt, session.UpdatedAt,
	)
	return err
}

func (r *checkoutSessionRepo) FindByGatewaySessionId(ctx context.Context, gatewaySessionId string) (*domain.CheckoutSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, status, gateway_session_id, intent, amount, order_id, created_at, updated_at
		 FROM checkout_sessions WHERE gateway_session_id = $1`, gatewaySessionId)
	return scanSession(row)
}

func (r *checkoutSessionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CheckoutSessionStatus, orderId *uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE checkout_sessions
		 SET status = $2,
		     order_id = COALESCE($3, order_id),
		     updated_at = now()
		 WHERE id = $1`,
		id, status, nullableId(orderId),
	)
	return err
}

// ClaimConfirming atomically moves a confirmable session to
// CONFIRMING. The WHERE clause admits exactly one of any number of
// racing confirmation attempts; EXPIRED stays claimable because a
// payment can land after the sweep gave up on the session.
func (r *checkoutSessionRepo) ClaimConfirming(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE checkout_sessions
		 SET status = $2, updated_at = now()
		 WHERE id = $1 AND status IN ($3, $4)`,
		id, domain.CheckoutConfirming, domain.CheckoutInit, domain.CheckoutExpired,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *checkoutSessionRepo) FindStaleInit(ctx context.Context, olderThan time.Duration, limit int) ([]domain.CheckoutSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workspace_id, status, gateway_session_id, intent, amount, order_id, created_at, updated_at
		 FROM checkout_sessions
		 WHERE status = $1 AND created_at < $2
		 LIMIT $3`,
		domain.CheckoutInit, time.Now().Add(-olderThan), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.CheckoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func scanSession(row interface{ Scan(...any) error }) (*domain.CheckoutSession, error) {
	var s domain.CheckoutSession
	var orderId uuid.NullUUID
	err := row.Scan(&s.ID, &s.WorkspaceID, &s.Status, &s.GatewaySessionID, &s.Intent, &s.Amount, &orderId, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if orderId.Valid {
		s.OrderID = &orderId.UUID
	}
	return &s, nil
}

func nullableId(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
