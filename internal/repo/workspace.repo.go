package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// WorkspaceRepo covers the tiny slice of workspace persistence the
// order core needs; workspace CRUD proper lives elsewhere.
type WorkspaceRepo interface {
	Create(ctx context.Context, id uuid.UUID, name string) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type workspaceRepo struct {
	db *sql.DB
}

func NewWorkspaceRepo(db *sql.DB) WorkspaceRepo {
	return &workspaceRepo{db: db}
}

func (r *workspaceRepo) Create(ctx context.Context, id uuid.UUID, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, created_at) VALUES ($1, $2, $3)`, id, name, time.Now())
	return err
}

func (r *workspaceRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM workspaces WHERE id = $1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
