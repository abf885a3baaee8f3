package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"workspace-backoffice/internal/domain"
)

type UserRepo interface {
	Create(ctx context.Context, user *domain.User) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindStaffByWorkspace(ctx context.Context, workspaceId uuid.UUID) ([]domain.User, error)
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, workspace_id, email, name, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.WorkspaceID, user.Email, user.Name, user.Role, user.CreatedAt,
	)
	return err
}

func (r *userRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, email, name, role, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.WorkspaceID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) FindStaffByWorkspace(ctx context.Context, workspaceId uuid.UUID) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workspace_id, email, name, role, created_at
		 FROM users WHERE workspace_id = $1 AND role IN ('OWNER', 'ADMIN', 'STAFF')`, workspaceId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.WorkspaceID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
