package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"workspace-backoffice/internal/domain"
)

type AddressRepo interface {
	Create(ctx context.Context, address *domain.Address) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.Address, error)
}

type addressRepo struct {
	db *sql.DB
}

func NewAddressRepo(db *sql.DB) AddressRepo {
	return &addressRepo{db: db}
}

func (r *addressRepo) Create(ctx context.Context, address *domain.Address) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO addresses (id, user_id, line1, line2, city, country, postal_code, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		address.ID, address.UserID, address.Line1, address.Line2,
		address.City, address.Country, address.PostalCode, address.CreatedAt,
	)
	return err
}

func (r *addressRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	var a domain.Address
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, line1, line2, city, country, postal_code, created_at
		 FROM addresses WHERE id = $1`, id).
		Scan(&a.ID, &a.UserID, &a.Line1, &a.Line2, &a.City, &a.Country, &a.PostalCode, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
