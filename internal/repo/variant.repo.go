package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"workspace-backoffice/internal/domain"
)

// VariantRepo is the stock ledger. Every stock mutation is a relative
// adjustment executed server-side inside the caller's transaction;
// there is no read-then-write path.
type VariantRepo interface {
	Create(ctx context.Context, v *domain.ProductVariant) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error)
	FindByIds(ctx context.Context, ids []uuid.UUID) ([]domain.ProductVariant, error)
	AdjustStock(ctx context.Context, tx *sql.Tx, variantId uuid.UUID, delta int) error
	DecrementMany(ctx context.Context, tx *sql.Tx, items []domain.StockAdjustment) error
	IncrementMany(ctx context.Context, tx *sql.Tx, items []domain.StockAdjustment) error
}

type variantRepo struct {
	db *sql.DB
}

func NewVariantRepo(db *sql.DB) VariantRepo {
	return &variantRepo{db: db}
}

func (r *variantRepo) Create(ctx context.Context, v *domain.ProductVariant) error {
	query := `INSERT INTO product_variants (id, workspace_id, sku, price, stock, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.WorkspaceID, v.SKU, v.Price, v.Stock, v.IsAvailable, v.CreatedAt, v.UpdatedAt,
	)
	return err
}

func (r *variantRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, sku, price, stock, is_available, created_at, updated_at
		 FROM product_variants WHERE id = $1`, id)
	var v domain.ProductVariant
	err := row.Scan(&v.ID, &v.WorkspaceID, &v.SKU, &v.Price, &v.Stock, &v.IsAvailable, &v.CreatedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepo) FindByIds(ctx context.Context, ids []uuid.UUID) ([]domain.ProductVariant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workspace_id, sku, price, stock, is_available, created_at, updated_at
		 FROM product_variants WHERE id = ANY($1::uuid[])`, uuidArray(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []domain.ProductVariant
	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(&v.ID, &v.WorkspaceID, &v.SKU, &v.Price, &v.Stock, &v.IsAvailable, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// AdjustStock applies a relative change to the stock counter. The WHERE
// clause refuses any adjustment that would drive stock negative, so the
// check and the write are one atomic statement under the row lock.
func (r *variantRepo) AdjustStock(ctx context.Context, tx *sql.Tx, variantId uuid.UUID, delta int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE product_variants
		 SET stock = stock + $2, updated_at = now()
		 WHERE id = $1 AND stock + $2 >= 0`,
		variantId, delta,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var stock int
		err := tx.QueryRowContext(ctx, `SELECT stock FROM product_variants WHERE id = $1`, variantId).Scan(&stock)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", domain.ErrVariantNotFound, variantId)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: variant %s has %d, requested %d", domain.ErrInsufficientStock, variantId, stock, -delta)
	}
	return nil
}

// DecrementMany applies one decrement per item. The caller runs it
// inside a single transaction, so a failure on any item rolls back the
// whole batch.
func (r *variantRepo) DecrementMany(ctx context.Context, tx *sql.Tx, items []domain.StockAdjustment) error {
	for _, item := range items {
		if err := r.AdjustStock(ctx, tx, item.VariantID, -item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *variantRepo) IncrementMany(ctx context.Context, tx *sql.Tx, items []domain.StockAdjustment) error {
	for _, item := range items {
		if err := r.AdjustStock(ctx, tx, item.VariantID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// uuidArray renders ids as a postgres array literal so the stdlib
// driver can bind it as text and cast server-side.
func uuidArray(ids []uuid.UUID) string {
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, id.String())
	}
	return "{" + strings.Join(strs, ",") + "}"
}
