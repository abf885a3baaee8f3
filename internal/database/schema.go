package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the full DDL for the order core. Stock carries a CHECK so
// the non-negative invariant holds even against a buggy caller.
const Schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id           UUID PRIMARY KEY,
	workspace_id UUID NOT NULL REFERENCES workspaces(id),
	email        TEXT NOT NULL,
	name         TEXT NOT NULL,
	role         TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS addresses (
	id          UUID PRIMARY KEY,
	user_id     UUID NOT NULL REFERENCES users(id),
	line1       TEXT NOT NULL,
	line2       TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL,
	country     TEXT NOT NULL,
	postal_code TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS product_variants (
	id           UUID PRIMARY KEY,
	workspace_id UUID NOT NULL REFERENCES workspaces(id),
	sku          TEXT NOT NULL UNIQUE,
	price        NUMERIC(12,2) NOT NULL,
	stock        INTEGER NOT NULL CHECK (stock >= 0),
	is_available BOOLEAN NOT NULL DEFAULT true,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
	id                  UUID PRIMARY KEY,
	workspace_id        UUID NOT NULL REFERENCES workspaces(id),
	user_id             UUID NOT NULL REFERENCES users(id),
	status              TEXT NOT NULL,
	payment_method      TEXT NOT NULL,
	total_amount        NUMERIC(12,2) NOT NULL,
	notes               TEXT NOT NULL DEFAULT '',
	shipping_address_id UUID NOT NULL REFERENCES addresses(id),
	billing_address_id  UUID NOT NULL REFERENCES addresses(id),
	stock_committed     BOOLEAN NOT NULL DEFAULT false,
	placed_at           TIMESTAMPTZ NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_items (
	id         UUID PRIMARY KEY,
	order_id   UUID NOT NULL REFERENCES orders(id),
	variant_id UUID NOT NULL REFERENCES product_variants(id),
	quantity   INTEGER NOT NULL CHECK (quantity > 0),
	price      NUMERIC(12,2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_status_history (
	id         UUID PRIMARY KEY,
	order_id   UUID NOT NULL REFERENCES orders(id),
	status     TEXT NOT NULL,
	note       TEXT NOT NULL DEFAULT '',
	changed_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notifications (
	id           UUID PRIMARY KEY,
	workspace_id UUID NOT NULL REFERENCES workspaces(id),
	user_id      UUID NOT NULL REFERENCES users(id),
	kind         TEXT NOT NULL,
	order_id     UUID NOT NULL,
	message      TEXT NOT NULL,
	read_at      TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS checkout_sessions (
	id                 UUID PRIMARY KEY,
	workspace_id       UUID NOT NULL REFERENCES workspaces(id),
	status             TEXT NOT NULL,
	gateway_session_id TEXT NOT NULL UNIQUE,
	intent             JSONB NOT NULL,
	amount             NUMERIC(12,2) NOT NULL,
	order_id           UUID,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema applies the DDL. It is idempotent and intended for
// local development and tests; production schemas are managed outside
// the process.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("database: ensure schema: %w", err)
	}
	return nil
}
