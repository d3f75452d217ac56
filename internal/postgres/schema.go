package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is applied by `storectl migrate`. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
    id                TEXT PRIMARY KEY,
    seq               BIGSERIAL NOT NULL,
    name              TEXT NOT NULL CHECK (name <> ''),
    size              TEXT NOT NULL DEFAULT '',
    color             TEXT NOT NULL DEFAULT '',
    thickness_microns INT CHECK (thickness_microns > 0),
    price_per_1000    NUMERIC(12,2) NOT NULL CHECK (price_per_1000 >= 0),
    quantity          INT,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_products_seq ON products (seq);

-- product_id has no FK: products are hard-deleted and orders keep the dangling id.
CREATE TABLE IF NOT EXISTS orders (
    id              TEXT PRIMARY KEY,
    seq             BIGSERIAL NOT NULL,
    product_id      TEXT NOT NULL,
    buyer_id        TEXT NOT NULL,
    quantity        INT NOT NULL CHECK (quantity > 0),
    status          TEXT NOT NULL DEFAULT 'pending'
                    CHECK (status IN ('pending', 'paid', 'fulfilled', 'cancelled')),
    notified_admins BOOLEAN NOT NULL DEFAULT false,
    customer_email  TEXT NOT NULL DEFAULT '',
    customer_phone  TEXT NOT NULL DEFAULT '',
    total           NUMERIC(14,2) NOT NULL DEFAULT 0,
    idempotency_key TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (buyer_id, idempotency_key)
);
CREATE INDEX IF NOT EXISTS idx_orders_seq ON orders (seq);
CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders (buyer_id, seq);
CREATE INDEX IF NOT EXISTS idx_orders_unnotified ON orders (seq) WHERE notified_admins = false;

CREATE TABLE IF NOT EXISTS profiles (
    user_id       TEXT PRIMARY KEY,
    email         TEXT NOT NULL DEFAULT '',
    phone         TEXT NOT NULL DEFAULT '',
    display_name  TEXT NOT NULL DEFAULT '',
    contact_email TEXT NOT NULL DEFAULT '',
    contact_phone TEXT NOT NULL DEFAULT '',
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- Written only by storectl; the API never grants staff.
CREATE TABLE IF NOT EXISTS staff_members (
    user_id    TEXT PRIMARY KEY,
    granted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
