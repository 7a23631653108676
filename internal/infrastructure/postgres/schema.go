package postgres

import (
	"context"
	"fmt"
)

// schema crea las tablas del motor de sincronización si no existen. Las migraciones
// versionadas quedan fuera de este servicio.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		sku        TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		eans       TEXT[] NOT NULL DEFAULT '{}',
		image      BYTEA,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS stock (
		sku        TEXT NOT NULL REFERENCES products(sku),
		warehouse  TEXT NOT NULL,
		quantity   INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (sku, warehouse)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id         TEXT PRIMARY KEY,
		sku        TEXT NOT NULL,
		warehouse  TEXT NOT NULL,
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(14,2) NOT NULL DEFAULT 0,
		order_id   TEXT NOT NULL DEFAULT '',
		sold_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_sku_sold_at ON sales (sku, sold_at)`,
	`CREATE TABLE IF NOT EXISTS sync_locks (
		sku         TEXT PRIMARY KEY,
		owner       TEXT NOT NULL,
		status      TEXT NOT NULL,
		acquired_at TIMESTAMPTZ NOT NULL,
		last_error  TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sync_watermarks (
		account_id     TEXT PRIMARY KEY,
		last_sync_time TIMESTAMPTZ NOT NULL,
		last_event_id  TEXT NOT NULL DEFAULT '',
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS marketplace_accounts (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		access_token TEXT NOT NULL,
		active       BOOLEAN NOT NULL DEFAULT true,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		external_id    TEXT NOT NULL,
		account_id     TEXT NOT NULL,
		status         TEXT NOT NULL,
		buyer_login    TEXT NOT NULL DEFAULT '',
		lines          JSONB NOT NULL DEFAULT '[]',
		updated_at     TIMESTAMPTZ NOT NULL,
		stock_deducted BOOLEAN NOT NULL DEFAULT false,
		deducted_at    TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL,
		synced_at      TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (account_id, external_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_account_updated ON orders (account_id, updated_at)`,
}

// EnsureSchema aplica el DDL idempotente.
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
