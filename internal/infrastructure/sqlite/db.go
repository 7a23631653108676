package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // driver SQLite en Go puro, sin CGO
)

// Querier es la superficie común de *sql.DB y *sql.Tx que usan los repositorios.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Open abre (o crea) la base SQLite en path y aplica el esquema.
// Una sola conexión abierta: SQLite admite un único escritor y así las transacciones
// quedan serializadas igual que con SELECT FOR UPDATE en PostgreSQL.
// Dentro de una transacción solo deben usarse los repositorios atados a la tx.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("abrir sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("crear tablas: %w", err)
	}
	return db, nil
}

func dsn(path string) string {
	if path == "" || path == ":memory:" {
		return "file::memory:?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

func createTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			sku        TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			eans       TEXT NOT NULL DEFAULT '[]',
			image      BLOB,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stock (
			sku        TEXT NOT NULL REFERENCES products(sku),
			warehouse  TEXT NOT NULL,
			quantity   INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (sku, warehouse)
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id         TEXT PRIMARY KEY,
			sku        TEXT NOT NULL,
			warehouse  TEXT NOT NULL,
			quantity   INTEGER NOT NULL CHECK (quantity > 0),
			unit_price TEXT NOT NULL DEFAULT '0',
			order_id   TEXT NOT NULL DEFAULT '',
			sold_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_sku_sold_at ON sales (sku, sold_at)`,
		`CREATE TABLE IF NOT EXISTS sync_locks (
			sku         TEXT PRIMARY KEY,
			owner       TEXT NOT NULL,
			status      TEXT NOT NULL,
			acquired_at INTEGER NOT NULL,
			last_error  TEXT NOT NULL DEFAULT '',
			updated_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sync_watermarks (
			account_id     TEXT PRIMARY KEY,
			last_sync_time INTEGER NOT NULL,
			last_event_id  TEXT NOT NULL DEFAULT '',
			updated_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS marketplace_accounts (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			access_token TEXT NOT NULL,
			active       INTEGER NOT NULL DEFAULT 1,
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			external_id    TEXT NOT NULL,
			account_id     TEXT NOT NULL,
			status         TEXT NOT NULL,
			buyer_login    TEXT NOT NULL DEFAULT '',
			lines          TEXT NOT NULL DEFAULT '[]',
			updated_at     INTEGER NOT NULL,
			stock_deducted INTEGER NOT NULL DEFAULT 0,
			deducted_at    INTEGER,
			created_at     INTEGER NOT NULL,
			synced_at      INTEGER NOT NULL,
			PRIMARY KEY (account_id, external_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_account_updated ON orders (account_id, updated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
