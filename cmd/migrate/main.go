package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"salepoint/backend/internal/config"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		selling_price_cents BIGINT NOT NULL CHECK (selling_price_cents > 0),
		cost_price_cents BIGINT NOT NULL CHECK (cost_price_cents >= 0),
		quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (cost_price_cents < selling_price_cents)
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		address TEXT,
		total_spending_cents BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		total_cents BIGINT NOT NULL CHECK (total_cents >= 0),
		payment_mode TEXT NOT NULL,
		status TEXT NOT NULL,
		customer_id TEXT REFERENCES customers(id),
		employee_id TEXT,
		user_id TEXT,
		status_changed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transaction_items (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id),
		qty INT NOT NULL CHECK (qty > 0),
		price_at_sale_cents BIGINT NOT NULL CHECK (price_at_sale_cents > 0),
		subtotal_cents BIGINT NOT NULL CHECK (subtotal_cents > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		actor_kind TEXT,
		actor_id TEXT,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status_created_at ON transactions (status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_customer_id ON transactions (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transaction_items_transaction_id ON transaction_items (transaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at)`,
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv: %v", err)
	}
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL must be set to run migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("statement %d failed: %v", i+1, err)
		}
	}

	log.Printf("migrations applied (%d statements)", len(statements))
}
