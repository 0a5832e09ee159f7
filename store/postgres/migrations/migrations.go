package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS treasury (
		id SMALLINT PRIMARY KEY CHECK (id = 1),
		balance NUMERIC(20, 0) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		window_start TIMESTAMPTZ,
		window_duration BIGINT
	)`,
	`INSERT INTO treasury (id, balance) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS treasury_accounts (
		account TEXT PRIMARY KEY,
		balance NUMERIC(20, 0) NOT NULL CHECK (balance >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS treasury_markers (
		key TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		reference TEXT NOT NULL,
		claimed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS treasury_entries (
		seq BIGSERIAL PRIMARY KEY,
		id UUID NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		account TEXT NOT NULL,
		counterparty TEXT NOT NULL,
		amount NUMERIC(20, 0) NOT NULL,
		reference TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// Apply creates the treasury schema. Every statement is idempotent.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
