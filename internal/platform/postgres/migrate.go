package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent so startup can
// run them unconditionally. The nullifier primary key and the watchlist/
// freeze unique indexes are load-bearing: uniqueness is enforced here,
// not in application code.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS financial_institutions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		endpoint TEXT NOT NULL UNIQUE,
		public_key TEXT NOT NULL,
		api_key_hash TEXT NOT NULL,
		allocated_funds DOUBLE PRECISION NOT NULL DEFAULT 0,
		available_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		fi_id TEXT NOT NULL,
		from_wallet TEXT NOT NULL DEFAULT '',
		to_wallet TEXT NOT NULL DEFAULT '',
		amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
		entry_type TEXT NOT NULL,
		device_id TEXT NOT NULL DEFAULT '',
		monotonic_counter BIGSERIAL,
		nullifier TEXT NOT NULL DEFAULT '',
		ts TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_fi ON ledger_entries (fi_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_type ON ledger_entries (entry_type)`,
	`CREATE TABLE IF NOT EXISTS fund_allocations (
		id TEXT PRIMARY KEY,
		fi_id TEXT NOT NULL REFERENCES financial_institutions (id),
		transaction_id TEXT NOT NULL,
		ledger_entry_id TEXT NOT NULL REFERENCES ledger_entries (id),
		amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cross_fi_routes (
		transaction_id TEXT PRIMARY KEY,
		source_fi TEXT NOT NULL,
		target_fi TEXT NOT NULL,
		from_wallet TEXT NOT NULL,
		to_wallet TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
		proof TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cross_fi_routes_target ON cross_fi_routes (target_fi)`,
	`CREATE TABLE IF NOT EXISTS nullifiers (
		value TEXT PRIMARY KEY,
		fi_id TEXT NOT NULL,
		transaction_id TEXT NOT NULL,
		serial_number TEXT NOT NULL DEFAULT '',
		amount DOUBLE PRECISION NOT NULL,
		registered_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS compliance_rules (
		id TEXT PRIMARY KEY,
		rule_type TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL DEFAULT '',
		limit_value DOUBLE PRECISION NOT NULL DEFAULT 0,
		daily_limit DOUBLE PRECISION NOT NULL DEFAULT 0,
		monthly_limit DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_offline_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_offline_count INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		priority INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS compliance_status (
		fi_id TEXT PRIMARY KEY,
		daily_volume DOUBLE PRECISION NOT NULL DEFAULT 0,
		monthly_volume DOUBLE PRECISION NOT NULL DEFAULT 0,
		offline_tx_count INTEGER NOT NULL DEFAULT 0,
		flagged_count INTEGER NOT NULL DEFAULT 0,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS watchlist_entries (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		fi_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		risk_level TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (entity_type, entity_id, fi_id)
	)`,
	`CREATE TABLE IF NOT EXISTS frozen_accounts (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		fi_id TEXT NOT NULL DEFAULT '',
		is_frozen BOOLEAN NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		frozen_by TEXT NOT NULL DEFAULT '',
		frozen_at TIMESTAMPTZ NOT NULL,
		unfrozen_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_frozen_active
		ON frozen_accounts (entity_type, entity_id, fi_id) WHERE is_frozen`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		alert_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		fi_id TEXT NOT NULL DEFAULT '',
		wallet_id TEXT NOT NULL DEFAULT '',
		device_id TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		message TEXT NOT NULL,
		details JSONB,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_unresolved ON alerts (is_resolved) WHERE NOT is_resolved`,
	`CREATE TABLE IF NOT EXISTS alert_rules (
		id TEXT PRIMARY KEY,
		condition_type TEXT NOT NULL,
		threshold_value DOUBLE PRECISION NOT NULL,
		threshold_count INTEGER NOT NULL DEFAULT 0,
		time_window_minutes INTEGER NOT NULL DEFAULT 0,
		severity TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}
