package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema for the two tables this service owns. The vehicles, providers and
// charging_stations tables are owned by the catalog/auth services and only
// read here. The UNIQUE constraint on invoices.session_id backs the 1:1
// session↔invoice invariant at the storage layer.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS charging_sessions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		vehicle_id BIGINT NOT NULL,
		station_id BIGINT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (end_time > start_time)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_charging_sessions_user_start
		ON charging_sessions (user_id, start_time DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_charging_sessions_station
		ON charging_sessions (station_id)`,

	`CREATE TABLE IF NOT EXISTS invoices (
		id BIGSERIAL PRIMARY KEY,
		session_id BIGINT NOT NULL UNIQUE REFERENCES charging_sessions(id),
		amount NUMERIC(12,2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// RunMigrations applies the owned-table schema. Every statement is
// idempotent, so repeated startups are safe.
func RunMigrations(ctx context.Context, pool *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := pool.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: migration %d: %w", i, err)
		}
	}
	return nil
}
