package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema DDL, applied with IF NOT EXISTS so startup stays idempotent.
// Production deployments manage migrations out of band; dev and test
// environments call EnsureSchema on boot.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_unpublished_idx
		ON outbox (created_at) WHERE published_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id UUID PRIMARY KEY,
		category TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		twin_id BIGINT,
		category_label TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		ip TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL DEFAULT '',
		oracle_request_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		actor_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS audit_events_twin_idx
		ON audit_events (twin_id) WHERE twin_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS audit_events_timestamp_idx
		ON audit_events (timestamp DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_clinical (
		id UUID PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
		twin_id BIGINT,
		category_label TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		oracle_request_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		actor_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS audit_security (
		id UUID PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		ip TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		oracle_request_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS audit_ops (
		id UUID NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (id, timestamp)
	)`,
}

// EnsureSchema creates the audit tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, ddl := range schemaStatements {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
	}
	return nil
}
