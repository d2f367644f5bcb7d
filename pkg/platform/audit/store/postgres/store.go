package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	id "velum/pkg/domain"
	audit "velum/pkg/platform/audit"
	txcontext "velum/pkg/platform/tx"

	"github.com/google/uuid"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the
// outbox relay. Kafka is the source of truth for audit events.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// outboxPayload is the JSON structure published to Kafka.
// Field names match audit.Event for proper deserialization by the consumer.
type outboxPayload struct {
	ID              string `json:"ID"`
	Category        string `json:"Category"`
	Timestamp       string `json:"Timestamp"`
	TwinID          string `json:"TwinID,omitempty"`
	CategoryLabel   string `json:"CategoryLabel,omitempty"`
	Subject         string `json:"Subject"`
	Action          string `json:"Action"`
	Reason          string `json:"Reason,omitempty"`
	IP              string `json:"IP,omitempty"`
	UserAgent       string `json:"UserAgent,omitempty"`
	Severity        string `json:"Severity,omitempty"`
	OracleRequestID string `json:"OracleRequestID,omitempty"`
	RequestID       string `json:"RequestID,omitempty"`
	ActorID         string `json:"ActorID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Always derive category from action - eventCategories map is the source of truth
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:              eventID.String(),
		Category:        string(category),
		Timestamp:       event.Timestamp.Format(time.RFC3339Nano),
		CategoryLabel:   event.CategoryLabel,
		Subject:         event.Subject,
		Action:          event.Action,
		Reason:          event.Reason,
		IP:              event.IP,
		UserAgent:       event.UserAgent,
		Severity:        string(event.Severity),
		OracleRequestID: event.OracleRequestID,
		RequestID:       event.RequestID,
		ActorID:         event.ActorID,
	}
	if event.TwinID.IsValid() {
		payload.TwinID = event.TwinID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	// Determine aggregate type and ID
	aggregateType := "audit"
	aggregateID := eventID.String()
	if event.TwinID.IsValid() {
		aggregateType = "twin"
		aggregateID = event.TwinID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// AppendWithID inserts an audit event into the audit_events table with a
// specific ID. Used by the Kafka consumer to materialize events for querying.
// Idempotent - duplicate inserts are ignored via ON CONFLICT DO NOTHING.
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, twin_id, category_label, subject, action,
			reason, ip, user_agent, severity, oracle_request_id, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`

	var twinID *int64
	if event.TwinID.IsValid() {
		tid := int64(event.TwinID)
		twinID = &tid
	}

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(event.Category),
		event.Timestamp,
		twinID,
		event.CategoryLabel,
		event.Subject,
		event.Action,
		event.Reason,
		event.IP,
		event.UserAgent,
		string(event.Severity),
		event.OracleRequestID,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByTwin returns events for a specific twin, newest first.
func (s *Store) ListByTwin(ctx context.Context, twinID id.TwinID) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, twin_id, category_label, subject, action,
			   reason, ip, user_agent, severity, oracle_request_id, request_id, actor_id
		FROM audit_events
		WHERE twin_id = $1
		ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query, int64(twinID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListAll returns all audit events (admin only).
func (s *Store) ListAll(ctx context.Context) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, twin_id, category_label, subject, action,
			   reason, ip, user_agent, severity, oracle_request_id, request_id, actor_id
		FROM audit_events
		ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, twin_id, category_label, subject, action,
			   reason, ip, user_agent, severity, oracle_request_id, request_id, actor_id
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// scanEvents scans multiple rows into audit.Event slice.
func (s *Store) scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category       string
			severity       string
			event          audit.Event
			twinIDNullable *int64
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&twinIDNullable,
			&event.CategoryLabel,
			&event.Subject,
			&event.Action,
			&event.Reason,
			&event.IP,
			&event.UserAgent,
			&severity,
			&event.OracleRequestID,
			&event.RequestID,
			&event.ActorID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		event.Severity = audit.Severity(severity)
		if twinIDNullable != nil {
			event.TwinID = id.TwinID(*twinIDNullable)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

// -----------------------------------------------------------------------------
// Outbox relay queries
// -----------------------------------------------------------------------------

// OutboxEntry is a pending outbox row awaiting publication to Kafka.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// FetchUnpublished returns up to limit unpublished outbox entries in insertion
// order. Rows are locked with SKIP LOCKED so concurrent relays never ship the
// same entry twice.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.AggregateType,
			&entry.AggregateID,
			&entry.EventType,
			&entry.Payload,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps outbox entries as shipped. Entries stay in the table
// for forensics; retention is handled by a scheduled cleanup.
func (s *Store) MarkPublished(ctx context.Context, entryIDs []uuid.UUID) error {
	if len(entryIDs) == 0 {
		return nil
	}
	query := `UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`
	ids := make([]string, len(entryIDs))
	for i, entryID := range entryIDs {
		ids[i] = entryID.String()
	}
	if _, err := s.db.ExecContext(ctx, query, time.Now(), ids); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Category-specific storage methods for partitioned tables
// -----------------------------------------------------------------------------

// AppendClinical inserts a clinical event into the audit_clinical table.
// Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) AppendClinical(ctx context.Context, eventID uuid.UUID, record audit.ClinicalRecord) error {
	query := `
		INSERT INTO audit_clinical (
			id, timestamp, twin_id, category_label, subject, action,
			reason, oracle_request_id, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	var twinID *int64
	if record.TwinID.IsValid() {
		tid := int64(record.TwinID)
		twinID = &tid
	}

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		record.Timestamp,
		twinID,
		record.CategoryLabel,
		record.Subject,
		record.Action,
		record.Reason,
		record.OracleRequestID,
		record.RequestID,
		record.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert clinical event: %w", err)
	}
	return nil
}

// AppendSecurity inserts a security event into the audit_security table.
// Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) AppendSecurity(ctx context.Context, eventID uuid.UUID, record audit.SecurityRecord) error {
	query := `
		INSERT INTO audit_security (
			id, timestamp, subject, action, reason,
			ip, user_agent, oracle_request_id, request_id, severity
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		record.Timestamp,
		record.Subject,
		record.Action,
		record.Reason,
		record.IP,
		record.UserAgent,
		record.OracleRequestID,
		record.RequestID,
		record.Severity,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

// AppendOps inserts an ops event into the audit_ops table.
// Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) AppendOps(ctx context.Context, eventID uuid.UUID, record audit.OpsRecord) error {
	query := `
		INSERT INTO audit_ops (
			id, timestamp, subject, action, reason, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id, timestamp) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		record.Timestamp,
		record.Subject,
		record.Action,
		record.Reason,
		record.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert ops event: %w", err)
	}
	return nil
}
