package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"velum/internal/platform/kafka/consumer"
	id "velum/pkg/domain"
	audit "velum/pkg/platform/audit"

	"github.com/google/uuid"
)

// ClinicalHandler processes clinical audit events from Kafka.
// Events are written to the audit_clinical table for long-term retention.
type ClinicalHandler struct {
	store  ClinicalStore
	logger *slog.Logger
}

// ClinicalStore defines the storage interface for clinical events.
type ClinicalStore interface {
	AppendClinical(ctx context.Context, eventID uuid.UUID, record audit.ClinicalRecord) error
}

// NewClinicalHandler creates a clinical event handler.
func NewClinicalHandler(store ClinicalStore, logger *slog.Logger) *ClinicalHandler {
	return &ClinicalHandler{
		store:  store,
		logger: logger,
	}
}

// clinicalPayload matches the JSON structure for clinical events.
type clinicalPayload struct {
	Timestamp       string `json:"Timestamp"`
	TwinID          string `json:"TwinID"`
	CategoryLabel   string `json:"CategoryLabel"`
	Subject         string `json:"Subject"`
	Action          string `json:"Action"`
	Reason          string `json:"Reason"`
	OracleRequestID string `json:"OracleRequestID"`
	RequestID       string `json:"RequestID"`
	ActorID         string `json:"ActorID"`
}

// Handle processes a clinical audit event.
func (h *ClinicalHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.Error("CRITICAL: failed to parse clinical event ID",
			"key", string(msg.Key),
			"error", err,
		)
		// Return nil to commit - malformed messages should not block
		return nil
	}

	var payload clinicalPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.Error("CRITICAL: failed to unmarshal clinical payload",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}

	// Strict validation for clinical events
	if payload.TwinID == "" && payload.CategoryLabel == "" {
		h.logger.Error("CRITICAL: clinical event missing twin id and category label",
			"event_id", eventID,
			"action", payload.Action,
		)
		return nil
	}

	record := audit.ClinicalRecord{
		Timestamp:       eventTimestamp(payload.Timestamp),
		CategoryLabel:   payload.CategoryLabel,
		Subject:         payload.Subject,
		Action:          payload.Action,
		Reason:          payload.Reason,
		OracleRequestID: payload.OracleRequestID,
		RequestID:       payload.RequestID,
		ActorID:         payload.ActorID,
	}

	if payload.TwinID != "" {
		if twinID, err := id.ParseTwinID(payload.TwinID); err == nil {
			record.TwinID = twinID
		}
	}

	// Store clinical event
	if err := h.store.AppendClinical(ctx, eventID, record); err != nil {
		h.logger.Error("failed to store clinical event",
			"event_id", eventID,
			"action", record.Action,
			"error", err,
		)
		return fmt.Errorf("store clinical event: %w", err)
	}

	h.logger.Debug("stored clinical event",
		"event_id", eventID,
		"action", record.Action,
		"twin_id", record.TwinID,
	)

	return nil
}
