package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"velum/internal/platform/kafka/consumer"
	audit "velum/pkg/platform/audit"

	"github.com/google/uuid"
)

// OpsHandler processes operational audit events from Kafka.
// Events are written to the audit_ops table with short retention.
type OpsHandler struct {
	store  OpsStore
	logger *slog.Logger
}

// OpsStore defines the storage interface for ops events.
type OpsStore interface {
	AppendOps(ctx context.Context, eventID uuid.UUID, record audit.OpsRecord) error
}

// NewOpsHandler creates an ops event handler.
func NewOpsHandler(store OpsStore, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{
		store:  store,
		logger: logger,
	}
}

// opsPayload matches the JSON structure for ops events.
type opsPayload struct {
	Timestamp string `json:"Timestamp"`
	Subject   string `json:"Subject"`
	Action    string `json:"Action"`
	Reason    string `json:"Reason"`
	RequestID string `json:"RequestID"`
}

// Handle processes an operational audit event.
func (h *OpsHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		// Ops rows are best-effort; a bad key is not worth a redelivery.
		h.logger.Debug("failed to parse ops event ID",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var payload opsPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.Debug("failed to unmarshal ops payload",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}

	record := audit.OpsRecord{
		Timestamp: eventTimestamp(payload.Timestamp),
		Subject:   payload.Subject,
		Action:    payload.Action,
		Reason:    payload.Reason,
		RequestID: payload.RequestID,
	}

	// A failed append is logged and the offset still advances. Ops rows
	// have short retention and are not worth blocking the group for.
	if err := h.store.AppendOps(ctx, eventID, record); err != nil {
		h.logger.Debug("failed to store ops event",
			"event_id", eventID,
			"action", record.Action,
			"error", err,
		)
		return nil
	}

	return nil
}
