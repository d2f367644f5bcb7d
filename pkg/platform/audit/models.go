package audit

import (
	"time"

	id "velum/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryClinical covers events with medical/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: twin creation, simulation lifecycle, aggregate count reveals.
	CategoryClinical EventCategory = "clinical"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// These feed into SIEM systems and alerting pipelines.
	// Examples: rejected callbacks, failed proofs, bad callback credentials.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: tracker sweeps, queue pressure, routine access patterns.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// TwinID is set for twin-scoped events, zero otherwise.
	TwinID id.TwinID
	// CategoryLabel is set for aggregate-count events, empty otherwise.
	CategoryLabel string
	Subject       string
	Action        string
	Reason        string
	// IP, UserAgent and Severity are set for security events, empty otherwise.
	IP        string
	UserAgent string
	Severity  Severity
	// OracleRequestID correlates the event with an issued decryption request.
	OracleRequestID string
	// RequestID is the HTTP correlation id from the request context.
	RequestID string
	// ActorID is the authenticated operator, when one is present.
	ActorID string
}

type AuditEvent string

const (
	// Twin lifecycle
	EventTwinCreated AuditEvent = "twin_created"

	// Simulation lifecycle
	EventSimulationRequested AuditEvent = "simulation_requested"
	EventSimulationCompleted AuditEvent = "simulation_completed"

	// Aggregate count lifecycle
	EventCountRequested AuditEvent = "count_decryption_requested"
	EventCountRevealed  AuditEvent = "count_revealed"

	// Callback rejections
	EventCallbackUnknownRequest  AuditEvent = "callback_unknown_request"
	EventCallbackAlreadyRevealed AuditEvent = "callback_already_revealed"
	EventCallbackInvalidProof    AuditEvent = "callback_invalid_proof"
	EventCallbackUnauthorized    AuditEvent = "callback_unauthorized"

	// Background maintenance
	EventTrackerSwept AuditEvent = "tracker_swept"
)

// eventCategories maps each audit event to its category.
// Clinical: medical/regulatory significance, long retention required.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	EventTwinCreated:         CategoryClinical,
	EventSimulationRequested: CategoryClinical,
	EventSimulationCompleted: CategoryClinical,
	EventCountRequested:      CategoryClinical,
	EventCountRevealed:       CategoryClinical,

	EventCallbackUnknownRequest:  CategorySecurity,
	EventCallbackAlreadyRevealed: CategorySecurity,
	EventCallbackInvalidProof:    CategorySecurity,
	EventCallbackUnauthorized:    CategorySecurity,

	EventTrackerSwept: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// -----------------------------------------------------------------------------
// Right-sized event types for tri-publisher architecture
// -----------------------------------------------------------------------------

// ClinicalEvent captures regulatory-significant actions requiring guaranteed
// persistence. Use with the clinical publisher for fail-closed semantics:
// if the event cannot be persisted, the operation must not proceed.
type ClinicalEvent struct {
	Timestamp       time.Time // When the event occurred (set automatically if zero)
	TwinID          id.TwinID // The twin affected (zero for category-scoped events)
	CategoryLabel   string    // Aggregate category label (for count events)
	Action          string    // The action taken (e.g., "simulation_completed")
	RiskAssessment  string    // Revealed risk text (simulation_completed only)
	OracleRequestID string    // Correlation with the oracle request cycle
	RequestID       string    // HTTP correlation id
	ActorID         string    // Operator who initiated the action
}

// Category returns CategoryClinical (always).
func (e ClinicalEvent) Category() EventCategory { return CategoryClinical }

// ToEvent converts to the generic Event type stores accept.
func (e ClinicalEvent) ToEvent() Event {
	return Event{
		Category:        CategoryClinical,
		Timestamp:       e.Timestamp,
		TwinID:          e.TwinID,
		CategoryLabel:   e.CategoryLabel,
		Subject:         clinicalSubject(e),
		Action:          e.Action,
		Reason:          e.RiskAssessment,
		OracleRequestID: e.OracleRequestID,
		RequestID:       e.RequestID,
		ActorID:         e.ActorID,
	}
}

func clinicalSubject(e ClinicalEvent) string {
	if e.TwinID.IsValid() {
		return "twin:" + e.TwinID.String()
	}
	if e.CategoryLabel != "" {
		return "category:" + e.CategoryLabel
	}
	return e.OracleRequestID
}

// SecurityEvent captures security-relevant actions for SIEM and alerting.
// Events are buffered in memory for admin inspection and forwarded to the
// audit store asynchronously.
type SecurityEvent struct {
	Timestamp       time.Time // When the event occurred (set automatically if zero)
	Subject         string    // Entity involved (request id, twin id, IP)
	Action          string    // Security action (e.g., "callback_invalid_proof")
	Reason          string    // Why this happened (e.g., "proof does not match")
	IP              string    // Client IP address (critical for forensics)
	UserAgent       string    // Normalized client user agent
	OracleRequestID string    // Correlation with the oracle request cycle
	RequestID       string    // HTTP correlation id
	Severity        Severity  // "info", "warning", "critical" for SIEM routing
}

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Category returns CategorySecurity (always).
func (e SecurityEvent) Category() EventCategory { return CategorySecurity }

// ToEvent converts to the generic Event type stores accept.
func (e SecurityEvent) ToEvent() Event {
	return Event{
		Category:        CategorySecurity,
		Timestamp:       e.Timestamp,
		Subject:         e.Subject,
		Action:          e.Action,
		Reason:          e.Reason,
		IP:              e.IP,
		UserAgent:       e.UserAgent,
		Severity:        e.Severity,
		OracleRequestID: e.OracleRequestID,
		RequestID:       e.RequestID,
	}
}

// OpsEvent captures operational events with minimal overhead.
// Events are fire-and-forget with optional sampling.
type OpsEvent struct {
	Timestamp time.Time // When the event occurred (set automatically if zero)
	Subject   string    // Entity involved
	Action    string    // Operational action (e.g., "tracker_swept")
	Reason    string    // Short free-form detail (e.g., swept entry count)
	RequestID string    // HTTP correlation id
}

// Category returns CategoryOperations (always).
func (e OpsEvent) Category() EventCategory { return CategoryOperations }

// ToEvent converts to the generic Event type stores accept.
func (e OpsEvent) ToEvent() Event {
	return Event{
		Category:  CategoryOperations,
		Timestamp: e.Timestamp,
		Subject:   e.Subject,
		Action:    e.Action,
		Reason:    e.Reason,
		RequestID: e.RequestID,
	}
}
