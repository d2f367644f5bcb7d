package audit

import (
	"time"

	id "velum/pkg/domain"
)

// Record types for the partitioned audit tables. The Kafka consumer
// materializes events into these shapes; the postgres store persists them.
// They live here so producer and consumer sides agree on one definition.

// ClinicalRecord is a clinical audit event bound for the audit_clinical table.
type ClinicalRecord struct {
	Timestamp       time.Time
	TwinID          id.TwinID
	CategoryLabel   string
	Subject         string
	Action          string
	Reason          string
	OracleRequestID string
	RequestID       string
	ActorID         string
}

// SecurityRecord is a security audit event bound for the audit_security table.
type SecurityRecord struct {
	Timestamp       time.Time
	Subject         string
	Action          string
	Reason          string
	IP              string
	UserAgent       string
	OracleRequestID string
	RequestID       string
	Severity        string
}

// OpsRecord is an operational audit event bound for the audit_ops table.
type OpsRecord struct {
	Timestamp time.Time
	Subject   string
	Action    string
	Reason    string
	RequestID string
}
