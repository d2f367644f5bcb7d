package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"velum/internal/platform/kafka/consumer"
	id "velum/pkg/domain"
	audit "velum/pkg/platform/audit"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingHandler struct {
	calls int
}

func (h *recordingHandler) Handle(context.Context, *consumer.Message) error {
	h.calls++
	return nil
}

func TestRouter_DispatchesByTopic(t *testing.T) {
	clinical := &recordingHandler{}
	security := &recordingHandler{}

	router := NewRouter(discardLogger(), nil)
	router.Register("velum.audit.clinical", clinical)
	router.Register("velum.audit.security", security)

	err := router.Handle(context.Background(), &consumer.Message{Topic: "velum.audit.clinical"})
	require.NoError(t, err)
	assert.Equal(t, 1, clinical.calls)
	assert.Zero(t, security.calls)
}

func TestRouter_FallbackHandler(t *testing.T) {
	fallback := &recordingHandler{}
	router := NewRouter(discardLogger(), fallback)

	err := router.Handle(context.Background(), &consumer.Message{Topic: "unknown.topic"})
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
}

func TestRouter_UnknownTopicCommits(t *testing.T) {
	router := NewRouter(discardLogger(), nil)

	err := router.Handle(context.Background(), &consumer.Message{Topic: "unknown.topic"})
	assert.NoError(t, err, "unhandled topics commit so they are not redelivered")
}

type clinicalRecorder struct {
	eventID uuid.UUID
	record  audit.ClinicalRecord
	calls   int
	err     error
}

func (r *clinicalRecorder) AppendClinical(_ context.Context, eventID uuid.UUID, record audit.ClinicalRecord) error {
	r.eventID = eventID
	r.record = record
	r.calls++
	return r.err
}

func TestClinicalHandler_MaterializesRecord(t *testing.T) {
	store := &clinicalRecorder{}
	handler := NewClinicalHandler(store, discardLogger())

	eventID := uuid.New()
	msg := &consumer.Message{
		Topic: "velum.audit.clinical",
		Key:   []byte(eventID.String()),
		Value: []byte(`{
			"Timestamp": "2026-02-11T09:30:00.5Z",
			"TwinID": "42",
			"Subject": "twin:42",
			"Action": "simulation_completed",
			"Reason": "moderate risk",
			"OracleRequestID": "oracle-req-1",
			"RequestID": "req-9",
			"ActorID": "dr-muller"
		}`),
	}

	require.NoError(t, handler.Handle(context.Background(), msg))
	require.Equal(t, 1, store.calls)
	assert.Equal(t, eventID, store.eventID)
	assert.Equal(t, id.TwinID(42), store.record.TwinID)
	assert.Equal(t, "simulation_completed", store.record.Action)
	assert.Equal(t, "moderate risk", store.record.Reason)
	assert.Equal(t, "dr-muller", store.record.ActorID)
	assert.Equal(t, time.Date(2026, 2, 11, 9, 30, 0, 500_000_000, time.UTC), store.record.Timestamp.UTC())
}

func TestClinicalHandler_SkipsMalformed(t *testing.T) {
	tests := []struct {
		name string
		msg  *consumer.Message
	}{
		{
			name: "bad event id key",
			msg:  &consumer.Message{Key: []byte("not-a-uuid"), Value: []byte(`{}`)},
		},
		{
			name: "bad json",
			msg:  &consumer.Message{Key: []byte(uuid.NewString()), Value: []byte(`{`)},
		},
		{
			name: "missing twin and category label",
			msg:  &consumer.Message{Key: []byte(uuid.NewString()), Value: []byte(`{"Action":"twin_created"}`)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &clinicalRecorder{}
			handler := NewClinicalHandler(store, discardLogger())

			err := handler.Handle(context.Background(), tt.msg)
			assert.NoError(t, err, "malformed messages commit instead of blocking the partition")
			assert.Zero(t, store.calls)
		})
	}
}

func TestClinicalHandler_StoreFailureRedelivers(t *testing.T) {
	store := &clinicalRecorder{err: errors.New("db down")}
	handler := NewClinicalHandler(store, discardLogger())

	msg := &consumer.Message{
		Key:   []byte(uuid.NewString()),
		Value: []byte(`{"TwinID":"1","Action":"twin_created"}`),
	}
	err := handler.Handle(context.Background(), msg)
	assert.Error(t, err, "store failures withhold the commit")
}

type securityRecorder struct {
	record audit.SecurityRecord
	calls  int
}

func (r *securityRecorder) AppendSecurity(_ context.Context, _ uuid.UUID, record audit.SecurityRecord) error {
	r.record = record
	r.calls++
	return nil
}

func TestSecurityHandler_DefaultsSeverity(t *testing.T) {
	store := &securityRecorder{}
	handler := NewSecurityHandler(store, discardLogger())

	msg := &consumer.Message{
		Key:   []byte(uuid.NewString()),
		Value: []byte(`{"Subject":"10.0.0.1","Action":"callback_invalid_proof","IP":"10.0.0.1"}`),
	}
	require.NoError(t, handler.Handle(context.Background(), msg))
	require.Equal(t, 1, store.calls)
	assert.Equal(t, string(audit.SeverityInfo), store.record.Severity)
	assert.Equal(t, "10.0.0.1", store.record.IP)
}

type opsRecorder struct {
	calls int
	err   error
}

func (r *opsRecorder) AppendOps(context.Context, uuid.UUID, audit.OpsRecord) error {
	r.calls++
	return r.err
}

func TestOpsHandler_BestEffortOnStoreFailure(t *testing.T) {
	store := &opsRecorder{err: errors.New("db down")}
	handler := NewOpsHandler(store, discardLogger())

	msg := &consumer.Message{
		Key:   []byte(uuid.NewString()),
		Value: []byte(`{"Subject":"tracker","Action":"tracker_swept"}`),
	}
	err := handler.Handle(context.Background(), msg)
	assert.NoError(t, err, "ops events never block the partition")
	assert.Equal(t, 1, store.calls)
}

func TestEventTimestamp(t *testing.T) {
	parsed := eventTimestamp("2026-02-11T09:30:00.5Z")
	assert.Equal(t, time.Date(2026, 2, 11, 9, 30, 0, 500_000_000, time.UTC), parsed.UTC())

	for _, raw := range []string{"", "yesterday"} {
		got := eventTimestamp(raw)
		assert.WithinDuration(t, time.Now(), got, time.Second, "unparseable timestamps fall back to receipt time")
	}
}
