//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "velum/pkg/domain"
	audit "velum/pkg/platform/audit"
	"velum/pkg/platform/audit/store/postgres"
	txcontext "velum/pkg/platform/tx"
	"velum/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"outbox", "audit_events", "audit_clinical", "audit_security", "audit_ops")
	s.Require().NoError(err)
}

func clinicalEvent(twinID id.TwinID, action string) audit.Event {
	return audit.Event{
		Category:        audit.CategoryClinical,
		Timestamp:       time.Now().UTC(),
		TwinID:          twinID,
		Subject:         "twin:" + twinID.String(),
		Action:          action,
		OracleRequestID: "req-1",
		RequestID:       "http-1",
		ActorID:         "dr-muller",
	}
}

func (s *PostgresStoreSuite) TestAppendLandsInOutbox() {
	ctx := context.Background()

	err := s.store.Append(ctx, clinicalEvent(7, string(audit.EventSimulationCompleted)))
	s.Require().NoError(err)

	entries, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(string(audit.EventSimulationCompleted), entries[0].EventType)
	s.Equal("twin", entries[0].AggregateType)
	s.Equal("7", entries[0].AggregateID)

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(entries[0].Payload, &payload))
	s.Equal(string(audit.CategoryClinical), payload["Category"])
	s.Equal(string(audit.EventSimulationCompleted), payload["Action"])
	s.Equal("7", payload["TwinID"])

	err = s.store.MarkPublished(ctx, []uuid.UUID{entries[0].ID})
	s.Require().NoError(err)

	entries, err = s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *PostgresStoreSuite) TestFetchUnpublishedHonorsLimitAndOrder() {
	ctx := context.Background()

	for i := range 3 {
		err := s.store.Append(ctx, clinicalEvent(id.TwinID(i+1), string(audit.EventTwinCreated)))
		s.Require().NoError(err)
	}

	entries, err := s.store.FetchUnpublished(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("1", entries[0].AggregateID)
	s.Equal("2", entries[1].AggregateID)
}

func (s *PostgresStoreSuite) TestMarkPublishedEmptyIsNoop() {
	ctx := context.Background()
	s.Require().NoError(s.store.MarkPublished(ctx, nil))
}

func (s *PostgresStoreSuite) TestAppendJoinsCallerTransaction() {
	ctx := context.Background()

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	txCtx := txcontext.WithTx(ctx, tx)

	s.Require().NoError(s.store.Append(txCtx, clinicalEvent(4, string(audit.EventTwinCreated))))
	s.Require().NoError(tx.Rollback())

	entries, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Empty(entries, "a rolled-back transaction leaves no outbox row")

	tx, err = s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	txCtx = txcontext.WithTx(ctx, tx)

	s.Require().NoError(s.store.Append(txCtx, clinicalEvent(4, string(audit.EventTwinCreated))))
	s.Require().NoError(tx.Commit())

	entries, err = s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *PostgresStoreSuite) TestAppendWithIDIsIdempotent() {
	ctx := context.Background()
	eventID := uuid.New()
	event := clinicalEvent(9, string(audit.EventSimulationRequested))

	s.Require().NoError(s.store.AppendWithID(ctx, eventID, event))
	s.Require().NoError(s.store.AppendWithID(ctx, eventID, event))

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventSimulationRequested), events[0].Action)
	s.Equal(id.TwinID(9), events[0].TwinID)
	s.Equal("dr-muller", events[0].ActorID)
}

func (s *PostgresStoreSuite) TestListByTwin() {
	ctx := context.Background()

	s.Require().NoError(s.store.AppendWithID(ctx, uuid.New(), clinicalEvent(7, string(audit.EventTwinCreated))))
	s.Require().NoError(s.store.AppendWithID(ctx, uuid.New(), clinicalEvent(7, string(audit.EventSimulationRequested))))
	s.Require().NoError(s.store.AppendWithID(ctx, uuid.New(), clinicalEvent(8, string(audit.EventTwinCreated))))

	events, err := s.store.ListByTwin(ctx, 7)
	s.Require().NoError(err)
	s.Len(events, 2)
	for _, event := range events {
		s.Equal(id.TwinID(7), event.TwinID)
	}
}

func (s *PostgresStoreSuite) TestTypedAppendsAreIdempotent() {
	ctx := context.Background()

	clinicalID := uuid.New()
	record := audit.ClinicalRecord{
		Timestamp: time.Now().UTC(),
		TwinID:    3,
		Subject:   "twin:3",
		Action:    string(audit.EventSimulationCompleted),
		RequestID: "http-9",
		ActorID:   "dr-muller",
	}
	s.Require().NoError(s.store.AppendClinical(ctx, clinicalID, record))
	s.Require().NoError(s.store.AppendClinical(ctx, clinicalID, record))

	securityID := uuid.New()
	secRecord := audit.SecurityRecord{
		Timestamp: time.Now().UTC(),
		Subject:   "request:req-9",
		Action:    string(audit.EventCallbackInvalidProof),
		Reason:    "proof verification failed",
		IP:        "10.0.0.9",
		Severity:  string(audit.SeverityCritical),
	}
	s.Require().NoError(s.store.AppendSecurity(ctx, securityID, secRecord))
	s.Require().NoError(s.store.AppendSecurity(ctx, securityID, secRecord))

	opsID := uuid.New()
	opsRecord := audit.OpsRecord{
		Timestamp: time.Now().UTC(),
		Subject:   "tracker",
		Action:    string(audit.EventTrackerSwept),
	}
	s.Require().NoError(s.store.AppendOps(ctx, opsID, opsRecord))
	s.Require().NoError(s.store.AppendOps(ctx, opsID, opsRecord))

	s.Equal(1, s.countRows("audit_clinical"))
	s.Equal(1, s.countRows("audit_security"))
	s.Equal(1, s.countRows("audit_ops"))
}

func (s *PostgresStoreSuite) countRows(table string) int {
	var n int
	err := s.postgres.DB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	s.Require().NoError(err)
	return n
}
