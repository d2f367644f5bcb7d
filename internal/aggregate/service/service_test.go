package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"velum/internal/aggregate/store"
	"velum/internal/oracle"
	trackerModels "velum/internal/tracker/models"
	trackerService "velum/internal/tracker/service"
	trackerStore "velum/internal/tracker/store"
	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
	"velum/pkg/platform/audit"
	"velum/pkg/platform/sentinel"
	"velum/pkg/requestcontext"
)

type AggregateServiceSuite struct {
	suite.Suite
	counters  *store.InMemoryCounterStore
	snapshots *store.InMemorySnapshotStore
	tracker   *trackerService.Service
	engine    *fakeEngine
	oracle    *fakeOracle
	clinical  *captureClinical
	security  *captureSecurity
	service   *Service
	ctx       context.Context
	now       time.Time
}

func TestAggregateServiceSuite(t *testing.T) {
	suite.Run(t, new(AggregateServiceSuite))
}

func (s *AggregateServiceSuite) SetupTest() {
	s.counters = store.NewInMemoryCounterStore()
	s.snapshots = store.NewInMemorySnapshotStore()
	s.tracker = trackerService.New(trackerStore.NewInMemoryStore())
	s.engine = &fakeEngine{}
	s.oracle = &fakeOracle{}
	s.clinical = &captureClinical{}
	s.security = &captureSecurity{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.service = New(
		s.counters, s.snapshots, s.tracker, s.engine, s.oracle,
		WithLogger(logger),
		WithClinicalPublisher(s.clinical),
		WithSecurityPublisher(s.security),
	)
	s.now = time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

// fakeEngine counts in bytes: zero is one byte, each added one appends a
// byte, so len-1 reads back the applied increments.
type fakeEngine struct {
	failAdd bool
}

func (e *fakeEngine) EncryptZero() (id.Ciphertext, error) {
	return id.Ciphertext("0"), nil
}

func (e *fakeEngine) EncryptOne() (id.Ciphertext, error) {
	return id.Ciphertext("1"), nil
}

func (e *fakeEngine) AddCiphertexts(a, b id.Ciphertext) (id.Ciphertext, error) {
	if e.failAdd {
		return nil, errors.New("engine down")
	}
	return append(a.Clone(), b...), nil
}

type fakeOracle struct {
	issued      int
	lastTarget  oracle.CallbackTarget
	lastPayload []id.Ciphertext
	failVerify  bool
}

func (o *fakeOracle) IssueDecryptionRequest(_ context.Context, payload []id.Ciphertext, target oracle.CallbackTarget) (id.RequestID, error) {
	o.issued++
	o.lastTarget = target
	o.lastPayload = payload
	return id.RequestID(fmt.Sprintf("req-%d", o.issued)), nil
}

func (o *fakeOracle) VerifyProof(_ context.Context, _ id.RequestID, _ []string, _ []byte) error {
	if o.failVerify {
		return errors.New("signature mismatch")
	}
	return nil
}

type captureClinical struct {
	events []audit.ClinicalEvent
	err    error
}

func (c *captureClinical) Emit(_ context.Context, event audit.ClinicalEvent) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

type captureSecurity struct {
	events []audit.SecurityEvent
}

func (c *captureSecurity) Emit(_ context.Context, event audit.SecurityEvent) {
	c.events = append(c.events, event)
}

func (s *AggregateServiceSuite) counterValue(category id.Category) int {
	ct, err := s.counters.Snapshot(s.ctx, category)
	s.Require().NoError(err)
	return len(ct) - 1
}

func (s *AggregateServiceSuite) TestBlindIncrement() {
	s.Run("initializes then accumulates", func() {
		s.Require().NoError(s.service.BlindIncrement(s.ctx, "heart"))
		s.Require().NoError(s.service.BlindIncrement(s.ctx, "heart"))
		s.Equal(2, s.counterValue("heart"))
	})

	s.Run("engine failure surfaces as internal", func() {
		s.engine.failAdd = true
		defer func() { s.engine.failAdd = false }()

		err := s.service.BlindIncrement(s.ctx, "liver")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *AggregateServiceSuite) TestListCategories() {
	s.Require().NoError(s.service.BlindIncrement(s.ctx, "liver"))
	s.Require().NoError(s.service.BlindIncrement(s.ctx, "heart"))

	s.Run("lists observed categories in lexical order", func() {
		summaries, err := s.service.ListCategories(s.ctx)
		s.NoError(err)
		s.Require().Len(summaries, 2)
		s.Equal(id.Category("heart"), summaries[0].Category)
		s.Equal(id.Category("liver"), summaries[1].Category)
		s.Nil(summaries[0].Snapshot)
	})

	s.Run("pairs categories with their snapshots once decrypted", func() {
		requestID, err := s.service.RequestDecryption(s.ctx, "heart")
		s.Require().NoError(err)
		_, err = s.service.ApplyDecryptedCount(s.ctx, requestID, 1, []byte("proof"))
		s.Require().NoError(err)

		summaries, err := s.service.ListCategories(s.ctx)
		s.NoError(err)
		s.Require().Len(summaries, 2)
		s.Require().NotNil(summaries[0].Snapshot)
		s.Equal(uint64(1), summaries[0].Snapshot.Count)
		s.Nil(summaries[1].Snapshot)
	})
}

func (s *AggregateServiceSuite) TestGetCount() {
	s.Run("unknown category", func() {
		_, err := s.service.GetCount(s.ctx, "spleen")
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownCategory))
	})

	s.Run("observed but never decrypted", func() {
		s.Require().NoError(s.service.BlindIncrement(s.ctx, "heart"))

		_, err := s.service.GetCount(s.ctx, "heart")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("returns the latest snapshot", func() {
		s.Require().NoError(s.service.BlindIncrement(s.ctx, "heart"))
		requestID, err := s.service.RequestDecryption(s.ctx, "heart")
		s.Require().NoError(err)
		_, err = s.service.ApplyDecryptedCount(s.ctx, requestID, 2, []byte("proof"))
		s.Require().NoError(err)

		snapshot, err := s.service.GetCount(s.ctx, "heart")
		s.NoError(err)
		s.Equal(uint64(2), snapshot.Count)
		s.Equal(s.now, snapshot.DecryptedAt)
	})
}

func (s *AggregateServiceSuite) TestRequestDecryption() {
	s.Run("unknown category", func() {
		_, err := s.service.RequestDecryption(s.ctx, "spleen")
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownCategory))
		s.Zero(s.oracle.issued)
	})

	s.Run("packages the counter and registers the returned id", func() {
		s.Require().NoError(s.service.BlindIncrement(s.ctx, "heart"))

		requestID, err := s.service.RequestDecryption(s.ctx, "heart")
		s.Require().NoError(err)
		s.Equal(id.RequestID("req-1"), requestID)
		s.Equal(oracle.TargetDecryptedCount, s.oracle.lastTarget)
		s.Require().Len(s.oracle.lastPayload, 1)
		s.Equal(1, len(s.oracle.lastPayload[0])-1) // current counter value

		entry, err := s.tracker.ResolvePending(s.ctx, requestID)
		s.Require().NoError(err)
		s.Equal(trackerModels.KindCount, entry.Kind)
		s.Equal(id.Category("heart"), entry.Target.Category)

		s.Require().Len(s.clinical.events, 1)
		event := s.clinical.events[0]
		s.Equal(string(audit.EventCountRequested), event.Action)
		s.Equal("heart", event.CategoryLabel)
		s.Equal("req-1", event.OracleRequestID)
	})

	s.Run("fails when the audit trail is unavailable", func() {
		s.Require().NoError(s.service.BlindIncrement(s.ctx, "liver"))
		s.clinical.err = errors.New("kafka down")
		defer func() { s.clinical.err = nil }()

		_, err := s.service.RequestDecryption(s.ctx, "liver")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *AggregateServiceSuite) TestApplyDecryptedCount() {
	s.Run("publishes the snapshot and audit event", func() {
		s.Require().NoError(s.service.BlindIncrement(s.ctx, "heart"))
		s.Require().NoError(s.service.BlindIncrement(s.ctx, "heart"))
		requestID, err := s.service.RequestDecryption(s.ctx, "heart")
		s.Require().NoError(err)

		snapshot, err := s.service.ApplyDecryptedCount(s.ctx, requestID, 2, []byte("proof"))
		s.NoError(err)
		s.Equal(id.Category("heart"), snapshot.Category)
		s.Equal(uint64(2), snapshot.Count)
		s.Equal(s.now, snapshot.DecryptedAt)

		stored, err := s.snapshots.Get(s.ctx, "heart")
		s.Require().NoError(err)
		s.Equal(uint64(2), stored.Count)

		last := s.clinical.events[len(s.clinical.events)-1]
		s.Equal(string(audit.EventCountRevealed), last.Action)
		s.Equal("heart", last.CategoryLabel)
	})

	s.Run("unknown request id is rejected and recorded", func() {
		_, err := s.service.ApplyDecryptedCount(s.ctx, "req-forged", 9, []byte("proof"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownRequest))

		last := s.security.events[len(s.security.events)-1]
		s.Equal(string(audit.EventCallbackUnknownRequest), last.Action)
	})

	s.Run("replayed request id is rejected", func() {
		s.Require().NoError(s.service.BlindIncrement(s.ctx, "liver"))
		requestID, err := s.service.RequestDecryption(s.ctx, "liver")
		s.Require().NoError(err)

		_, err = s.service.ApplyDecryptedCount(s.ctx, requestID, 1, []byte("proof"))
		s.Require().NoError(err)

		_, err = s.service.ApplyDecryptedCount(s.ctx, requestID, 1, []byte("proof"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownRequest))
	})

	s.Run("invalid proof leaves no snapshot and consumes the entry", func() {
		s.Require().NoError(s.service.BlindIncrement(s.ctx, "kidney"))
		requestID, err := s.service.RequestDecryption(s.ctx, "kidney")
		s.Require().NoError(err)

		s.oracle.failVerify = true
		_, err = s.service.ApplyDecryptedCount(s.ctx, requestID, 1, []byte("bad"))
		s.oracle.failVerify = false
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidProof))

		_, err = s.snapshots.Get(s.ctx, "kidney")
		s.ErrorIs(err, sentinel.ErrNotFound)

		last := s.security.events[len(s.security.events)-1]
		s.Equal(string(audit.EventCallbackInvalidProof), last.Action)

		// Entry already consumed: a retry of the same id is unknown.
		_, err = s.service.ApplyDecryptedCount(s.ctx, requestID, 1, []byte("proof"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownRequest))
	})

	s.Run("simulation entries are rejected by kind", func() {
		s.Require().NoError(s.tracker.RegisterPending(s.ctx, "req-sim", trackerModels.KindSimulation,
			trackerModels.CallbackTarget{TwinID: 7}))

		_, err := s.service.ApplyDecryptedCount(s.ctx, "req-sim", 1, []byte("proof"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownRequest))

		// Consumed regardless of the rejection.
		_, err = s.tracker.ResolvePending(s.ctx, "req-sim")
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownRequest))
	})
}
