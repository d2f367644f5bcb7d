package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"velum/internal/twin/models"
	"velum/internal/twin/store"
	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
	"velum/pkg/platform/audit"
	"velum/pkg/requestcontext"
)

type TwinServiceSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	clinical *captureClinical
	service  *Service
	ctx      context.Context
}

func TestTwinServiceSuite(t *testing.T) {
	suite.Run(t, new(TwinServiceSuite))
}

func (s *TwinServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.clinical = &captureClinical{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.service = New(
		s.store,
		WithLogger(logger),
		WithClinicalPublisher(s.clinical),
	)
	s.ctx = context.Background()
}

// SetupSubTest gives each s.Run subtest a fresh store and publisher; the
// subtests assert against fixture state from their own calls only.
func (s *TwinServiceSuite) SetupSubTest() {
	s.SetupTest()
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

func (s *TwinServiceSuite) createTwin() id.TwinID {
	twin, err := s.service.CreateTwin(s.ctx,
		id.Ciphertext("ct-organ"), id.Ciphertext("ct-physio"), id.Ciphertext("ct-genetic"))
	s.Require().NoError(err)
	return twin.ID
}

func (s *TwinServiceSuite) TestCreateTwin() {
	s.Run("returns the stored twin", func() {
		twin, err := s.service.CreateTwin(s.ctx,
			id.Ciphertext("ct-organ"), id.Ciphertext("ct-physio"), id.Ciphertext("ct-genetic"))
		s.NoError(err)
		s.Equal(id.TwinID(1), twin.ID)
		s.False(twin.Result.Revealed)
	})

	s.Run("emits a clinical creation event with the request actor", func() {
		now := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctx, now)
		ctx = requestcontext.WithOperatorID(ctx, "dr-muller")
		ctx = requestcontext.WithRequestID(ctx, "req-42")

		twin, err := s.service.CreateTwin(ctx,
			id.Ciphertext("ct-organ"), id.Ciphertext("ct-physio"), id.Ciphertext("ct-genetic"))
		s.Require().NoError(err)

		s.Require().Len(s.clinical.events, 1)
		event := s.clinical.events[0]
		s.Equal(twin.ID, event.TwinID)
		s.Equal(string(audit.EventTwinCreated), event.Action)
		s.Equal("dr-muller", event.ActorID)
		s.Equal("req-42", event.RequestID)
		s.Equal(now, event.Timestamp)
	})

	s.Run("rejects empty ciphertext handles as invalid input", func() {
		_, err := s.service.CreateTwin(s.ctx, nil, id.Ciphertext("p"), id.Ciphertext("g"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("fails when the audit trail is unavailable", func() {
		s.clinical.err = errors.New("kafka down")
		defer func() { s.clinical.err = nil }()

		_, err := s.service.CreateTwin(s.ctx,
			id.Ciphertext("ct-organ"), id.Ciphertext("ct-physio"), id.Ciphertext("ct-genetic"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *TwinServiceSuite) TestGetTwin() {
	s.Run("returns the twin by id", func() {
		twinID := s.createTwin()

		twin, err := s.service.GetTwin(s.ctx, twinID)
		s.NoError(err)
		s.Equal(twinID, twin.ID)
	})

	s.Run("translates unknown ids to not found", func() {
		_, err := s.service.GetTwin(s.ctx, id.TwinID(404))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *TwinServiceSuite) TestGetResult() {
	s.Run("returns the unrevealed placeholder before any callback", func() {
		twinID := s.createTwin()

		result, err := s.service.GetResult(s.ctx, twinID)
		s.NoError(err)
		s.False(result.Revealed)
		s.Empty(result.PredictedEffect)
	})

	s.Run("returns the revealed result after the one-time write", func() {
		twinID := s.createTwin()
		revealedAt := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
		_, err := s.store.Execute(s.ctx, twinID,
			func(twin *models.Twin) error { return twin.CanReveal() },
			func(twin *models.Twin) {
				twin.ApplyReveal("stable response", "low risk", "maintain dosage", revealedAt)
			})
		s.Require().NoError(err)

		result, err := s.service.GetResult(s.ctx, twinID)
		s.NoError(err)
		s.True(result.Revealed)
		s.Equal("stable response", result.PredictedEffect)
		s.Equal("low risk", result.RiskAssessment)
		s.Equal("maintain dosage", result.RecommendedAdjustment)
		s.Equal(revealedAt, result.RevealedAt)
	})

	s.Run("translates unknown ids to not found", func() {
		_, err := s.service.GetResult(s.ctx, id.TwinID(404))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
