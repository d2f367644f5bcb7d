package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	aggService "velum/internal/aggregate/service"
	aggStore "velum/internal/aggregate/store"
	"velum/internal/coordinator/predictor"
	"velum/internal/oracle"
	"velum/internal/oracle/mocks"
	trackerService "velum/internal/tracker/service"
	trackerStore "velum/internal/tracker/store"
	twinStore "velum/internal/twin/store"
	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
	"velum/pkg/requestcontext"
)

// Expectation-based coverage of the request path: these tests pin the exact
// engine and oracle calls, where the suite's stateful fakes check outcomes.

type mockedCoordinator struct {
	service *Service
	engine  *mocks.MockEngine
	oracle  *mocks.MockOracle
	twins   *twinStore.InMemoryStore
	tracker *trackerService.Service
	ctx     context.Context
}

func newMockedCoordinator(t *testing.T, ctrl *gomock.Controller) *mockedCoordinator {
	t.Helper()

	engine := mocks.NewMockEngine(ctrl)
	orc := mocks.NewMockOracle(ctrl)
	twins := twinStore.NewInMemoryStore()
	tracker := trackerService.New(trackerStore.NewInMemoryStore())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	aggregate := aggService.New(
		aggStore.NewInMemoryCounterStore(), aggStore.NewInMemorySnapshotStore(),
		tracker, engine, orc,
		aggService.WithLogger(logger),
	)
	svc := New(twins, tracker, aggregate, engine, orc, predictor.NewRuleTable(),
		WithLogger(logger))

	now := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	return &mockedCoordinator{
		service: svc,
		engine:  engine,
		oracle:  orc,
		twins:   twins,
		tracker: tracker,
		ctx:     requestcontext.WithTime(context.Background(), now),
	}
}

func (m *mockedCoordinator) createTwin(t *testing.T) id.TwinID {
	t.Helper()
	twin, err := m.twins.Create(m.ctx,
		id.Ciphertext("ct-organ"), id.Ciphertext("ct-physio"), id.Ciphertext("ct-genetic"),
		requestcontext.Now(m.ctx))
	require.NoError(t, err)
	return twin.ID
}

func TestRequestDrugSimulation_EngineCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMockedCoordinator(t, ctrl)
	twinID := m.createTwin(t)

	compound := id.Ciphertext("ct-compound")
	dosage := id.Ciphertext("ct-dosage")
	zero := id.Ciphertext("ct-zero")
	drugSum := id.Ciphertext("ct-drug-sum")
	merged := id.Ciphertext("ct-merged")

	m.engine.EXPECT().IsInitialized(compound).Return(true)
	m.engine.EXPECT().IsInitialized(dosage).Return(true)
	m.engine.EXPECT().EncryptZero().Return(zero, nil)
	m.engine.EXPECT().AddCiphertexts(compound, dosage).Return(drugSum, nil)
	m.engine.EXPECT().AddCiphertexts(drugSum, zero).Return(merged, nil)
	m.oracle.EXPECT().IssueDecryptionRequest(gomock.Any(),
		[]id.Ciphertext{id.Ciphertext("ct-organ"), id.Ciphertext("ct-physio"), id.Ciphertext("ct-genetic"), merged},
		oracle.TargetSimulationResult,
	).Return(id.RequestID("req-77"), nil)

	requestID, err := m.service.RequestDrugSimulation(m.ctx, twinID, compound, dosage)
	require.NoError(t, err)
	assert.Equal(t, id.RequestID("req-77"), requestID)

	entry, err := m.tracker.ResolvePending(m.ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, twinID, entry.Target.TwinID)
}

func TestRequestSurgerySimulation_ZeroFillsBothDrugBranches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMockedCoordinator(t, ctrl)
	twinID := m.createTwin(t)

	procedure := id.Ciphertext("ct-procedure")
	zeroCompound := id.Ciphertext("ct-zero-a")
	zeroDosage := id.Ciphertext("ct-zero-b")
	zeroSum := id.Ciphertext("ct-zero-sum")
	merged := id.Ciphertext("ct-merged")

	m.engine.EXPECT().IsInitialized(procedure).Return(true)
	m.engine.EXPECT().EncryptZero().Return(zeroCompound, nil)
	m.engine.EXPECT().EncryptZero().Return(zeroDosage, nil)
	m.engine.EXPECT().AddCiphertexts(zeroCompound, zeroDosage).Return(zeroSum, nil)
	m.engine.EXPECT().AddCiphertexts(zeroSum, procedure).Return(merged, nil)
	m.oracle.EXPECT().IssueDecryptionRequest(gomock.Any(),
		[]id.Ciphertext{id.Ciphertext("ct-organ"), id.Ciphertext("ct-physio"), id.Ciphertext("ct-genetic"), merged},
		oracle.TargetSimulationResult,
	).Return(id.RequestID("req-78"), nil)

	requestID, err := m.service.RequestSurgerySimulation(m.ctx, twinID, procedure)
	require.NoError(t, err)
	assert.Equal(t, id.RequestID("req-78"), requestID)
}

func TestRequestDrugSimulation_ZeroFillFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMockedCoordinator(t, ctrl)
	twinID := m.createTwin(t)

	compound := id.Ciphertext("ct-compound")
	dosage := id.Ciphertext("ct-dosage")

	m.engine.EXPECT().IsInitialized(compound).Return(true)
	m.engine.EXPECT().IsInitialized(dosage).Return(true)
	// No oracle expectation: the request must not reach it.
	m.engine.EXPECT().EncryptZero().Return(nil, errors.New("keygen not ready"))

	_, err := m.service.RequestDrugSimulation(m.ctx, twinID, compound, dosage)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestRequestDrugSimulation_MergeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := newMockedCoordinator(t, ctrl)
	twinID := m.createTwin(t)

	compound := id.Ciphertext("ct-compound")
	dosage := id.Ciphertext("ct-dosage")

	m.engine.EXPECT().IsInitialized(compound).Return(true)
	m.engine.EXPECT().IsInitialized(dosage).Return(true)
	m.engine.EXPECT().EncryptZero().Return(id.Ciphertext("ct-zero"), nil)
	m.engine.EXPECT().AddCiphertexts(compound, dosage).Return(nil, errors.New("parameter mismatch"))

	_, err := m.service.RequestDrugSimulation(m.ctx, twinID, compound, dosage)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
