package models

import (
	"time"

	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
)

// ResultState is the simulation track of a twin.
type ResultState string

const (
	// StateNoSimulation: no simulation has ever been requested.
	StateNoSimulation ResultState = "no_simulation"
	// StatePending: at least one request is in flight, nothing revealed yet.
	StatePending ResultState = "pending"
	// StateRevealed: the one-time result write happened. Terminal.
	StateRevealed ResultState = "revealed"
)

// SimulationKind selects which parameter branch a request carries.
type SimulationKind string

const (
	SimulationDrug    SimulationKind = "drug"
	SimulationSurgery SimulationKind = "surgery"
)

// SimulationParams is the pending parameter set for one twin. At most one is
// held per twin; a newer request overwrites it, while the payload the older
// request already sent to the oracle stays as captured at issuance.
//
// All three branches are always present: the branch the kind does not use
// holds an encryption of zero, never nil, so the oracle payload keeps a fixed
// shape regardless of kind.
type SimulationParams struct {
	Kind          SimulationKind
	DrugCompound  id.Ciphertext
	Dosage        id.Ciphertext
	ProcedureType id.Ciphertext
	SubmittedAt   time.Time
}

func (p *SimulationParams) Clone() *SimulationParams {
	if p == nil {
		return nil
	}
	clone := *p
	clone.DrugCompound = p.DrugCompound.Clone()
	clone.Dosage = p.Dosage.Clone()
	clone.ProcedureType = p.ProcedureType.Clone()
	return &clone
}

// SimulationResult is the per-twin result slot, allocated empty at twin
// creation. Until Revealed is true the text fields are placeholders and
// carry no meaning.
type SimulationResult struct {
	PredictedEffect       string    `json:"predicted_effect"`
	RiskAssessment        string    `json:"risk_assessment"`
	RecommendedAdjustment string    `json:"recommended_adjustment"`
	Revealed              bool      `json:"revealed"`
	RevealedAt            time.Time `json:"revealed_at,omitzero"`
}

// Twin is the aggregate root for one encrypted organ record.
//
// Invariants:
//   - ID is positive, assigned once, never reused
//   - The three stored ciphertexts are non-empty and immutable after creation
//   - Result.Revealed transitions false→true at most once and never resets
//   - Twins are never deleted
type Twin struct {
	ID                id.TwinID
	OrganType         id.Ciphertext
	PhysiologicalData id.Ciphertext
	GeneticMarkers    id.Ciphertext
	CreatedAt         time.Time

	Params *SimulationParams
	Result SimulationResult
}

func NewTwin(twinID id.TwinID, organType, physioData, geneticMarkers id.Ciphertext, now time.Time) (*Twin, error) {
	if !twinID.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "twin id must be positive")
	}
	if organType.IsZero() || physioData.IsZero() || geneticMarkers.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "twin requires all three ciphertext handles")
	}
	return &Twin{
		ID:                twinID,
		OrganType:         organType,
		PhysiologicalData: physioData,
		GeneticMarkers:    geneticMarkers,
		CreatedAt:         now,
	}, nil
}

// State derives the simulation-track state. Revealed wins over a pending
// parameter set left behind by a later doomed request cycle.
func (t *Twin) State() ResultState {
	switch {
	case t.Result.Revealed:
		return StateRevealed
	case t.Params != nil:
		return StatePending
	default:
		return StateNoSimulation
	}
}

// ApplyParams installs a pending parameter set, overwriting any previous one.
// Overwrite does not touch requests already issued against the old set.
func (t *Twin) ApplyParams(params *SimulationParams) {
	t.Params = params
}

// CanReveal checks that the one-time result write is still available.
// Use with ApplyReveal in Execute callbacks.
func (t *Twin) CanReveal() error {
	if t.Result.Revealed {
		return dErrors.New(dErrors.CodeAlreadyRevealed, "simulation result already revealed")
	}
	return nil
}

// ApplyReveal performs the one-time result write and retires the pending
// parameter slot. Call CanReveal first.
func (t *Twin) ApplyReveal(predictedEffect, riskAssessment, recommendedAdjustment string, now time.Time) {
	t.Result = SimulationResult{
		PredictedEffect:       predictedEffect,
		RiskAssessment:        riskAssessment,
		RecommendedAdjustment: recommendedAdjustment,
		Revealed:              true,
		RevealedAt:            now,
	}
	t.Params = nil
}

// Clone deep-copies the twin so store reads never alias store state.
func (t *Twin) Clone() *Twin {
	clone := *t
	clone.OrganType = t.OrganType.Clone()
	clone.PhysiologicalData = t.PhysiologicalData.Clone()
	clone.GeneticMarkers = t.GeneticMarkers.Clone()
	clone.Params = t.Params.Clone()
	return &clone
}
