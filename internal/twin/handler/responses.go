package handler

import (
	"time"

	"velum/internal/twin/models"
	id "velum/pkg/domain"
)

// TwinResponse is the HTTP representation of a twin. Ciphertext handles are
// write-only and never echoed back.
type TwinResponse struct {
	TwinID    id.TwinID `json:"twin_id"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// FromTwin maps a twin to its response form.
func FromTwin(twin *models.Twin) TwinResponse {
	return TwinResponse{
		TwinID:    twin.ID,
		State:     string(twin.State()),
		CreatedAt: twin.CreatedAt,
	}
}

// ResultResponse is the HTTP representation of a twin's result slot. Until
// revealed, the text fields are absent and callers should poll.
type ResultResponse struct {
	TwinID                id.TwinID  `json:"twin_id"`
	Revealed              bool       `json:"revealed"`
	PredictedEffect       string     `json:"predicted_effect,omitempty"`
	RiskAssessment        string     `json:"risk_assessment,omitempty"`
	RecommendedAdjustment string     `json:"recommended_adjustment,omitempty"`
	RevealedAt            *time.Time `json:"revealed_at,omitempty"`
}

// FromResult maps a result slot to its response form.
func FromResult(twinID id.TwinID, result models.SimulationResult) ResultResponse {
	resp := ResultResponse{
		TwinID:                twinID,
		Revealed:              result.Revealed,
		PredictedEffect:       result.PredictedEffect,
		RiskAssessment:        result.RiskAssessment,
		RecommendedAdjustment: result.RecommendedAdjustment,
	}
	if result.Revealed {
		revealedAt := result.RevealedAt
		resp.RevealedAt = &revealedAt
	}
	return resp
}
