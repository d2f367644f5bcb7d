// Package predictor derives the three human-readable result texts from the
// clear values an oracle callback delivers. The derivation is a pure
// mapping: the same clear values always yield the same prediction.
package predictor

import (
	"hash/fnv"

	dErrors "velum/pkg/domain-errors"
)

// Prediction is the derived simulation conclusion written into a twin's
// result slot.
type Prediction struct {
	PredictedEffect       string
	RiskAssessment        string
	RecommendedAdjustment string
}

// Predictor maps decrypted simulation values to a prediction.
type Predictor interface {
	Predict(clearValues []string) (Prediction, error)
}

var (
	effects = []string{
		"stable response",
		"improved function",
		"transient stress response",
		"reduced metabolic load",
		"delayed therapeutic effect",
	}
	risks = []string{
		"low risk",
		"moderate risk",
		"elevated risk",
	}
	adjustments = []string{
		"maintain dosage",
		"reduce dosage by half",
		"increase monitoring interval",
		"schedule follow-up assessment",
	}
)

// RuleTable is the default Predictor: fixed text tables indexed by a hash
// of the clear values. Deterministic and stateless; a model-backed
// implementation can replace it behind the same interface.
type RuleTable struct{}

// NewRuleTable constructs the default rule-table predictor.
func NewRuleTable() *RuleTable {
	return &RuleTable{}
}

// Predict selects one entry from each table.
func (t *RuleTable) Predict(clearValues []string) (Prediction, error) {
	if len(clearValues) == 0 {
		return Prediction{}, dErrors.New(dErrors.CodeInvalidInput, "prediction requires at least one clear value")
	}

	h := fnv.New64a()
	for _, value := range clearValues {
		h.Write([]byte(value))
		// NUL separator keeps ["ab","c"] distinct from ["a","bc"].
		h.Write([]byte{0})
	}
	sum := h.Sum64()

	return Prediction{
		PredictedEffect:       effects[sum%uint64(len(effects))],
		RiskAssessment:        risks[(sum/31)%uint64(len(risks))],
		RecommendedAdjustment: adjustments[(sum/97)%uint64(len(adjustments))],
	}, nil
}
