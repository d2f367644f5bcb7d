package predictor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "velum/pkg/domain-errors"
)

func TestRuleTablePredict(t *testing.T) {
	table := NewRuleTable()

	t.Run("is deterministic", func(t *testing.T) {
		clearValues := []string{"heart", "physio", "genetic", "params"}

		first, err := table.Predict(clearValues)
		require.NoError(t, err)
		second, err := table.Predict(clearValues)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("draws every field from its table", func(t *testing.T) {
		prediction, err := table.Predict([]string{"liver", "x", "y", "z"})
		require.NoError(t, err)

		assert.Contains(t, effects, prediction.PredictedEffect)
		assert.Contains(t, risks, prediction.RiskAssessment)
		assert.Contains(t, adjustments, prediction.RecommendedAdjustment)
	})

	t.Run("rejects empty clear values", func(t *testing.T) {
		_, err := table.Predict(nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
