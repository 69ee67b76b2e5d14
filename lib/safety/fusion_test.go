package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardlex/guardlex/lib/safecheck"
)

func TestCombineResults(t *testing.T) {
	localUnsafe := safecheck.Result{IsSafe: false, MatchedTerms: []string{"bad"},
		RiskLevel: safecheck.RiskMedium, Confidence: 0.8}
	localSafe := safecheck.Result{IsSafe: true, MatchedTerms: []string{},
		RiskLevel: safecheck.RiskSafe, Confidence: 1.0}
	remoteSafe := safecheck.RemoteVerdict{IsSafe: true, RiskLevel: safecheck.RiskSafe, Confidence: 0.9}
	remoteUnsafe := safecheck.RemoteVerdict{IsSafe: false, RiskLevel: safecheck.RiskHigh, Confidence: 0.95}

	t.Run("conjunctive safety", func(t *testing.T) {
		assert.False(t, combineResults(localUnsafe, remoteSafe, 0.3, 0.7).IsSafe)
		assert.False(t, combineResults(localSafe, remoteUnsafe, 0.3, 0.7).IsSafe)
		assert.True(t, combineResults(localSafe, remoteSafe, 0.3, 0.7).IsSafe)
	})

	t.Run("risk escalation", func(t *testing.T) {
		assert.Equal(t, safecheck.RiskMedium, combineResults(localUnsafe, remoteSafe, 0.3, 0.7).RiskLevel,
			"unsafe but neither side high")
		assert.Equal(t, safecheck.RiskHigh, combineResults(localUnsafe, remoteUnsafe, 0.3, 0.7).RiskLevel,
			"remote high wins")
		assert.Equal(t, safecheck.RiskSafe, combineResults(localSafe, remoteSafe, 0.3, 0.7).RiskLevel)
	})

	t.Run("weighted confidence", func(t *testing.T) {
		res := combineResults(localUnsafe, remoteSafe, 0.3, 0.7)
		assert.InDelta(t, 0.3*0.8+0.7*0.9, res.Confidence, 0.0001)
	})

	t.Run("confidence clamped to one", func(t *testing.T) {
		res := combineResults(localSafe, remoteSafe, 1.0, 1.0)
		assert.InDelta(t, 1.0, res.Confidence, 0.0001)
	})

	t.Run("terms from local only", func(t *testing.T) {
		res := combineResults(localUnsafe, remoteUnsafe, 0.3, 0.7)
		assert.Equal(t, []string{"bad"}, res.MatchedTerms)
	})

	t.Run("details embed both sides", func(t *testing.T) {
		res := combineResults(localUnsafe, remoteSafe, 0.3, 0.7)
		require.NotNil(t, res.Details)
		assert.Equal(t, safecheck.MethodDual, res.Method())

		localDetails, ok := res.Details["local_result"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, false, localDetails["is_safe"])
		assert.Equal(t, safecheck.RiskMedium, localDetails["risk_level"])

		apiDetails, ok := res.Details["api_result"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, apiDetails["is_safe"])

		assert.InDelta(t, 0.3, res.Details["local_weight"].(float64), 0.0001)
		assert.InDelta(t, 0.7, res.Details["api_weight"].(float64), 0.0001)
	})

	t.Run("neutral remote still fuses", func(t *testing.T) {
		neutral := safecheck.RemoteVerdict{IsSafe: true, RiskLevel: safecheck.RiskUnknown, Confidence: 0.0}
		res := combineResults(localSafe, neutral, 0.3, 0.7)
		assert.True(t, res.IsSafe)
		assert.Equal(t, safecheck.RiskSafe, res.RiskLevel)
		assert.InDelta(t, 0.3, res.Confidence, 0.0001)
		assert.Equal(t, safecheck.MethodDual, res.Method())
	})
}
