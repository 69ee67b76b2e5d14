package safety

import (
	"github.com/guardlex/guardlex/lib/safecheck"
)

// combineResults merges a local verdict with a remote one into a single result.
// Safety is conjunctive, either side flagging unsafe makes the fused result
// unsafe. Confidence is a weighted sum of both confidences, clamped to [0, 1].
// Matched terms come from the local side only. Never fails, always produces a
// well-formed result from whatever sub-verdicts it gets.
func combineResults(local safecheck.Result, remote safecheck.RemoteVerdict, localWeight, remoteWeight float64) safecheck.Result {
	combinedConfidence := local.Confidence*localWeight + remote.Confidence*remoteWeight
	combinedConfidence = min(1.0, max(0.0, combinedConfidence))

	isSafe := local.IsSafe && remote.IsSafe
	riskLevel := safecheck.RiskSafe
	if !isSafe {
		riskLevel = safecheck.RiskMedium
		if local.RiskLevel == safecheck.RiskHigh || remote.RiskLevel == safecheck.RiskHigh {
			riskLevel = safecheck.RiskHigh
		}
	}

	matched := make([]string, len(local.MatchedTerms))
	copy(matched, local.MatchedTerms)

	details := map[string]any{
		"local_result": map[string]any{
			"is_safe":       local.IsSafe,
			"risk_level":    local.RiskLevel,
			"confidence":    local.Confidence,
			"matched_terms": local.MatchedTerms,
		},
		"api_result": map[string]any{
			"is_safe":    remote.IsSafe,
			"risk_level": remote.RiskLevel,
			"confidence": remote.Confidence,
			"details":    remote.Details,
		},
		"detection_method":    safecheck.MethodDual,
		"local_weight":        localWeight,
		"api_weight":          remoteWeight,
		"combined_confidence": combinedConfidence,
	}

	return safecheck.Result{
		IsSafe:       isSafe,
		MatchedTerms: matched,
		RiskLevel:    riskLevel,
		Confidence:   combinedConfidence,
		Details:      details,
	}
}
