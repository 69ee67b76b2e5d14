package safety

import (
	"github.com/guardlex/guardlex/lib/safecheck"
)

// scoreRisk turns the matched terms into a discrete risk level and a confidence.
// Density is the share of matched-term characters in the text; tiers are checked
// high to low, first match wins. A single very long matched term can push density
// over the high threshold even with one match, this is intentional.
func scoreRisk(text string, matched []string) (safecheck.RiskLevel, float64) {
	if len(matched) == 0 {
		return safecheck.RiskSafe, 1.0
	}

	totalChars := len([]rune(text))
	matchedChars := 0
	for _, term := range matched {
		matchedChars += len([]rune(term))
	}
	density := 0.0
	if totalChars > 0 {
		density = float64(matchedChars) / float64(totalChars)
	}

	switch {
	case len(matched) >= 5 || density > 0.1:
		return safecheck.RiskHigh, min(0.95, 0.7+density*2)
	case len(matched) >= 2 || density > 0.05:
		return safecheck.RiskMedium, min(0.85, 0.6+density*3)
	default:
		return safecheck.RiskLow, min(0.75, 0.5+density*4)
	}
}
