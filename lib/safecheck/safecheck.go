package safecheck

import (
	"fmt"
	"strings"
)

// RiskLevel is a discrete severity label assigned to a detection result.
type RiskLevel string

// risk levels, ordered from harmless to dangerous. RiskUnknown is used when
// a detection path can't produce a judgment, e.g. a failed remote call.
const (
	RiskSafe    RiskLevel = "safe"
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// Method identifies which detection path produced a result.
type Method string

// detection methods
const (
	MethodPattern Method = "pattern_matching"
	MethodAPI     Method = "api"
	MethodDual    Method = "dual_detection"
	MethodUnknown Method = "unknown"
)

// Result is a final verdict for a single text, immutable after construction.
type Result struct {
	IsSafe       bool           `json:"is_safe"`       // true if no disallowed content found
	MatchedTerms []string       `json:"matched_terms"` // terms found by local matching, empty for remote-only verdicts
	RiskLevel    RiskLevel      `json:"risk_level"`    // severity of the verdict
	Confidence   float64        `json:"confidence"`    // certainty of the verdict, 0.0 - 1.0
	Details      map[string]any `json:"details,omitempty"`
}

func (r *Result) String() string {
	safeOrNot := "unsafe"
	if r.IsSafe {
		safeOrNot = "safe"
	}
	if len(r.MatchedTerms) == 0 {
		return fmt.Sprintf("%s, risk:%s, confidence:%0.2f", safeOrNot, r.RiskLevel, r.Confidence)
	}
	return fmt.Sprintf("%s, risk:%s, confidence:%0.2f, terms:[%s]",
		safeOrNot, r.RiskLevel, r.Confidence, strings.Join(r.MatchedTerms, ", "))
}

// Method returns the detection method recorded in result details,
// MethodUnknown if not set.
func (r *Result) Method() Method {
	if r.Details == nil {
		return MethodUnknown
	}
	switch v := r.Details["detection_method"].(type) {
	case Method:
		return v
	case string:
		return Method(v)
	}
	return MethodUnknown
}

// RemoteVerdict is a verdict produced by a remote moderation backend.
// It never carries matched terms, the remote service doesn't return them.
type RemoteVerdict struct {
	IsSafe     bool           `json:"is_safe"`
	RiskLevel  RiskLevel      `json:"risk_level"`
	Confidence float64        `json:"confidence"`
	Details    map[string]any `json:"details,omitempty"`
}

func (v *RemoteVerdict) String() string {
	safeOrNot := "unsafe"
	if v.IsSafe {
		safeOrNot = "safe"
	}
	return fmt.Sprintf("%s, risk:%s, confidence:%0.2f", safeOrNot, v.RiskLevel, v.Confidence)
}
