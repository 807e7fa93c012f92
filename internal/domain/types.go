// Package domain contains core business entities and types for patient
// symptom triage, exercise recommendation, and standardized outcome-measure
// scoring (ODI, KOOS, QuickDASH, NPRS, GROC).
//
// All decision logic operating on these types is deterministic rule
// evaluation and arithmetic; no scoring path depends on free-text parsing
// or model output.
package domain

import (
	"errors"
	"fmt"
)

// RiskLevel represents the triage risk tier assigned to an assessment.
// The tiers form a total order (low < moderate < high < critical) used for
// presentation; no arithmetic is performed on them.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// SurgeryStatus represents the patient's self-reported surgical history
// for the assessed region.
type SurgeryStatus string

const (
	SurgeryNone    SurgeryStatus = "no_surgery"
	SurgeryPostOp  SurgeryStatus = "post_op"
	SurgeryNotSure SurgeryStatus = "not_sure"
)

// Difficulty represents the difficulty tier of a catalog exercise.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// ScoringType identifies which standardized outcome formula a
// questionnaire is scored with.
type ScoringType string

const (
	ScoringODI       ScoringType = "ODI"
	ScoringKOOS      ScoringType = "KOOS"
	ScoringQuickDASH ScoringType = "QUICKDASH"
	ScoringNPRS      ScoringType = "NPRS"
	ScoringGROC      ScoringType = "GROC"
)

// ResponseType identifies the response scale of a questionnaire item.
type ResponseType string

const (
	ResponseLikert     ResponseType = "likert"
	ResponseScale0To10 ResponseType = "scale_0_10"
	ResponseScaleGROC  ResponseType = "scale_neg7_7"
)

// AssessmentContext tags when an outcome assessment was collected relative
// to the episode of care.
type AssessmentContext string

const (
	ContextBaseline AssessmentContext = "baseline"
	ContextFollowup AssessmentContext = "followup"
	ContextFinal    AssessmentContext = "final"
)

// Sentinel errors for catalog access and data validation.
var (
	// ErrNotFound signals a catalog row that does not exist. Callers treat
	// this as a recoverable "not configured" state, never as a failure.
	ErrNotFound = errors.New("not found")

	// ErrCatalogUnavailable signals that the catalog could not be read at
	// all. This is the only condition the engine propagates to the caller:
	// it must not fabricate exercises from an unreadable catalog.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	ErrInvalidRiskLevel     = errors.New("invalid risk level")
	ErrInvalidSurgeryStatus = errors.New("invalid surgery status")
	ErrInvalidScoringType   = errors.New("invalid scoring type")
	ErrInvalidPainLevel     = errors.New("pain level must be between 0 and 10")
)

// IsValid validates that the RiskLevel is one of the four triage tiers.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	return string(r)
}

// RequiresReferral reports whether the tier withholds exercise
// recommendations in favor of an immediate-care referral.
func (r RiskLevel) RequiresReferral() bool {
	return r == RiskCritical
}

// LogFields returns structured logging fields for audit trails.
func (r RiskLevel) LogFields() map[string]any {
	return map[string]any{
		"risk_level":         string(r),
		"is_valid":           r.IsValid(),
		"requires_referral":  r.RequiresReferral(),
		"clinical_guidance":  r.ClinicalGuidance(),
	}
}

// ClinicalGuidance returns a human-readable description of the tier for
// reporting and patient communication.
func (r RiskLevel) ClinicalGuidance() string {
	switch r {
	case RiskCritical:
		return "Critical - Seek immediate medical care; exercise program withheld"
	case RiskHigh:
		return "High - Clinical evaluation recommended before progressing"
	case RiskModerate:
		return "Moderate - Proceed with caution and monitor symptoms"
	case RiskLow:
		return "Low - Appropriate for guided self-management"
	default:
		return "Unknown risk level"
	}
}

// IsValid validates the surgery status.
func (s SurgeryStatus) IsValid() bool {
	switch s {
	case SurgeryNone, SurgeryPostOp, SurgeryNotSure:
		return true
	default:
		return false
	}
}

// String returns the string representation of the surgery status.
func (s SurgeryStatus) String() string {
	return string(s)
}

// IsValid validates the exercise difficulty tier.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// IsValid validates the questionnaire scoring type.
func (s ScoringType) IsValid() bool {
	switch s {
	case ScoringODI, ScoringKOOS, ScoringQuickDASH, ScoringNPRS, ScoringGROC:
		return true
	default:
		return false
	}
}

// String returns the string representation of the scoring type.
func (s ScoringType) String() string {
	return string(s)
}

// IsValid validates the item response type.
func (rt ResponseType) IsValid() bool {
	switch rt {
	case ResponseLikert, ResponseScale0To10, ResponseScaleGROC:
		return true
	default:
		return false
	}
}

// IsValid validates the assessment context tag.
func (c AssessmentContext) IsValid() bool {
	switch c {
	case ContextBaseline, ContextFollowup, ContextFinal:
		return true
	default:
		return false
	}
}

// String returns the string representation of the assessment context.
func (c AssessmentContext) String() string {
	return string(c)
}

// ParseRiskLevel converts a raw string to a RiskLevel, failing on unknown
// values so invalid tiers never enter clinical presentation.
func ParseRiskLevel(raw string) (RiskLevel, error) {
	r := RiskLevel(raw)
	if !r.IsValid() {
		return "", fmt.Errorf("parsing risk level %q: %w", raw, ErrInvalidRiskLevel)
	}
	return r, nil
}
