package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
)

// severeSymptoms is the fixed symptom set whose presence holds a post-op
// patient at phase 2 or earlier.
var severeSymptoms = []string{
	"swelling",
	"numbness or tingling",
	"muscle weakness",
}

// gradeBearingSurgeryType is the one surgery type whose procedure modifier
// (Grade 1-3) participates in the protocol key.
const gradeBearingSurgeryType = "ligament_repair"

// ProtocolPhaseResolver derives a rehabilitation protocol key and phase
// for post-operative patients. The nominal phase comes from time since
// surgery; safety gates may only move the phase earlier, never later.
type ProtocolPhaseResolver struct {
	logger *logrus.Logger
}

// NewProtocolPhaseResolver creates a new protocol phase resolver
func NewProtocolPhaseResolver(logger *logrus.Logger) *ProtocolPhaseResolver {
	return &ProtocolPhaseResolver{logger: logger}
}

// Resolve populates the derived ProtocolKey and PhaseNumber on the
// post-op record. It is a no-op for non-post-op submissions.
func (r *ProtocolPhaseResolver) Resolve(assessment *domain.AssessmentRecord, postOp *domain.PostOpRecord) {
	if !postOp.IsPostOp() {
		return
	}

	postOp.ProtocolKey = r.ProtocolKey(postOp)
	nominal := r.NominalPhase(postOp.WeeksSinceSurgery)
	resolved := r.applySafetyGates(assessment, postOp, nominal)
	postOp.PhaseNumber = resolved

	r.logger.WithFields(logrus.Fields{
		"assessment_id": assessment.ID,
		"protocol_key":  postOp.ProtocolKey,
		"nominal_phase": nominal,
		"phase":         resolved,
	}).Info("Protocol phase resolved")
}

// ProtocolKey builds the catalog lookup key:
// lowercase region (slashes replaced with underscores), the surgery type,
// and a grade suffix only for the modifier-bearing surgery type.
func (r *ProtocolPhaseResolver) ProtocolKey(postOp *domain.PostOpRecord) string {
	region := strings.ToLower(strings.ReplaceAll(postOp.PostOpRegion, "/", "_"))
	region = strings.ReplaceAll(region, " ", "_")
	surgeryType := strings.ToLower(strings.TrimSpace(postOp.SurgeryType))

	key := region + "_" + surgeryType
	if surgeryType == gradeBearingSurgeryType {
		if grade := parseGrade(postOp.ProcedureModifier); grade != "" {
			key += "_" + grade
		}
	}
	return key
}

// NominalPhase maps the bucketed weeks-since-surgery value to a phase.
// Unset or unrecognized buckets resolve conservatively to phase 1.
func (r *ProtocolPhaseResolver) NominalPhase(weeksSinceSurgery string) int {
	switch strings.TrimSpace(weeksSinceSurgery) {
	case "0-2 weeks":
		return 1
	case "2-6 weeks":
		return 2
	case "6-12 weeks":
		return 3
	case "12+ weeks":
		return 4
	default:
		return 1
	}
}

// applySafetyGates clamps the phase downward. Each gate is evaluated
// independently; the final phase is the minimum survivor.
func (r *ProtocolPhaseResolver) applySafetyGates(assessment *domain.AssessmentRecord, postOp *domain.PostOpRecord, phase int) int {
	if assessment.PainLevel >= 7 {
		phase = clampPhase(phase, 1)
	}
	if hasSevereSymptom(assessment.AdditionalSymptoms) {
		phase = clampPhase(phase, 2)
	}
	if strings.Contains(strings.ToLower(postOp.WeightBearingStatus), "non-weight-bearing") {
		phase = clampPhase(phase, 2)
	}
	return phase
}

func clampPhase(phase, ceiling int) int {
	if phase > ceiling {
		return ceiling
	}
	return phase
}

func hasSevereSymptom(symptoms []string) bool {
	for _, symptom := range symptoms {
		s := strings.ToLower(symptom)
		for _, severe := range severeSymptoms {
			if strings.Contains(s, severe) || strings.Contains(severe, s) {
				return true
			}
		}
	}
	return false
}

// parseGrade extracts a grade suffix from a modifier string containing
// "Grade 1", "Grade 2", or "Grade 3".
func parseGrade(modifier string) string {
	m := strings.ToLower(modifier)
	switch {
	case strings.Contains(m, "grade 1"):
		return "grade1"
	case strings.Contains(m, "grade 2"):
		return "grade2"
	case strings.Contains(m, "grade 3"):
		return "grade3"
	default:
		return ""
	}
}
