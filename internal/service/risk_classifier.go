package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
)

// concerningSymptoms is the canonical symptom set that, combined with
// severe pain, escalates an assessment to high risk. One fixed list is
// used everywhere in the engine.
var concerningSymptoms = []string{
	"numbness or tingling",
	"muscle weakness",
	"bilateral leg weakness",
}

// RiskClassifier maps an assessment record to a triage risk tier using
// red flags, pain level, symptom set, and duration. Rules are evaluated
// top-down; the first match wins and nothing overrides it.
type RiskClassifier struct {
	logger *logrus.Logger
}

// NewRiskClassifier creates a new risk classifier
func NewRiskClassifier(logger *logrus.Logger) *RiskClassifier {
	return &RiskClassifier{logger: logger}
}

// Classify returns the risk tier for an assessment. Red-flag detection is
// a first-class terminal outcome, not an error: callers of a critical
// result withhold exercise recommendations and present a referral.
func (r *RiskClassifier) Classify(assessment *domain.AssessmentRecord) domain.RiskLevel {
	level := r.classify(assessment)

	r.logger.WithFields(logrus.Fields{
		"assessment_id": assessment.ID,
		"pain_level":    assessment.PainLevel,
		"red_flags":     len(assessment.RedFlags),
		"risk_level":    level.String(),
	}).Info("Assessment risk classified")

	return level
}

func (r *RiskClassifier) classify(assessment *domain.AssessmentRecord) domain.RiskLevel {
	if len(assessment.RedFlags) > 0 {
		return domain.RiskCritical
	}

	if assessment.PainLevel >= 8 && hasConcerningSymptom(assessment.AdditionalSymptoms) {
		return domain.RiskHigh
	}

	if assessment.PainLevel >= 6 || strings.Contains(strings.ToLower(assessment.PainDuration), "month") {
		return domain.RiskModerate
	}

	return domain.RiskLow
}

func hasConcerningSymptom(symptoms []string) bool {
	for _, symptom := range symptoms {
		s := strings.ToLower(symptom)
		for _, concerning := range concerningSymptoms {
			if strings.Contains(s, concerning) || strings.Contains(concerning, s) {
				return true
			}
		}
	}
	return false
}
