package service

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
)

const (
	// defaultMCID applies when a questionnaire does not define its own
	// minimal clinically important difference.
	defaultMCID = 10.0

	// nprsMCID is the fixed pain-scale MCID.
	nprsMCID = 2.0
)

// OutcomeSummaryCalculator compares a baseline and the most recent outcome
// assessment for a condition, computing change and a clinically-meaningful
// flag against the questionnaire's MCID.
type OutcomeSummaryCalculator struct {
	logger *logrus.Logger
}

// NewOutcomeSummaryCalculator creates a new outcome summary calculator
func NewOutcomeSummaryCalculator(logger *logrus.Logger) *OutcomeSummaryCalculator {
	return &OutcomeSummaryCalculator{logger: logger}
}

// Summarize builds the change summary for one condition. Function change
// comes from the questionnaire pair, pain change from the NPRS pair;
// missing data on either side leaves the corresponding change field nil,
// never an error. The sign convention follows the formula used: for
// ODI/QuickDASH lower is better, for KOOS higher is better.
func (c *OutcomeSummaryCalculator) Summarize(
	condition string,
	questionnaire *domain.Questionnaire,
	baseline, latest *domain.OutcomeAssessment,
	painBaseline, painLatest *domain.OutcomeAssessment,
) *domain.OutcomeSummary {
	summary := &domain.OutcomeSummary{
		Condition: condition,
		MCIDUsed:  defaultMCID,
	}
	if questionnaire != nil && questionnaire.MCID > 0 {
		summary.MCIDUsed = questionnaire.MCID
	}

	if baseline != nil {
		score := baseline.Score
		summary.BaselineScore = &score
	}
	if latest != nil {
		score := latest.Score
		summary.LatestScore = &score
	}
	if baseline != nil && latest != nil {
		change := latest.Score - baseline.Score
		summary.FunctionChange = &change
	}
	if painBaseline != nil && painLatest != nil {
		change := painLatest.Score - painBaseline.Score
		summary.PainChange = &change
	}

	if summary.FunctionChange != nil && math.Abs(*summary.FunctionChange) >= summary.MCIDUsed {
		summary.IsMeaningful = true
	}
	if summary.PainChange != nil && math.Abs(*summary.PainChange) >= nprsMCID {
		summary.IsMeaningful = true
	}

	c.logger.WithFields(logrus.Fields{
		"condition":     condition,
		"mcid":          summary.MCIDUsed,
		"is_meaningful": summary.IsMeaningful,
	}).Debug("Outcome summary computed")

	return summary
}
