package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
	"github.com/rehab-triage-engine/internal/vocabulary"
)

const (
	targetPhrasePoints = 15
	locationBonus      = 25
	painTypeBonus      = 10
	routineThreshold   = 30
)

// RoutineMatch is the outcome of scoring the routine catalog against one
// assessment.
type RoutineMatch struct {
	Routine *domain.RoutineRecord
	Score   int
}

// RoutineMatcher scores curated routines against an assessment's derived
// search terms, applies exclusion criteria, and selects the best match
// above a fixed threshold.
type RoutineMatcher struct {
	logger *logrus.Logger
	vocab  *vocabulary.Vocabulary
}

// NewRoutineMatcher creates a new routine matcher
func NewRoutineMatcher(logger *logrus.Logger, vocab *vocabulary.Vocabulary) *RoutineMatcher {
	return &RoutineMatcher{logger: logger, vocab: vocab}
}

// Match returns the best-matching routine with its score, or nil when no
// routine scores at or above the threshold or the winner is excluded.
func (m *RoutineMatcher) Match(assessment *domain.AssessmentRecord, routines []domain.RoutineRecord) *RoutineMatch {
	terms := m.vocab.SearchTerms(vocabulary.Assessment{
		PainLocation:       assessment.PainLocation,
		PainType:           assessment.PainType,
		PainDuration:       assessment.PainDuration,
		AdditionalSymptoms: assessment.AdditionalSymptoms,
	})

	var best *RoutineMatch
	for i := range routines {
		routine := &routines[i]
		score := m.scoreRoutine(assessment, routine, terms)
		if best == nil || score > best.Score {
			best = &RoutineMatch{Routine: routine, Score: score}
		}
	}

	if best == nil || best.Score < routineThreshold {
		m.logger.WithFields(logrus.Fields{
			"assessment_id": assessment.ID,
			"routines":      len(routines),
		}).Debug("No routine met the match threshold")
		return nil
	}

	if reason := m.excluded(assessment, best.Routine); reason != "" {
		m.logger.WithFields(logrus.Fields{
			"assessment_id": assessment.ID,
			"routine":       best.Routine.Name,
			"score":         best.Score,
			"exclusion":     reason,
		}).Info("Best-scoring routine rejected by exclusion criteria")
		return nil
	}

	m.logger.WithFields(logrus.Fields{
		"assessment_id": assessment.ID,
		"routine":       best.Routine.Name,
		"score":         best.Score,
	}).Info("Routine matched")

	return best
}

func (m *RoutineMatcher) scoreRoutine(assessment *domain.AssessmentRecord, routine *domain.RoutineRecord, terms []string) int {
	score := 0

	// Each distinct target phrase counts once, however many terms hit it.
	for _, phrase := range routine.TargetSymptoms {
		for _, term := range terms {
			if m.vocab.SymptomMatch(phrase, term) {
				score += targetPhrasePoints
				break
			}
		}
	}

	routineText := strings.ToLower(routine.Name + " " + routine.Description)
	location := strings.ToLower(assessment.PainLocation)
	if location != "" && strings.Contains(routineText, location) {
		score += locationBonus
	}

	painType := strings.ToLower(assessment.PainType)
	if painType != "" {
		if strings.Contains(routineText, painType) {
			score += painTypeBonus
		} else {
			for _, phrase := range routine.TargetSymptoms {
				if strings.Contains(strings.ToLower(phrase), painType) {
					score += painTypeBonus
					break
				}
			}
		}
	}

	return score
}

// excluded applies the exclusion gate and returns a short reason when the
// routine must be rejected despite its score.
func (m *RoutineMatcher) excluded(assessment *domain.AssessmentRecord, routine *domain.RoutineRecord) string {
	text := strings.ToLower(assessment.CombinedText())

	for _, criterion := range routine.ExclusionCriteria {
		c := strings.ToLower(criterion)

		if containsAny(c, "trauma", "fracture", "fall") &&
			containsAny(text, "fall", "accident", "injury", "hit") {
			return "trauma history"
		}

		if containsAny(c, "neurological", "nerve", "radicul") &&
			containsAny(text, "numbness", "tingling", "weakness") {
			return "neurological involvement"
		}

		if first := firstWord(c); first != "" && strings.Contains(text, first) {
			return "exclusion phrase present: " + first
		}
	}

	return ""
}

// Expand converts a matched routine's ordered items into recommendations.
// Relevance is 100 minus the sequence order so earlier items rank higher;
// the routine disclaimer, when present, is prepended to the first item's
// safety notes.
func (m *RoutineMatcher) Expand(match *RoutineMatch, items []domain.RoutineItem) []domain.Recommendation {
	recommendations := make([]domain.Recommendation, 0, len(items))
	total := len(items)

	for i, item := range items {
		if item.Exercise == nil {
			continue
		}

		reasoning := fmt.Sprintf("Part of the %s routine", match.Routine.Name)
		if item.PhaseLabel != "" {
			reasoning += fmt.Sprintf(" (%s)", item.PhaseLabel)
		}
		reasoning += fmt.Sprintf(", exercise %d of %d", i+1, total)

		notes := make([]string, 0, len(item.PhaseNotes)+1)
		if i == 0 && match.Routine.Disclaimer != "" {
			notes = append(notes, match.Routine.Disclaimer)
		}
		notes = append(notes, item.PhaseNotes...)

		recommendations = append(recommendations, domain.Recommendation{
			Exercise:       item.Exercise,
			Dosage:         item.Dosage.Merge(item.Exercise.DefaultDosage),
			RelevanceScore: 100 - item.SequenceOrder,
			Reasoning:      reasoning,
			SafetyNotes:    notes,
		})
	}

	return recommendations
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
