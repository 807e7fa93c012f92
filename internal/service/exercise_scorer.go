package service

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
	"github.com/rehab-triage-engine/internal/vocabulary"
)

const (
	bodyPartPoints     = 40
	conditionPoints    = 15
	keywordPoints      = 5
	keywordCap         = 20
	beginnerBonus      = 10
	featuredBonus      = 5
	exerciseThreshold  = 30
	maxRecommendations = 8
	minRecommendations = 3
	widenedListSize    = 5
)

// ScoredExercise pairs a catalog exercise with its relevance score for
// one assessment.
type ScoredExercise struct {
	Exercise *domain.ExerciseRecord
	Score    int
	Reasons  []string
}

// ExerciseScorer is the fallback recommendation path: it scores individual
// catalog exercises against an assessment's search terms when no curated
// routine matches. Ordering is a pure function of its input.
type ExerciseScorer struct {
	logger *logrus.Logger
	vocab  *vocabulary.Vocabulary
}

// NewExerciseScorer creates a new exercise scorer
func NewExerciseScorer(logger *logrus.Logger, vocab *vocabulary.Vocabulary) *ExerciseScorer {
	return &ExerciseScorer{logger: logger, vocab: vocab}
}

// Score ranks the exercise catalog for an assessment. An empty catalog
// yields an empty list, never an error.
func (s *ExerciseScorer) Score(assessment *domain.AssessmentRecord, catalog []domain.ExerciseRecord) []ScoredExercise {
	terms := s.vocab.SearchTerms(vocabulary.Assessment{
		PainLocation:       assessment.PainLocation,
		PainType:           assessment.PainType,
		PainDuration:       assessment.PainDuration,
		AdditionalSymptoms: assessment.AdditionalSymptoms,
	})

	scored := make([]ScoredExercise, 0, len(catalog))
	for i := range catalog {
		exercise := &catalog[i]
		entry := s.scoreExercise(assessment, exercise, terms)
		if s.filteredByDifficulty(assessment.PainLevel, exercise.Difficulty, entry.Score) {
			continue
		}
		scored = append(scored, entry)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Exercise.DisplayOrder != scored[j].Exercise.DisplayOrder {
			return scored[i].Exercise.DisplayOrder < scored[j].Exercise.DisplayOrder
		}
		return scored[i].Exercise.ID < scored[j].Exercise.ID
	})

	qualified := make([]ScoredExercise, 0, maxRecommendations)
	for _, entry := range scored {
		if entry.Score >= exerciseThreshold {
			qualified = append(qualified, entry)
			if len(qualified) == maxRecommendations {
				break
			}
		}
	}

	// Too few above threshold: widen to the best of the full ranked list
	// so the patient still receives a usable program.
	if len(qualified) < minRecommendations {
		limit := widenedListSize
		if limit > len(scored) {
			limit = len(scored)
		}
		qualified = scored[:limit]
	}

	s.logger.WithFields(logrus.Fields{
		"assessment_id": assessment.ID,
		"catalog_size":  len(catalog),
		"returned":      len(qualified),
	}).Debug("Exercise catalog scored")

	return qualified
}

func (s *ExerciseScorer) scoreExercise(assessment *domain.AssessmentRecord, exercise *domain.ExerciseRecord, terms []string) ScoredExercise {
	score := 0
	var reasons []string
	location := strings.ToLower(assessment.PainLocation)

	for _, part := range exercise.BodyParts {
		p := strings.ToLower(part)
		if location != "" && (strings.Contains(p, location) || strings.Contains(location, p)) {
			score += bodyPartPoints
			reasons = append(reasons, "targets "+part)
			break
		}
	}

	for _, condition := range exercise.Conditions {
		matched := false
		for _, term := range terms {
			if s.vocab.SymptomMatch(condition, term) {
				score += conditionPoints
				reasons = append(reasons, "addresses "+condition)
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}

	keywordScore := 0
	for _, keyword := range exercise.Keywords {
		for _, term := range terms {
			if s.vocab.SymptomMatch(keyword, term) {
				keywordScore += keywordPoints
				break
			}
		}
		if keywordScore >= keywordCap {
			keywordScore = keywordCap
			break
		}
	}
	score += keywordScore

	if assessment.PainLevel >= 6 && exercise.Difficulty == domain.DifficultyBeginner {
		score += beginnerBonus
		reasons = append(reasons, "gentle option for current pain level")
	}

	if exercise.Featured {
		score += featuredBonus
	}

	// Stable tiebreaker favoring catalog-curated ordering.
	if exercise.DisplayOrder < 10 {
		score += 10 - exercise.DisplayOrder
	}

	return ScoredExercise{Exercise: exercise, Score: score, Reasons: reasons}
}

// filteredByDifficulty removes exercises too advanced for the reported
// pain level.
func (s *ExerciseScorer) filteredByDifficulty(painLevel int, difficulty domain.Difficulty, score int) bool {
	if difficulty != domain.DifficultyAdvanced {
		return false
	}
	if painLevel >= 7 {
		return true
	}
	if painLevel >= 5 && score <= 70 {
		return true
	}
	return false
}
