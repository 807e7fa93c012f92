package service

import (
	"fmt"
	"math"

	"github.com/rehab-triage-engine/internal/domain"
)

// noResponses is the interpretation returned for zero-length input. The
// formulas are total: out-of-range responses are clamped, never rejected.
const noResponses = "No responses"

// ScoreResult is the outcome of applying one standardized formula.
type ScoreResult struct {
	Score          float64
	Interpretation string
}

// Score dispatches raw responses to the formula for a scoring type.
func Score(scoringType domain.ScoringType, responses []float64) (ScoreResult, error) {
	switch scoringType {
	case domain.ScoringODI:
		return ScoreODI(responses), nil
	case domain.ScoringKOOS:
		return ScoreKOOS(responses), nil
	case domain.ScoringQuickDASH:
		return ScoreQuickDASH(responses), nil
	case domain.ScoringNPRS:
		if len(responses) == 0 {
			return ScoreResult{Score: 0, Interpretation: noResponses}, nil
		}
		return ScoreNPRS(responses[0]), nil
	case domain.ScoringGROC:
		if len(responses) == 0 {
			return ScoreResult{Score: 0, Interpretation: noResponses}, nil
		}
		return ScoreGROC(responses[0]), nil
	default:
		return ScoreResult{}, fmt.Errorf("scoring responses: %w", domain.ErrInvalidScoringType)
	}
}

// ScoreODI computes the Oswestry Disability Index: each item in [0,5],
// normalized to 0-100 where higher means more disability.
func ScoreODI(responses []float64) ScoreResult {
	if len(responses) == 0 {
		return ScoreResult{Score: 0, Interpretation: noResponses}
	}

	var sum float64
	for _, r := range responses {
		sum += clamp(r, 0, 5)
	}
	score := round1(sum / (5 * float64(len(responses))) * 100)

	var interpretation string
	switch {
	case score <= 20:
		interpretation = "Minimal disability"
	case score <= 40:
		interpretation = "Moderate disability"
	case score <= 60:
		interpretation = "Severe disability"
	case score <= 80:
		interpretation = "Crippled"
	default:
		interpretation = "Bed-bound or exaggerating"
	}
	return ScoreResult{Score: score, Interpretation: interpretation}
}

// ScoreKOOS computes the Knee injury and Osteoarthritis Outcome Score:
// each item in [0,4] with 0 best; normalized so higher means better
// function. Empty input scores 100, reflecting "no problems".
func ScoreKOOS(responses []float64) ScoreResult {
	if len(responses) == 0 {
		return ScoreResult{Score: 100, Interpretation: noResponses}
	}

	var sum float64
	for _, r := range responses {
		sum += clamp(r, 0, 4)
	}
	score := round1(100 - sum/(4*float64(len(responses)))*100)

	var interpretation string
	switch {
	case score >= 90:
		interpretation = "Normal function"
	case score >= 75:
		interpretation = "Near-normal function"
	case score >= 50:
		interpretation = "Moderate impairment"
	case score >= 25:
		interpretation = "Severe impairment"
	default:
		interpretation = "Extreme impairment"
	}
	return ScoreResult{Score: score, Interpretation: interpretation}
}

// ScoreQuickDASH computes the shortened Disabilities of the Arm, Shoulder
// and Hand score: each item in [1,5], normalized to 0-100 where higher
// means more disability.
func ScoreQuickDASH(responses []float64) ScoreResult {
	if len(responses) == 0 {
		return ScoreResult{Score: 0, Interpretation: noResponses}
	}

	var sum float64
	for _, r := range responses {
		sum += clamp(r, 1, 5)
	}
	mean := sum / float64(len(responses))
	score := round1((mean - 1) * 25)

	var interpretation string
	switch {
	case score <= 20:
		interpretation = "Minimal disability"
	case score <= 40:
		interpretation = "Mild disability"
	case score <= 60:
		interpretation = "Moderate disability"
	case score <= 80:
		interpretation = "Severe disability"
	default:
		interpretation = "Extreme disability"
	}
	return ScoreResult{Score: score, Interpretation: interpretation}
}

// ScoreNPRS interprets a single Numeric Pain Rating Scale value, clamped
// to [0,10].
func ScoreNPRS(value float64) ScoreResult {
	score := clamp(value, 0, 10)

	var interpretation string
	switch {
	case score == 0:
		interpretation = "No pain"
	case score <= 3:
		interpretation = "Mild pain"
	case score <= 6:
		interpretation = "Moderate pain"
	case score <= 9:
		interpretation = "Severe pain"
	default:
		interpretation = "Worst possible pain"
	}
	return ScoreResult{Score: score, Interpretation: interpretation}
}

// ScoreGROC interprets a single Global Rating of Change value, clamped to
// [-7,7].
func ScoreGROC(value float64) ScoreResult {
	score := clamp(value, -7, 7)

	var interpretation string
	switch {
	case score <= -5:
		interpretation = "Very much worse"
	case score <= -3:
		interpretation = "Much worse"
	case score <= -1:
		interpretation = "Somewhat worse"
	case score == 0:
		interpretation = "No change"
	case score <= 2:
		interpretation = "Somewhat better"
	case score <= 4:
		interpretation = "Much better"
	default:
		interpretation = "Very much better"
	}
	return ScoreResult{Score: score, Interpretation: interpretation}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
