package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
)

// RecommendationRepository persists finished recommendation sets. It
// decides only how results are stored, never what they contain.
type RecommendationRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(db *pgxpool.Pool, logger *logrus.Logger) *RecommendationRepository {
	return &RecommendationRepository{
		db:  db,
		log: logger,
	}
}

// SaveResult stores one triage evaluation with its full recommendation
// payload.
func (r *RecommendationRepository) SaveResult(ctx context.Context, result *domain.RecommendationResult) error {
	payload, err := json.Marshal(result.Recommendations)
	if err != nil {
		return fmt.Errorf("encoding recommendations: %w", err)
	}

	query := `
		INSERT INTO recommendations (
			id, assessment_id, risk_level, source, routine_name, match_score,
			protocol_key, phase_number, payload, generated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.db.Exec(ctx, query,
		uuid.New().String(),
		result.AssessmentID,
		result.RiskLevel.String(),
		result.Source,
		result.RoutineName,
		result.MatchScore,
		result.ProtocolKey,
		result.PhaseNumber,
		payload,
		result.GeneratedAt,
	)
	if err != nil {
		r.log.WithError(err).WithField("assessment_id", result.AssessmentID).Error("Failed to save recommendation result")
		return fmt.Errorf("saving recommendation result: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id":   result.AssessmentID,
		"risk_level":      result.RiskLevel.String(),
		"source":          result.Source,
		"recommendations": len(result.Recommendations),
	}).Info("Recommendation result saved")

	return nil
}
