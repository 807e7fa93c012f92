package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
)

// QuestionnaireRepository reads outcome questionnaire definitions.
type QuestionnaireRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewQuestionnaireRepository creates a new questionnaire repository
func NewQuestionnaireRepository(db *pgxpool.Pool, logger *logrus.Logger) *QuestionnaireRepository {
	return &QuestionnaireRepository{
		db:  db,
		log: logger,
	}
}

// GetQuestionnaireByKey retrieves a questionnaire definition by its key
// (e.g. "odi", "koos").
func (r *QuestionnaireRepository) GetQuestionnaireByKey(ctx context.Context, key string) (*domain.Questionnaire, error) {
	query := `
		SELECT id, key, name, scoring_type, mcid
		FROM questionnaires
		WHERE key = $1`

	var q domain.Questionnaire
	err := r.db.QueryRow(ctx, query, key).Scan(
		&q.ID,
		&q.Key,
		&q.Name,
		&q.ScoringType,
		&q.MCID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("questionnaire %q not found: %w", key, domain.ErrNotFound)
		}
		r.log.WithError(err).WithField("key", key).Error("Failed to get questionnaire")
		return nil, fmt.Errorf("getting questionnaire: %w", domain.ErrCatalogUnavailable)
	}

	return &q, nil
}

// GetItemsForQuestionnaire retrieves a questionnaire's items in display
// order.
func (r *QuestionnaireRepository) GetItemsForQuestionnaire(ctx context.Context, questionnaireID string) ([]domain.QuestionnaireItem, error) {
	query := `
		SELECT id, questionnaire_id, text, response_type, display_order
		FROM questionnaire_items
		WHERE questionnaire_id = $1
		ORDER BY display_order`

	rows, err := r.db.Query(ctx, query, questionnaireID)
	if err != nil {
		r.log.WithError(err).WithField("questionnaire_id", questionnaireID).Error("Failed to get questionnaire items")
		return nil, fmt.Errorf("getting questionnaire items: %w", domain.ErrCatalogUnavailable)
	}
	defer rows.Close()

	var items []domain.QuestionnaireItem
	for rows.Next() {
		var item domain.QuestionnaireItem
		err := rows.Scan(
			&item.ID,
			&item.QuestionnaireID,
			&item.Text,
			&item.ResponseType,
			&item.DisplayOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning questionnaire item row: %w", domain.ErrCatalogUnavailable)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading questionnaire item rows: %w", domain.ErrCatalogUnavailable)
	}

	return items, nil
}
