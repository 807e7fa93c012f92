package outcomes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/rehab-triage-engine/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL outcome store from a
// connection string.
func NewPostgresStore(connString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return store, nil
}

// NewPostgresStoreWithDB wraps an existing connection, primarily for
// tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS outcome_assessments (
		id TEXT PRIMARY KEY,
		questionnaire_key TEXT NOT NULL,
		condition TEXT NOT NULL DEFAULT '',
		context TEXT NOT NULL,
		responses JSONB NOT NULL DEFAULT '[]',
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		interpretation TEXT NOT NULL DEFAULT '',
		completed_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcome_condition ON outcome_assessments(condition, questionnaire_key);
	CREATE INDEX IF NOT EXISTS idx_outcome_completed_at ON outcome_assessments(completed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save stores an outcome assessment, updating the row when the ID
// already exists.
func (s *PostgresStore) Save(ctx context.Context, assessment *domain.OutcomeAssessment) error {
	if err := assessment.Validate(); err != nil {
		return err
	}
	if assessment.ID == "" {
		assessment.ID = uuid.New().String()
	}
	if assessment.CompletedAt.IsZero() {
		assessment.CompletedAt = time.Now().UTC()
	}

	responses, err := json.Marshal(assessment.Responses)
	if err != nil {
		return fmt.Errorf("encoding responses: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcome_assessments (
			id, questionnaire_key, condition, context, responses, score,
			interpretation, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			questionnaire_key = EXCLUDED.questionnaire_key,
			condition = EXCLUDED.condition,
			context = EXCLUDED.context,
			responses = EXCLUDED.responses,
			score = EXCLUDED.score,
			interpretation = EXCLUDED.interpretation,
			completed_at = EXCLUDED.completed_at`,
		assessment.ID, assessment.QuestionnaireKey, assessment.Condition,
		assessment.Context.String(), responses, assessment.Score,
		assessment.Interpretation, assessment.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("saving outcome assessment: %w", err)
	}
	return nil
}

// GetBaseline retrieves the earliest baseline assessment for a condition
// and questionnaire.
func (s *PostgresStore) GetBaseline(ctx context.Context, condition, questionnaireKey string) (*domain.OutcomeAssessment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, questionnaire_key, condition, context, responses, score,
			   interpretation, completed_at
		FROM outcome_assessments
		WHERE condition = $1 AND questionnaire_key = $2 AND context = $3
		ORDER BY completed_at ASC
		LIMIT 1`,
		condition, questionnaireKey, domain.ContextBaseline.String(),
	)

	assessment, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no baseline for %q/%q: %w", condition, questionnaireKey, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting baseline: %w", err)
	}
	return assessment, nil
}

// GetLatest retrieves the most recent followup or final assessment for a
// condition and questionnaire.
func (s *PostgresStore) GetLatest(ctx context.Context, condition, questionnaireKey string) (*domain.OutcomeAssessment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, questionnaire_key, condition, context, responses, score,
			   interpretation, completed_at
		FROM outcome_assessments
		WHERE condition = $1 AND questionnaire_key = $2 AND context IN ($3, $4)
		ORDER BY completed_at DESC
		LIMIT 1`,
		condition, questionnaireKey,
		domain.ContextFollowup.String(), domain.ContextFinal.String(),
	)

	assessment, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no followup for %q/%q: %w", condition, questionnaireKey, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest: %w", err)
	}
	return assessment, nil
}

// List returns assessments newest-first with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.OutcomeAssessment, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, questionnaire_key, condition, context, responses, score,
			   interpretation, completed_at
		FROM outcome_assessments
		ORDER BY completed_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing outcome assessments: %w", err)
	}
	defer rows.Close()

	var assessments []*domain.OutcomeAssessment
	for rows.Next() {
		assessment, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning outcome assessment: %w", err)
		}
		assessments = append(assessments, assessment)
	}
	return assessments, rows.Err()
}

// Count returns the total number of stored assessments.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outcome_assessments").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting outcome assessments: %w", err)
	}
	return count, nil
}

// ExportJSON writes every stored assessment to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	assessments, err := s.List(ctx, maxExportRows, 0)
	if err != nil {
		return err
	}

	export := Export{
		Version:     "1",
		ExportedAt:  time.Now().UTC(),
		Count:       len(assessments),
		Assessments: assessments,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON reads assessments from a JSON reader, skipping IDs that
// already exist.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("decoding import: %w", err)
	}

	imported, skipped := 0, 0
	for _, assessment := range export.Assessments {
		var existing string
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM outcome_assessments WHERE id = $1", assessment.ID,
		).Scan(&existing)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return imported, skipped, fmt.Errorf("checking existing assessment: %w", err)
		}
		if err := s.Save(ctx, assessment); err != nil {
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
