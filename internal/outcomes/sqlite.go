package outcomes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rehab-triage-engine/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite outcome store, creating the
// database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS outcome_assessments (
		id TEXT PRIMARY KEY,
		questionnaire_key TEXT NOT NULL,
		condition TEXT NOT NULL DEFAULT '',
		context TEXT NOT NULL,
		responses TEXT NOT NULL DEFAULT '[]',
		score REAL NOT NULL DEFAULT 0,
		interpretation TEXT NOT NULL DEFAULT '',
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcome_condition ON outcome_assessments(condition, questionnaire_key);
	CREATE INDEX IF NOT EXISTS idx_outcome_completed_at ON outcome_assessments(completed_at);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(s scanner) (*domain.OutcomeAssessment, error) {
	a := &domain.OutcomeAssessment{}
	var responses string
	var assessmentContext string

	err := s.Scan(
		&a.ID, &a.QuestionnaireKey, &a.Condition, &assessmentContext,
		&responses, &a.Score, &a.Interpretation, &a.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Context = domain.AssessmentContext(assessmentContext)
	if err := json.Unmarshal([]byte(responses), &a.Responses); err != nil {
		return nil, fmt.Errorf("decoding responses: %w", err)
	}
	return a, nil
}

// Save stores an outcome assessment, replacing an existing row with the
// same ID.
func (s *SQLiteStore) Save(ctx context.Context, assessment *domain.OutcomeAssessment) error {
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			questionnaire_key = excluded.questionnaire_key,
			condition = excluded.condition,
			context = excluded.context,
			responses = excluded.responses,
			score = excluded.score,
			interpretation = excluded.interpretation,
			completed_at = excluded.completed_at`,
		assessment.ID, assessment.QuestionnaireKey, assessment.Condition,
		assessment.Context.String(), string(responses), assessment.Score,
		assessment.Interpretation, assessment.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("saving outcome assessment: %w", err)
	}
	return nil
}

// GetBaseline retrieves the earliest baseline assessment for a condition
// and questionnaire.
func (s *SQLiteStore) GetBaseline(ctx context.Context, condition, questionnaireKey string) (*domain.OutcomeAssessment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, questionnaire_key, condition, context, responses, score,
			   interpretation, completed_at
		FROM outcome_assessments
		WHERE condition = ? AND questionnaire_key = ? AND context = ?
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
func (s *SQLiteStore) GetLatest(ctx context.Context, condition, questionnaireKey string) (*domain.OutcomeAssessment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, questionnaire_key, condition, context, responses, score,
			   interpretation, completed_at
		FROM outcome_assessments
		WHERE condition = ? AND questionnaire_key = ? AND context IN (?, ?)
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
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.OutcomeAssessment, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, questionnaire_key, condition, context, responses, score,
			   interpretation, completed_at
		FROM outcome_assessments
		ORDER BY completed_at DESC
		LIMIT ? OFFSET ?`,
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outcome_assessments").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting outcome assessments: %w", err)
	}
	return count, nil
}

// ExportJSON writes every stored assessment to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("decoding import: %w", err)
	}

	imported, skipped := 0, 0
	for _, assessment := range export.Assessments {
		var existing string
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM outcome_assessments WHERE id = ?", assessment.ID,
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
