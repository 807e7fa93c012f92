// Package outcomes provides persistent storage for scored outcome
// assessments. Two backends exist: Postgres for clinic deployments and
// SQLite for single-site or offline intake setups. The engine core only
// decides what is written; layout belongs to this package.
package outcomes

import (
	"context"
	"io"
	"time"

	"github.com/rehab-triage-engine/internal/domain"
)

// Store defines outcome-assessment storage operations.
type Store interface {
	// Save stores an assessment, updating the row when the ID already
	// exists.
	Save(ctx context.Context, assessment *domain.OutcomeAssessment) error

	// GetBaseline retrieves the earliest baseline assessment for a
	// condition and questionnaire, or domain.ErrNotFound.
	GetBaseline(ctx context.Context, condition, questionnaireKey string) (*domain.OutcomeAssessment, error)

	// GetLatest retrieves the most recent followup or final assessment
	// for a condition and questionnaire, or domain.ErrNotFound.
	GetLatest(ctx context.Context, condition, questionnaireKey string) (*domain.OutcomeAssessment, error)

	// List returns assessments newest-first with pagination.
	List(ctx context.Context, limit, offset int) ([]*domain.OutcomeAssessment, error)

	// Count returns the total number of stored assessments.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every assessment to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads assessments from a JSON reader, skipping entries
	// that already exist.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close releases store resources.
	Close() error
}

// maxExportRows bounds a JSON export.
const maxExportRows = 1 << 20

// Export is the JSON export envelope.
type Export struct {
	Version     string                      `json:"version"`
	ExportedAt  time.Time                   `json:"exported_at"`
	Count       int                         `json:"count"`
	Assessments []*domain.OutcomeAssessment `json:"assessments"`
}
