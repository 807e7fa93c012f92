package outcomes

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehab-triage-engine/internal/domain"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "outcomes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func baselineODI(completedAt time.Time) *domain.OutcomeAssessment {
	return &domain.OutcomeAssessment{
		QuestionnaireKey: "odi",
		Condition:        "low back pain",
		Context:          domain.ContextBaseline,
		Responses:        []float64{3, 2, 3, 2, 2},
		Score:            48,
		Interpretation:   "Severe disability",
		CompletedAt:      completedAt,
	}
}

func TestSQLiteSaveAndGetBaseline(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	assessment := baselineODI(time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, assessment))
	assert.NotEmpty(t, assessment.ID)

	got, err := store.GetBaseline(ctx, "low back pain", "odi")
	require.NoError(t, err)
	assert.Equal(t, assessment.ID, got.ID)
	assert.Equal(t, 48.0, got.Score)
	assert.Equal(t, domain.ContextBaseline, got.Context)
	assert.Equal(t, []float64{3, 2, 3, 2, 2}, got.Responses)
}

func TestSQLiteGetBaselinePicksEarliest(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	early := baselineODI(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	late := baselineODI(time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, early))
	require.NoError(t, store.Save(ctx, late))

	got, err := store.GetBaseline(ctx, "low back pain", "odi")
	require.NoError(t, err)
	assert.Equal(t, early.ID, got.ID)
}

func TestSQLiteGetLatestPicksMostRecentFollowup(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, baselineODI(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))))

	followup := baselineODI(time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	followup.Context = domain.ContextFollowup
	followup.Score = 32
	require.NoError(t, store.Save(ctx, followup))

	final := baselineODI(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	final.Context = domain.ContextFinal
	final.Score = 20
	require.NoError(t, store.Save(ctx, final))

	got, err := store.GetLatest(ctx, "low back pain", "odi")
	require.NoError(t, err)
	assert.Equal(t, final.ID, got.ID)
	assert.Equal(t, 20.0, got.Score)
}

func TestSQLiteGetMissingReturnsNotFound(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	_, err := store.GetBaseline(ctx, "knee pain", "koos")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetLatest(ctx, "knee pain", "koos")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteSaveUpsertsByID(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	assessment := baselineODI(time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, assessment))

	assessment.Score = 52
	require.NoError(t, store.Save(ctx, assessment))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.GetBaseline(ctx, "low back pain", "odi")
	require.NoError(t, err)
	assert.Equal(t, 52.0, got.Score)
}

func TestSQLiteSaveRejectsInvalidContext(t *testing.T) {
	store := newSQLiteStore(t)

	assessment := baselineODI(time.Now())
	assessment.Context = domain.AssessmentContext("weekly")
	err := store.Save(context.Background(), assessment)
	assert.Error(t, err)
}

func TestSQLiteListNewestFirst(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	for month := time.Month(1); month <= 3; month++ {
		a := baselineODI(time.Date(2026, month, 1, 10, 0, 0, 0, time.UTC))
		require.NoError(t, store.Save(ctx, a))
	}

	assessments, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, assessments, 3)
	assert.True(t, assessments[0].CompletedAt.After(assessments[2].CompletedAt))
}

func TestSQLiteExportImportRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, baselineODI(time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	other := newSQLiteStore(t)
	imported, skipped, err := other.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 0, skipped)

	// Importing the same export again skips everything.
	imported, skipped, err = other.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 1, skipped)
}
