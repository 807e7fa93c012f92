package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehab-triage-engine/internal/domain"
	"github.com/rehab-triage-engine/internal/vocabulary"
)

// fakeCatalog is an in-memory CatalogReader for builder tests.
type fakeCatalog struct {
	exercises      []domain.ExerciseRecord
	routines       []domain.RoutineRecord
	routineItems   map[string][]domain.RoutineItem
	protocols      map[string]*domain.ProtocolRecord
	phaseExercises map[string][]domain.PhaseExercise
	failWith       error
}

func (f *fakeCatalog) ListActiveExercises(ctx context.Context) ([]domain.ExerciseRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.exercises, nil
}

func (f *fakeCatalog) ListActiveRoutines(ctx context.Context) ([]domain.RoutineRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.routines, nil
}

func (f *fakeCatalog) GetRoutineItems(ctx context.Context, routineID string) ([]domain.RoutineItem, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	items, ok := f.routineItems[routineID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return items, nil
}

func (f *fakeCatalog) FindProtocol(ctx context.Context, protocolKey string) (*domain.ProtocolRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	protocol, ok := f.protocols[protocolKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return protocol, nil
}

func (f *fakeCatalog) GetPhaseExercises(ctx context.Context, protocolID string, phaseNumber int) ([]domain.PhaseExercise, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.phaseExercises[fmt.Sprintf("%s/%d", protocolID, phaseNumber)], nil
}

type fakeSink struct {
	saved []*domain.RecommendationResult
	err   error
}

func (f *fakeSink) SaveResult(ctx context.Context, result *domain.RecommendationResult) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, result)
	return nil
}

type fakePhraser struct {
	text string
	err  error
}

func (f *fakePhraser) PhraseSafetyNote(ctx context.Context, risk domain.RiskLevel, notes []string) (string, error) {
	return f.text, f.err
}

func newBuilder(catalog domain.CatalogReader, phraser domain.AdvisoryPhraser, sink domain.RecommendationSink) *RecommendationBuilder {
	logger := testLogger()
	vocab := vocabulary.New()
	return NewRecommendationBuilder(
		logger,
		catalog,
		NewRiskClassifier(logger),
		NewRoutineMatcher(logger, vocab),
		NewExerciseScorer(logger, vocab),
		NewProtocolPhaseResolver(logger),
		phraser,
		sink,
	)
}

func TestBuildCriticalShortCircuits(t *testing.T) {
	catalog := &fakeCatalog{failWith: errors.New("catalog must not be touched")}
	sink := &fakeSink{}
	builder := newBuilder(catalog, nil, sink)

	assessment := &domain.AssessmentRecord{
		ID:           "a-1",
		PainLevel:    2,
		PainLocation: "Lower Back",
		RedFlags:     []string{"Loss of bladder or bowel control"},
	}

	result, err := builder.Build(context.Background(), assessment, &domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone})
	require.NoError(t, err)

	assert.Equal(t, domain.RiskCritical, result.RiskLevel)
	assert.Empty(t, result.Recommendations)
	assert.Equal(t, SourceNone, result.Source)
	require.NotEmpty(t, result.NextSteps)
	assert.Contains(t, result.NextSteps[0], "immediate medical care")
	require.Len(t, sink.saved, 1)
}

func TestBuildPostOpCriticalUsesSurgeonMessage(t *testing.T) {
	builder := newBuilder(&fakeCatalog{}, nil, nil)

	assessment := &domain.AssessmentRecord{
		ID:        "a-2",
		PainLevel: 9,
		RedFlags:  []string{"Signs of infection at the incision"},
	}
	postOp := &domain.PostOpRecord{
		SurgeryStatus: domain.SurgeryPostOp,
		PostOpRegion:  "Knee",
		SurgeryType:   "acl_reconstruction",
	}

	result, err := builder.Build(context.Background(), assessment, postOp)
	require.NoError(t, err)
	require.NotEmpty(t, result.NextSteps)
	assert.Contains(t, result.NextSteps[0], "surgeon")
}

func TestBuildRoutinePath(t *testing.T) {
	routine := lowBackRoutine()
	catalog := &fakeCatalog{
		routines: []domain.RoutineRecord{routine},
		routineItems: map[string][]domain.RoutineItem{
			routine.ID: {
				{
					Exercise:      &domain.ExerciseRecord{ID: "ex-1", Name: "Pelvic Tilt", SafetyNotes: []string{"Keep your core engaged"}},
					PhaseLabel:    "Phase 1",
					PhaseNotes:    []string{"Move slowly"},
					SequenceOrder: 1,
					Dosage:        domain.Dosage{Sets: 3, Reps: 10},
				},
			},
		},
	}
	builder := newBuilder(catalog, nil, nil)

	assessment := &domain.AssessmentRecord{
		ID:                 "a-3",
		PainLevel:          4,
		PainLocation:       "Lower Back",
		PainType:           "Dull/Aching",
		AdditionalSymptoms: []string{"Stiffness in the morning"},
	}

	result, err := builder.Build(context.Background(), assessment, &domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone})
	require.NoError(t, err)

	assert.Equal(t, domain.RiskLow, result.RiskLevel)
	assert.Equal(t, SourceRoutine, result.Source)
	assert.Equal(t, routine.Name, result.RoutineName)
	assert.GreaterOrEqual(t, result.MatchScore, 30)
	require.Len(t, result.Recommendations, 1)

	rec := result.Recommendations[0]
	assert.Equal(t, 3, rec.Dosage.Sets)
	assert.Equal(t, "Daily", rec.Dosage.Frequency)

	// Safety-note order: routine disclaimer, phase notes, catalog notes,
	// closing reminder.
	require.GreaterOrEqual(t, len(rec.SafetyNotes), 4)
	assert.Equal(t, routine.Disclaimer, rec.SafetyNotes[0])
	assert.Equal(t, "Move slowly", rec.SafetyNotes[1])
	assert.Equal(t, "Keep your core engaged", rec.SafetyNotes[2])
	assert.Equal(t, closingSafetyReminder, rec.SafetyNotes[len(rec.SafetyNotes)-1])
}

func TestBuildExerciseSearchFallback(t *testing.T) {
	catalog := &fakeCatalog{
		exercises: kneeCatalog(),
	}
	builder := newBuilder(catalog, nil, nil)

	result, err := builder.Build(context.Background(), kneeAssessment(4), &domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone})
	require.NoError(t, err)

	assert.Equal(t, SourceExerciseSearch, result.Source)
	require.NotEmpty(t, result.Recommendations)
	assert.Equal(t, "ex-quad-set", result.Recommendations[0].Exercise.ID)
	for _, rec := range result.Recommendations {
		assert.Equal(t, closingSafetyReminder, rec.SafetyNotes[len(rec.SafetyNotes)-1])
		assert.NotZero(t, rec.Dosage.Sets)
		assert.NotEmpty(t, rec.Dosage.Frequency)
	}
}

func TestBuildProtocolPath(t *testing.T) {
	protocol := &domain.ProtocolRecord{ID: "p-1", ProtocolKey: "knee_acl_reconstruction", Name: "ACL Reconstruction Protocol"}
	catalog := &fakeCatalog{
		protocols: map[string]*domain.ProtocolRecord{protocol.ProtocolKey: protocol},
		phaseExercises: map[string][]domain.PhaseExercise{
			"p-1/2": {
				{
					Exercise:      &domain.ExerciseRecord{ID: "ex-heel-slide", Name: "Heel Slide", DefaultDosage: domain.Dosage{Sets: 3, Reps: 15, Frequency: "Twice daily"}},
					PhaseNumber:   2,
					PhaseNotes:    []string{"Stay within the protected range"},
					SequenceOrder: 1,
					Dosage:        domain.Dosage{Sets: 2},
				},
			},
		},
	}
	builder := newBuilder(catalog, nil, nil)

	assessment := &domain.AssessmentRecord{ID: "a-4", PainLevel: 3, PainLocation: "Knee"}
	postOp := &domain.PostOpRecord{
		SurgeryStatus:     domain.SurgeryPostOp,
		PostOpRegion:      "Knee",
		SurgeryType:       "acl_reconstruction",
		WeeksSinceSurgery: "2-6 weeks",
	}

	result, err := builder.Build(context.Background(), assessment, postOp)
	require.NoError(t, err)

	assert.Equal(t, SourceProtocol, result.Source)
	assert.Equal(t, "knee_acl_reconstruction", result.ProtocolKey)
	assert.Equal(t, 2, result.PhaseNumber)
	require.Len(t, result.Recommendations, 1)

	rec := result.Recommendations[0]
	// Phase override wins over the catalog default; unset fields fall
	// through the precedence chain.
	assert.Equal(t, 2, rec.Dosage.Sets)
	assert.Equal(t, 15, rec.Dosage.Reps)
	assert.Equal(t, "Twice daily", rec.Dosage.Frequency)
	assert.Equal(t, "Stay within the protected range", rec.SafetyNotes[0])
	assert.Contains(t, rec.Reasoning, "ACL Reconstruction Protocol")
}

func TestBuildMissingProtocolFallsBack(t *testing.T) {
	catalog := &fakeCatalog{
		exercises: kneeCatalog(),
	}
	builder := newBuilder(catalog, nil, nil)

	assessment := &domain.AssessmentRecord{ID: "a-5", PainLevel: 3, PainLocation: "Knee", PainType: "Aching"}
	postOp := &domain.PostOpRecord{
		SurgeryStatus:     domain.SurgeryPostOp,
		PostOpRegion:      "Knee",
		SurgeryType:       "acl_reconstruction",
		WeeksSinceSurgery: "2-6 weeks",
	}

	result, err := builder.Build(context.Background(), assessment, postOp)
	require.NoError(t, err)
	assert.Equal(t, SourceExerciseSearch, result.Source)
	assert.NotEmpty(t, result.Recommendations)
}

func TestBuildEmptyPhaseFallsBack(t *testing.T) {
	protocol := &domain.ProtocolRecord{ID: "p-1", ProtocolKey: "knee_acl_reconstruction", Name: "ACL Reconstruction Protocol"}
	catalog := &fakeCatalog{
		protocols: map[string]*domain.ProtocolRecord{protocol.ProtocolKey: protocol},
		exercises: kneeCatalog(),
	}
	builder := newBuilder(catalog, nil, nil)

	postOp := &domain.PostOpRecord{
		SurgeryStatus:     domain.SurgeryPostOp,
		PostOpRegion:      "Knee",
		SurgeryType:       "acl_reconstruction",
		WeeksSinceSurgery: "2-6 weeks",
	}

	result, err := builder.Build(context.Background(), &domain.AssessmentRecord{PainLevel: 3, PainLocation: "Knee"}, postOp)
	require.NoError(t, err)
	assert.Equal(t, SourceExerciseSearch, result.Source)
}

func TestBuildCatalogUnavailablePropagates(t *testing.T) {
	catalog := &fakeCatalog{
		failWith: fmt.Errorf("connection refused: %w", domain.ErrCatalogUnavailable),
	}
	builder := newBuilder(catalog, nil, nil)

	_, err := builder.Build(context.Background(), &domain.AssessmentRecord{PainLevel: 3, PainLocation: "Knee"}, &domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestBuildEmptyCatalogReturnsEmptyList(t *testing.T) {
	builder := newBuilder(&fakeCatalog{}, nil, nil)

	result, err := builder.Build(context.Background(), &domain.AssessmentRecord{PainLevel: 3, PainLocation: "Knee"}, &domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone})
	require.NoError(t, err)
	assert.Empty(t, result.Recommendations)
	assert.Equal(t, SourceExerciseSearch, result.Source)
	assert.NotEmpty(t, result.NextSteps)
}

func TestBuildHighRiskAttachesWarnings(t *testing.T) {
	catalog := &fakeCatalog{exercises: kneeCatalog()}
	builder := newBuilder(catalog, nil, nil)

	assessment := &domain.AssessmentRecord{
		PainLevel:          8,
		PainLocation:       "Knee",
		AdditionalSymptoms: []string{"Numbness or tingling"},
	}

	result, err := builder.Build(context.Background(), assessment, &domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone})
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, result.RiskLevel)
	require.NotEmpty(t, result.Recommendations)
	for _, rec := range result.Recommendations {
		assert.NotEmpty(t, rec.RedFlagWarnings)
	}
}

func TestBuildAdvisoryNoteIsAdditive(t *testing.T) {
	catalog := &fakeCatalog{exercises: kneeCatalog()}

	phrased := newBuilder(catalog, &fakePhraser{text: "Take it easy this week."}, nil)
	result, err := phrased.Build(context.Background(), kneeAssessment(3), &domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone})
	require.NoError(t, err)
	baseline := len(result.NextSteps)
	assert.Equal(t, "Take it easy this week.", result.NextSteps[baseline-1])

	failing := newBuilder(catalog, &fakePhraser{err: errors.New("assistant unreachable")}, nil)
	result, err = failing.Build(context.Background(), kneeAssessment(3), &domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone})
	require.NoError(t, err)
	assert.Len(t, result.NextSteps, baseline-1)
	assert.NotEmpty(t, result.Recommendations)
}

func TestBuildSinkFailureDoesNotFailRequest(t *testing.T) {
	catalog := &fakeCatalog{exercises: kneeCatalog()}
	builder := newBuilder(catalog, nil, &fakeSink{err: errors.New("storage offline")})

	result, err := builder.Build(context.Background(), kneeAssessment(3), &domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Recommendations)
}

func TestBuildClampsPainLevel(t *testing.T) {
	catalog := &fakeCatalog{exercises: kneeCatalog()}
	builder := newBuilder(catalog, nil, nil)

	assessment := &domain.AssessmentRecord{PainLevel: 14, PainLocation: "Knee"}
	result, err := builder.Build(context.Background(), assessment, &domain.PostOpRecord{SurgeryStatus: domain.SurgeryNone})
	require.NoError(t, err)
	assert.Equal(t, 10, assessment.PainLevel)
	assert.Equal(t, domain.RiskModerate, result.RiskLevel)
}
