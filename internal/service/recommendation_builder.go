package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
)

// Recommendation sources recorded on the result.
const (
	SourceRoutine        = "routine"
	SourceProtocol       = "protocol"
	SourceExerciseSearch = "exercise_search"
	SourceNone           = "none"
)

// engineDefaultDosage is the last resort of the dosage precedence chain:
// phase override > routine-item override > catalog default > this.
var engineDefaultDosage = domain.Dosage{Sets: 2, Frequency: "Daily"}

const closingSafetyReminder = "Stop immediately and consult a healthcare provider if any exercise causes sharp pain, numbness, or worsening symptoms."

// RecommendationBuilder orchestrates one triage evaluation: risk
// classification, protocol or routine selection with exercise-search
// fallback, dosage and safety-note assembly, and next-step generation.
// It holds no state between invocations.
type RecommendationBuilder struct {
	logger     *logrus.Logger
	catalog    domain.CatalogReader
	classifier *RiskClassifier
	matcher    *RoutineMatcher
	scorer     *ExerciseScorer
	resolver   *ProtocolPhaseResolver
	phraser    domain.AdvisoryPhraser
	sink       domain.RecommendationSink
}

// NewRecommendationBuilder creates a new recommendation builder. The
// phraser and sink are optional and may be nil.
func NewRecommendationBuilder(
	logger *logrus.Logger,
	catalog domain.CatalogReader,
	classifier *RiskClassifier,
	matcher *RoutineMatcher,
	scorer *ExerciseScorer,
	resolver *ProtocolPhaseResolver,
	phraser domain.AdvisoryPhraser,
	sink domain.RecommendationSink,
) *RecommendationBuilder {
	return &RecommendationBuilder{
		logger:     logger,
		catalog:    catalog,
		classifier: classifier,
		matcher:    matcher,
		scorer:     scorer,
		resolver:   resolver,
		phraser:    phraser,
		sink:       sink,
	}
}

// Build evaluates one assessment submission. "No recommendations found"
// is an empty list, never an error; the only error surfaced is an
// unreadable catalog.
func (b *RecommendationBuilder) Build(ctx context.Context, assessment *domain.AssessmentRecord, postOp *domain.PostOpRecord) (*domain.RecommendationResult, error) {
	startTime := time.Now()
	clampAssessment(assessment)

	risk := b.classifier.Classify(assessment)
	result := &domain.RecommendationResult{
		AssessmentID: assessment.ID,
		RiskLevel:    risk,
		Source:       SourceNone,
		GeneratedAt:  time.Now().UTC(),
	}

	// Red flags are a terminal clinical outcome: the engine withholds
	// exercises and refers out.
	if risk.RequiresReferral() {
		result.Recommendations = []domain.Recommendation{}
		result.NextSteps = b.buildNextSteps(risk, postOp)
		b.persist(ctx, result)
		return result, nil
	}

	recommendations, source, err := b.selectRecommendations(ctx, assessment, postOp, result)
	if err != nil {
		return nil, err
	}

	b.attachDosageAndSafety(recommendations, assessment, postOp, risk)
	result.Recommendations = recommendations
	result.Source = source
	result.NextSteps = b.buildNextSteps(risk, postOp)
	b.appendAdvisoryNote(ctx, result)
	b.persist(ctx, result)

	b.logger.WithFields(logrus.Fields{
		"assessment_id":   assessment.ID,
		"risk_level":      risk.String(),
		"source":          source,
		"recommendations": len(recommendations),
		"processing_time": time.Since(startTime),
	}).Info("Recommendation generation completed")

	return result, nil
}

// selectRecommendations walks the strategy chain: post-op protocol lookup
// first, then routine matching, then the exercise-search fallback.
func (b *RecommendationBuilder) selectRecommendations(ctx context.Context, assessment *domain.AssessmentRecord, postOp *domain.PostOpRecord, result *domain.RecommendationResult) ([]domain.Recommendation, string, error) {
	if postOp.IsPostOp() {
		recommendations, ok, err := b.protocolRecommendations(ctx, assessment, postOp)
		if err != nil {
			return nil, "", err
		}
		if ok {
			result.ProtocolKey = postOp.ProtocolKey
			result.PhaseNumber = postOp.PhaseNumber
			return recommendations, SourceProtocol, nil
		}
	}

	routines, err := b.catalog.ListActiveRoutines(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("listing routines: %w", err)
	}

	if match := b.matcher.Match(assessment, routines); match != nil {
		items, err := b.catalog.GetRoutineItems(ctx, match.Routine.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("loading routine items: %w", err)
		}
		if len(items) > 0 {
			result.RoutineName = match.Routine.Name
			result.MatchScore = match.Score
			return b.matcher.Expand(match, items), SourceRoutine, nil
		}
	}

	exercises, err := b.catalog.ListActiveExercises(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("listing exercises: %w", err)
	}

	scored := b.scorer.Score(assessment, exercises)
	recommendations := make([]domain.Recommendation, 0, len(scored))
	for _, entry := range scored {
		reasoning := "Matched to your reported symptoms"
		if len(entry.Reasons) > 0 {
			reasoning = "Selected because it " + joinReasons(entry.Reasons)
		}
		recommendations = append(recommendations, domain.Recommendation{
			Exercise:       entry.Exercise,
			Dosage:         entry.Exercise.DefaultDosage,
			RelevanceScore: entry.Score,
			Reasoning:      reasoning,
		})
	}
	return recommendations, SourceExerciseSearch, nil
}

// protocolRecommendations attempts the post-op protocol path. A missing
// protocol or an empty phase is a recoverable state reported via ok=false;
// any other catalog failure propagates.
func (b *RecommendationBuilder) protocolRecommendations(ctx context.Context, assessment *domain.AssessmentRecord, postOp *domain.PostOpRecord) ([]domain.Recommendation, bool, error) {
	b.resolver.Resolve(assessment, postOp)

	protocol, err := b.catalog.FindProtocol(ctx, postOp.ProtocolKey)
	if errors.Is(err, domain.ErrNotFound) {
		b.logger.WithFields(logrus.Fields{
			"protocol_key": postOp.ProtocolKey,
		}).Info("No protocol registered, falling back to standard matching")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("finding protocol %q: %w", postOp.ProtocolKey, err)
	}

	phaseExercises, err := b.catalog.GetPhaseExercises(ctx, protocol.ID, postOp.PhaseNumber)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("loading phase %d of protocol %q: %w", postOp.PhaseNumber, postOp.ProtocolKey, err)
	}
	if len(phaseExercises) == 0 {
		b.logger.WithFields(logrus.Fields{
			"protocol_key": postOp.ProtocolKey,
			"phase":        postOp.PhaseNumber,
		}).Info("No exercises registered for resolved phase, falling back to standard matching")
		return nil, false, nil
	}

	recommendations := make([]domain.Recommendation, 0, len(phaseExercises))
	for i, pe := range phaseExercises {
		if pe.Exercise == nil {
			continue
		}
		recommendations = append(recommendations, domain.Recommendation{
			Exercise:       pe.Exercise,
			Dosage:         pe.Dosage.Merge(pe.Exercise.DefaultDosage),
			RelevanceScore: 100 - pe.SequenceOrder,
			Reasoning: fmt.Sprintf("%s phase %d, exercise %d of %d",
				protocol.Name, postOp.PhaseNumber, i+1, len(phaseExercises)),
			SafetyNotes: append([]string{}, pe.PhaseNotes...),
		})
	}
	return recommendations, true, nil
}

// attachDosageAndSafety finalizes dosage with the engine default and
// assembles safety notes in presentation order: phase/routine notes,
// catalog notes, pain-conditional guidance, weight-bearing and precaution
// guidance for post-op patients, contraindications, closing reminder.
func (b *RecommendationBuilder) attachDosageAndSafety(recommendations []domain.Recommendation, assessment *domain.AssessmentRecord, postOp *domain.PostOpRecord, risk domain.RiskLevel) {
	for i := range recommendations {
		rec := &recommendations[i]
		rec.Dosage = rec.Dosage.Merge(engineDefaultDosage)

		notes := rec.SafetyNotes
		notes = append(notes, rec.Exercise.SafetyNotes...)

		if assessment.PainLevel >= 7 {
			notes = append(notes, "Your pain level is high. Keep movements in a pain-free range and reduce the dosage if symptoms increase.")
		} else if assessment.PainLevel >= 5 {
			notes = append(notes, "Work within a comfortable range of motion and avoid pushing into pain.")
		}

		if postOp.IsPostOp() {
			if postOp.WeightBearingStatus != "" {
				notes = append(notes, fmt.Sprintf("Respect your current weight-bearing status: %s.", postOp.WeightBearingStatus))
			}
			if postOp.SurgeonPrecautions == "yes" {
				notes = append(notes, "Follow your surgeon's specific precautions; they override any general guidance here.")
			}
		}

		for _, c := range rec.Exercise.Contraindications {
			notes = append(notes, "Avoid if: "+c)
		}

		notes = append(notes, closingSafetyReminder)
		rec.SafetyNotes = notes

		if risk == domain.RiskHigh {
			rec.RedFlagWarnings = append(rec.RedFlagWarnings,
				"Your symptoms suggest a clinical evaluation before progressing this program.")
		}

		rec.ProgressionTips = progressionTips(rec.Exercise.Difficulty)
	}
}

// buildNextSteps branches on risk tier and, independently, on post-op
// status. The post-op critical message directs to the surgical team
// rather than generic urgent care.
func (b *RecommendationBuilder) buildNextSteps(risk domain.RiskLevel, postOp *domain.PostOpRecord) []string {
	switch risk {
	case domain.RiskCritical:
		if postOp.IsPostOp() {
			return []string{
				"Contact your surgeon or surgical team immediately.",
				"If you cannot reach them, go to the nearest emergency department.",
				"Do not continue your exercise program until you have been evaluated.",
			}
		}
		return []string{
			"Seek immediate medical care. Your symptoms may indicate a serious condition.",
			"Go to the nearest emergency department or call emergency services.",
			"Do not begin an exercise program until you have been evaluated.",
		}
	case domain.RiskHigh:
		steps := []string{
			"Schedule an evaluation with a physical therapist or physician within the next few days.",
			"Begin only the gentlest recommended exercises until you have been assessed.",
			"Track your symptoms and stop any activity that makes them worse.",
		}
		if postOp.IsPostOp() {
			steps = append(steps, "Let your surgical team know your pain and symptoms have changed.")
		}
		return steps
	case domain.RiskModerate:
		steps := []string{
			"Start the recommended exercises and progress gradually.",
			"Consider a professional evaluation if symptoms do not improve within two weeks.",
			"Reassess your pain weekly using the outcome questionnaires.",
		}
		if postOp.IsPostOp() {
			steps = append(steps, "Keep your scheduled post-operative follow-up appointments.")
		}
		return steps
	default:
		steps := []string{
			"Begin the recommended exercise program at your own pace.",
			"Increase difficulty gradually as exercises become easy.",
			"Reassess with the outcome questionnaires every two weeks to track progress.",
		}
		if postOp.IsPostOp() {
			steps = append(steps, "Continue following your post-operative rehabilitation timeline.")
		}
		return steps
	}
}

// appendAdvisoryNote asks the optional phrasing collaborator for a
// friendlier rendering of the deterministic guidance. Failures are logged
// and ignored: phrased text is additive, never a substitute.
func (b *RecommendationBuilder) appendAdvisoryNote(ctx context.Context, result *domain.RecommendationResult) {
	if b.phraser == nil || len(result.Recommendations) == 0 {
		return
	}

	phrased, err := b.phraser.PhraseSafetyNote(ctx, result.RiskLevel, result.NextSteps)
	if err != nil {
		b.logger.WithError(err).Warn("Advisory phrasing unavailable, using deterministic guidance only")
		return
	}
	if phrased != "" {
		result.NextSteps = append(result.NextSteps, phrased)
	}
}

func (b *RecommendationBuilder) persist(ctx context.Context, result *domain.RecommendationResult) {
	if b.sink == nil {
		return
	}
	if err := b.sink.SaveResult(ctx, result); err != nil {
		b.logger.WithError(err).WithField("assessment_id", result.AssessmentID).
			Warn("Failed to persist recommendation result")
	}
}

// clampAssessment coerces out-of-range caller input instead of rejecting
// it.
func clampAssessment(assessment *domain.AssessmentRecord) {
	if assessment.PainLevel < 0 {
		assessment.PainLevel = 0
	}
	if assessment.PainLevel > 10 {
		assessment.PainLevel = 10
	}
}

func progressionTips(difficulty domain.Difficulty) []string {
	switch difficulty {
	case domain.DifficultyBeginner:
		return []string{"Once this feels easy for a full week, add repetitions before adding resistance."}
	case domain.DifficultyIntermediate:
		return []string{"Progress load or range only when you can complete all sets without symptom flare-up."}
	case domain.DifficultyAdvanced:
		return []string{"Maintain strict form; reduce difficulty if control or balance degrades."}
	default:
		return nil
	}
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for i := 1; i < len(reasons); i++ {
		if i == len(reasons)-1 {
			out += " and " + reasons[i]
		} else {
			out += ", " + reasons[i]
		}
	}
	return out
}
