package domain

import (
	"errors"
	"fmt"
	"time"
)

// Intake Models

// AssessmentRecord captures a patient's self-reported symptoms for one
// intake submission. AdditionalSymptoms and RedFlags are sets: no
// duplicates, order irrelevant to scoring. Free-text fields
// (MechanismOfInjury, Medications) are passed through to matching as
// opaque text and never parsed structurally.
type AssessmentRecord struct {
	ID                 string   `json:"id"`
	PainLevel          int      `json:"pain_level"` // 0-10
	PainLocation       string   `json:"pain_location"`
	PainDuration       string   `json:"pain_duration"` // bucketed, e.g. "2-4 weeks"
	PainType           string   `json:"pain_type"`     // comma-joined tag set
	MechanismOfInjury  string   `json:"mechanism_of_injury,omitempty"`
	Medications        string   `json:"medications,omitempty"`
	AdditionalSymptoms []string `json:"additional_symptoms,omitempty"`
	RedFlags           []string `json:"red_flags,omitempty"`
	Location           string   `json:"location,omitempty"` // residency hint only
}

// Validate ensures the assessment meets the engine's input invariants.
func (a *AssessmentRecord) Validate() error {
	if a.PainLevel < 0 || a.PainLevel > 10 {
		return fmt.Errorf("assessment validation: %w", ErrInvalidPainLevel)
	}
	return nil
}

// CombinedText returns the free-text fields joined for exclusion-criteria
// matching. The engine only substring-matches this text; it never parses it.
func (a *AssessmentRecord) CombinedText() string {
	text := a.PainLocation + " " + a.PainType + " " + a.MechanismOfInjury + " " + a.Medications
	for _, s := range a.AdditionalSymptoms {
		text += " " + s
	}
	return text
}

// PostOpRecord captures surgical-history fields for one assessment
// submission. It is built once per submission and never mutated after
// recommendation generation; ProtocolKey and PhaseNumber are derived by
// the protocol phase resolver.
type PostOpRecord struct {
	SurgeryStatus       SurgeryStatus `json:"surgery_status"`
	PostOpRegion        string        `json:"post_op_region,omitempty"`
	SurgeryType         string        `json:"surgery_type,omitempty"`
	ProcedureModifier   string        `json:"procedure_modifier,omitempty"` // e.g. "Grade 2 tear"
	WeeksSinceSurgery   string        `json:"weeks_since_surgery,omitempty"`
	WeightBearingStatus string        `json:"weight_bearing_status,omitempty"`
	SurgeonPrecautions  string        `json:"surgeon_precautions,omitempty"` // yes | no | not_sure

	// Derived fields, populated by the resolver.
	ProtocolKey string `json:"protocol_key,omitempty"`
	PhaseNumber int    `json:"phase_number,omitempty"`
}

// IsPostOp reports whether protocol-based recommendation applies.
func (p *PostOpRecord) IsPostOp() bool {
	return p != nil && p.SurgeryStatus == SurgeryPostOp
}

// Catalog Models (owned by the external catalog; the engine only reads them)

// Dosage holds exercise dosing parameters. Zero values mean "unset" and
// defer to the next level of the dosage precedence chain.
type Dosage struct {
	Sets        int    `json:"sets,omitempty"`
	Reps        int    `json:"reps,omitempty"`
	HoldSeconds int    `json:"hold_seconds,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
}

// Merge returns d with unset fields filled from fallback.
func (d Dosage) Merge(fallback Dosage) Dosage {
	if d.Sets == 0 {
		d.Sets = fallback.Sets
	}
	if d.Reps == 0 {
		d.Reps = fallback.Reps
	}
	if d.HoldSeconds == 0 {
		d.HoldSeconds = fallback.HoldSeconds
	}
	if d.Frequency == "" {
		d.Frequency = fallback.Frequency
	}
	return d
}

// ExerciseRecord is a single catalog exercise.
type ExerciseRecord struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	BodyParts         []string   `json:"body_parts"`
	Conditions        []string   `json:"conditions"`
	Keywords          []string   `json:"keywords"`
	Difficulty        Difficulty `json:"difficulty"`
	Contraindications []string   `json:"contraindications,omitempty"`
	SafetyNotes       []string   `json:"safety_notes,omitempty"`
	DisplayOrder      int        `json:"display_order"` // stable tiebreaker
	Featured          bool       `json:"featured"`
	DefaultDosage     Dosage     `json:"default_dosage"`
}

// RoutineRecord is a curated, ordered multi-exercise program designed for
// a symptom cluster.
type RoutineRecord struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	TargetSymptoms    []string `json:"target_symptoms"`
	ExclusionCriteria []string `json:"exclusion_criteria,omitempty"`
	Disclaimer        string   `json:"disclaimer,omitempty"`
}

// RoutineItem is one ordered entry of a routine.
type RoutineItem struct {
	RoutineID     string          `json:"routine_id"`
	Exercise      *ExerciseRecord `json:"exercise"`
	PhaseLabel    string          `json:"phase_label,omitempty"`
	PhaseNotes    []string        `json:"phase_notes,omitempty"`
	SequenceOrder int             `json:"sequence_order"`
	Optional      bool            `json:"optional"`
	Dosage        Dosage          `json:"dosage"` // item-level override
}

// ProtocolRecord is a post-operative rehabilitation protocol keyed by
// region, surgery type, and optional procedure modifier.
type ProtocolRecord struct {
	ID          string `json:"id"`
	ProtocolKey string `json:"protocol_key"` // e.g. "knee_acl_reconstruction"
	Name        string `json:"name"`
}

// PhaseExercise is one exercise registered for a protocol phase, carrying
// phase-specific dosage overrides and notes.
type PhaseExercise struct {
	ProtocolID    string          `json:"protocol_id"`
	PhaseNumber   int             `json:"phase_number"`
	Exercise      *ExerciseRecord `json:"exercise"`
	PhaseNotes    []string        `json:"phase_notes,omitempty"`
	SequenceOrder int             `json:"sequence_order"`
	Dosage        Dosage          `json:"dosage"` // phase-level override
}

// Recommendation Models

// Recommendation is one dosed, ranked exercise produced for an
// assessment. It is produced fresh per request and never persisted by the
// engine itself.
type Recommendation struct {
	Exercise        *ExerciseRecord `json:"exercise"`
	Dosage          Dosage          `json:"dosage"`
	RelevanceScore  int             `json:"relevance_score"`
	Reasoning       string          `json:"reasoning"`
	SafetyNotes     []string        `json:"safety_notes,omitempty"`
	RedFlagWarnings []string        `json:"red_flag_warnings,omitempty"`
	ProgressionTips []string        `json:"progression_tips,omitempty"`
}

// RecommendationResult is the full output of one triage evaluation.
type RecommendationResult struct {
	AssessmentID    string           `json:"assessment_id"`
	RiskLevel       RiskLevel        `json:"risk_level"`
	Recommendations []Recommendation `json:"recommendations"`
	NextSteps       []string         `json:"next_steps"`
	Source          string           `json:"source"` // routine | protocol | exercise_search | none
	RoutineName     string           `json:"routine_name,omitempty"`
	MatchScore      int              `json:"match_score,omitempty"`
	ProtocolKey     string           `json:"protocol_key,omitempty"`
	PhaseNumber     int              `json:"phase_number,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Outcome-Measure Models

// Questionnaire is a standardized outcome questionnaire definition.
type Questionnaire struct {
	ID          string      `json:"id"`
	Key         string      `json:"key"` // e.g. "odi", "koos"
	Name        string      `json:"name"`
	ScoringType ScoringType `json:"scoring_type"`
	MCID        float64     `json:"mcid"` // 0 means "use engine default"
}

// QuestionnaireItem is one item of a questionnaire.
type QuestionnaireItem struct {
	ID              string       `json:"id"`
	QuestionnaireID string       `json:"questionnaire_id"`
	Text            string       `json:"text"`
	ResponseType    ResponseType `json:"response_type"`
	DisplayOrder    int          `json:"display_order"`
}

// OutcomeAssessment stores raw per-item responses and the computed score
// for one questionnaire administration.
type OutcomeAssessment struct {
	ID               string            `json:"id"`
	QuestionnaireKey string            `json:"questionnaire_key"`
	Condition        string            `json:"condition"`
	Context          AssessmentContext `json:"context"`
	Responses        []float64         `json:"responses"`
	Score            float64           `json:"score"` // normalized 0-100 (or raw for NPRS/GROC)
	Interpretation   string            `json:"interpretation"`
	CompletedAt      time.Time         `json:"completed_at"`
}

// Validate ensures the outcome assessment carries a usable context tag.
func (o *OutcomeAssessment) Validate() error {
	if o.QuestionnaireKey == "" {
		return fmt.Errorf("outcome assessment validation: %w", errors.New("questionnaire key is required"))
	}
	if !o.Context.IsValid() {
		return fmt.Errorf("outcome assessment validation: invalid context %q", o.Context)
	}
	return nil
}

// OutcomeSummary compares a baseline and the most recent assessment for a
// condition. Change fields are nil when either side is missing.
type OutcomeSummary struct {
	Condition      string   `json:"condition"`
	BaselineScore  *float64 `json:"baseline_score,omitempty"`
	LatestScore    *float64 `json:"latest_score,omitempty"`
	FunctionChange *float64 `json:"function_change,omitempty"`
	PainChange     *float64 `json:"pain_change,omitempty"`
	IsMeaningful   bool     `json:"is_meaningful"`
	MCIDUsed       float64  `json:"mcid_used"`
}
