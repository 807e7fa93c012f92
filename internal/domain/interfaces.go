package domain

import (
	"context"
)

// CatalogReader provides read-only access to the exercise, routine, and
// protocol catalog. Implementations map "no rows" to ErrNotFound and wrap
// transport failures with ErrCatalogUnavailable so the engine can
// distinguish recoverable fallback states from hard failures.
type CatalogReader interface {
	ListActiveExercises(ctx context.Context) ([]ExerciseRecord, error)
	ListActiveRoutines(ctx context.Context) ([]RoutineRecord, error)
	GetRoutineItems(ctx context.Context, routineID string) ([]RoutineItem, error)
	FindProtocol(ctx context.Context, protocolKey string) (*ProtocolRecord, error)
	GetPhaseExercises(ctx context.Context, protocolID string, phaseNumber int) ([]PhaseExercise, error)
}

// QuestionnaireReader provides read-only access to outcome questionnaire
// definitions.
type QuestionnaireReader interface {
	GetQuestionnaireByKey(ctx context.Context, key string) (*Questionnaire, error)
	GetItemsForQuestionnaire(ctx context.Context, questionnaireID string) ([]QuestionnaireItem, error)
}

// RecommendationSink persists a finished recommendation set. The engine
// decides what is written, never how it is stored.
type RecommendationSink interface {
	SaveResult(ctx context.Context, result *RecommendationResult) error
}

// AdvisoryPhraser optionally rephrases safety guidance for presentation.
// Its output is advisory only: the engine's deterministic safety notes are
// always present whether or not this collaborator is reachable.
type AdvisoryPhraser interface {
	PhraseSafetyNote(ctx context.Context, riskLevel RiskLevel, notes []string) (string, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetCacheConfig() *CacheConfig
	GetAdvisoryConfig() *AdvisoryConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
