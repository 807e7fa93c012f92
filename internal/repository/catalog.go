// Package repository provides Postgres-backed implementations of the
// engine's catalog, questionnaire, and persistence interfaces. "No rows"
// maps to domain.ErrNotFound so callers can fall back; any other failure
// wraps domain.ErrCatalogUnavailable because the engine must not reason
// about an unreadable catalog.
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

// CatalogRepository reads the exercise, routine, and protocol catalog.
type CatalogRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *pgxpool.Pool, logger *logrus.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:  db,
		log: logger,
	}
}

// ListActiveExercises returns every active catalog exercise ordered by
// display order.
func (r *CatalogRepository) ListActiveExercises(ctx context.Context) ([]domain.ExerciseRecord, error) {
	query := `
		SELECT id, name, description, body_parts, conditions, keywords,
			   difficulty, contraindications, safety_notes, display_order,
			   featured, default_sets, default_reps, default_hold_seconds,
			   default_frequency
		FROM exercises
		WHERE active = true
		ORDER BY display_order, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to list active exercises")
		return nil, fmt.Errorf("listing active exercises: %w", domain.ErrCatalogUnavailable)
	}
	defer rows.Close()

	var exercises []domain.ExerciseRecord
	for rows.Next() {
		var e domain.ExerciseRecord
		err := rows.Scan(
			&e.ID,
			&e.Name,
			&e.Description,
			&e.BodyParts,
			&e.Conditions,
			&e.Keywords,
			&e.Difficulty,
			&e.Contraindications,
			&e.SafetyNotes,
			&e.DisplayOrder,
			&e.Featured,
			&e.DefaultDosage.Sets,
			&e.DefaultDosage.Reps,
			&e.DefaultDosage.HoldSeconds,
			&e.DefaultDosage.Frequency,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise row: %w", domain.ErrCatalogUnavailable)
		}
		exercises = append(exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading exercise rows: %w", domain.ErrCatalogUnavailable)
	}

	return exercises, nil
}

// ListActiveRoutines returns every active curated routine.
func (r *CatalogRepository) ListActiveRoutines(ctx context.Context) ([]domain.RoutineRecord, error) {
	query := `
		SELECT id, name, description, target_symptoms, exclusion_criteria,
			   disclaimer
		FROM routines
		WHERE active = true
		ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to list active routines")
		return nil, fmt.Errorf("listing active routines: %w", domain.ErrCatalogUnavailable)
	}
	defer rows.Close()

	var routines []domain.RoutineRecord
	for rows.Next() {
		var rt domain.RoutineRecord
		err := rows.Scan(
			&rt.ID,
			&rt.Name,
			&rt.Description,
			&rt.TargetSymptoms,
			&rt.ExclusionCriteria,
			&rt.Disclaimer,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning routine row: %w", domain.ErrCatalogUnavailable)
		}
		routines = append(routines, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading routine rows: %w", domain.ErrCatalogUnavailable)
	}

	return routines, nil
}

// GetRoutineItems returns a routine's ordered items with their exercises.
func (r *CatalogRepository) GetRoutineItems(ctx context.Context, routineID string) ([]domain.RoutineItem, error) {
	query := `
		SELECT ri.routine_id, ri.phase_label, ri.phase_notes,
			   ri.sequence_order, ri.optional,
			   ri.sets, ri.reps, ri.hold_seconds, ri.frequency,
			   e.id, e.name, e.description, e.body_parts, e.conditions,
			   e.keywords, e.difficulty, e.contraindications, e.safety_notes,
			   e.display_order, e.featured, e.default_sets, e.default_reps,
			   e.default_hold_seconds, e.default_frequency
		FROM routine_items ri
		JOIN exercises e ON e.id = ri.exercise_id
		WHERE ri.routine_id = $1
		ORDER BY ri.sequence_order`

	rows, err := r.db.Query(ctx, query, routineID)
	if err != nil {
		r.log.WithError(err).WithField("routine_id", routineID).Error("Failed to get routine items")
		return nil, fmt.Errorf("getting routine items: %w", domain.ErrCatalogUnavailable)
	}
	defer rows.Close()

	var items []domain.RoutineItem
	for rows.Next() {
		var item domain.RoutineItem
		var e domain.ExerciseRecord
		err := rows.Scan(
			&item.RoutineID,
			&item.PhaseLabel,
			&item.PhaseNotes,
			&item.SequenceOrder,
			&item.Optional,
			&item.Dosage.Sets,
			&item.Dosage.Reps,
			&item.Dosage.HoldSeconds,
			&item.Dosage.Frequency,
			&e.ID,
			&e.Name,
			&e.Description,
			&e.BodyParts,
			&e.Conditions,
			&e.Keywords,
			&e.Difficulty,
			&e.Contraindications,
			&e.SafetyNotes,
			&e.DisplayOrder,
			&e.Featured,
			&e.DefaultDosage.Sets,
			&e.DefaultDosage.Reps,
			&e.DefaultDosage.HoldSeconds,
			&e.DefaultDosage.Frequency,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning routine item row: %w", domain.ErrCatalogUnavailable)
		}
		item.Exercise = &e
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading routine item rows: %w", domain.ErrCatalogUnavailable)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("routine %q has no items: %w", routineID, domain.ErrNotFound)
	}
	return items, nil
}

// FindProtocol looks up a rehabilitation protocol by its derived key.
func (r *CatalogRepository) FindProtocol(ctx context.Context, protocolKey string) (*domain.ProtocolRecord, error) {
	query := `
		SELECT id, protocol_key, name
		FROM rehab_protocols
		WHERE protocol_key = $1`

	var protocol domain.ProtocolRecord
	err := r.db.QueryRow(ctx, query, protocolKey).Scan(
		&protocol.ID,
		&protocol.ProtocolKey,
		&protocol.Name,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("protocol %q not found: %w", protocolKey, domain.ErrNotFound)
		}
		r.log.WithError(err).WithField("protocol_key", protocolKey).Error("Failed to find protocol")
		return nil, fmt.Errorf("finding protocol: %w", domain.ErrCatalogUnavailable)
	}

	return &protocol, nil
}

// GetPhaseExercises returns the exercises registered for one protocol
// phase in sequence order.
func (r *CatalogRepository) GetPhaseExercises(ctx context.Context, protocolID string, phaseNumber int) ([]domain.PhaseExercise, error) {
	query := `
		SELECT pe.protocol_id, pe.phase_number, pe.phase_notes,
			   pe.sequence_order,
			   pe.sets, pe.reps, pe.hold_seconds, pe.frequency,
			   e.id, e.name, e.description, e.body_parts, e.conditions,
			   e.keywords, e.difficulty, e.contraindications, e.safety_notes,
			   e.display_order, e.featured, e.default_sets, e.default_reps,
			   e.default_hold_seconds, e.default_frequency
		FROM protocol_phase_exercises pe
		JOIN exercises e ON e.id = pe.exercise_id
		WHERE pe.protocol_id = $1 AND pe.phase_number = $2
		ORDER BY pe.sequence_order`

	rows, err := r.db.Query(ctx, query, protocolID, phaseNumber)
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"protocol_id": protocolID,
			"phase":       phaseNumber,
		}).Error("Failed to get phase exercises")
		return nil, fmt.Errorf("getting phase exercises: %w", domain.ErrCatalogUnavailable)
	}
	defer rows.Close()

	var phaseExercises []domain.PhaseExercise
	for rows.Next() {
		var pe domain.PhaseExercise
		var e domain.ExerciseRecord
		err := rows.Scan(
			&pe.ProtocolID,
			&pe.PhaseNumber,
			&pe.PhaseNotes,
			&pe.SequenceOrder,
			&pe.Dosage.Sets,
			&pe.Dosage.Reps,
			&pe.Dosage.HoldSeconds,
			&pe.Dosage.Frequency,
			&e.ID,
			&e.Name,
			&e.Description,
			&e.BodyParts,
			&e.Conditions,
			&e.Keywords,
			&e.Difficulty,
			&e.Contraindications,
			&e.SafetyNotes,
			&e.DisplayOrder,
			&e.Featured,
			&e.DefaultDosage.Sets,
			&e.DefaultDosage.Reps,
			&e.DefaultDosage.HoldSeconds,
			&e.DefaultDosage.Frequency,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning phase exercise row: %w", domain.ErrCatalogUnavailable)
		}
		pe.Exercise = &e
		phaseExercises = append(phaseExercises, pe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading phase exercise rows: %w", domain.ErrCatalogUnavailable)
	}

	return phaseExercises, nil
}
