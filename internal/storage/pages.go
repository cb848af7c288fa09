package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mkaneko/kameki/internal/learning"
)

// Cursor names, one per entity listing.
const (
	CursorSubjects          = "subjects"
	CursorAssignments       = "assignments"
	CursorStudyMaterials    = "study_materials"
	CursorLevelProgressions = "level_progressions"
	CursorVoiceActors       = "voice_actors"
)

// The ApplyXPage methods commit one fetched page set together with its cursor
// watermark in a single transaction: a crash can never leave applied records
// behind an unadvanced cursor, or an advanced cursor over missing records. An
// empty watermark (empty listing) leaves the cursor alone.

// ApplySubjectsPage commits fetched catalog entries, tombstoned ids and the
// subjects cursor.
func (s *Store) ApplySubjectsPage(ctx context.Context, subjects []*learning.Subject, hidden []int64, dataUpdatedAt string) error {
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, subject := range subjects {
			if err := putSubject(ctx, tx, subject); err != nil {
				return err
			}
		}
		for _, id := range hidden {
			if err := deleteSubject(ctx, tx, id); err != nil {
				return err
			}
		}
		return advanceCursorTx(ctx, tx, CursorSubjects, dataUpdatedAt)
	})
	if err != nil {
		return err
	}
	if len(subjects) > 0 || len(hidden) > 0 {
		s.ag.invalidate(EventAvailableItems, EventSRSCategories)
	}
	return nil
}

// ApplyAssignmentsPage commits fetched assignments, their projection rows and
// the assignments cursor. The caller has already joined levels on.
func (s *Store) ApplyAssignmentsPage(ctx context.Context, assignments []learning.Assignment, dataUpdatedAt string) error {
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for i := range assignments {
			if err := putAssignment(ctx, tx, &assignments[i]); err != nil {
				return err
			}
		}
		return advanceCursorTx(ctx, tx, CursorAssignments, dataUpdatedAt)
	})
	if err != nil {
		return err
	}
	if len(assignments) > 0 {
		s.ag.invalidate(EventAvailableItems, EventSRSCategories)
	}
	return nil
}

// ApplyStudyMaterialsPage commits fetched study materials and their cursor
// without touching the upload outbox.
func (s *Store) ApplyStudyMaterialsPage(ctx context.Context, materials []learning.StudyMaterial, dataUpdatedAt string) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for i := range materials {
			if err := putStudyMaterial(ctx, tx, &materials[i]); err != nil {
				return err
			}
		}
		return advanceCursorTx(ctx, tx, CursorStudyMaterials, dataUpdatedAt)
	})
}

// ApplyLevelProgressionsPage commits fetched level progressions and their
// cursor.
func (s *Store) ApplyLevelProgressionsPage(ctx context.Context, progressions []learning.LevelProgression, dataUpdatedAt string) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for i := range progressions {
			if err := putLevelProgression(ctx, tx, &progressions[i]); err != nil {
				return err
			}
		}
		return advanceCursorTx(ctx, tx, CursorLevelProgressions, dataUpdatedAt)
	})
}

// ApplyVoiceActorsPage commits fetched voice actors and their cursor.
func (s *Store) ApplyVoiceActorsPage(ctx context.Context, actors []learning.VoiceActor, dataUpdatedAt string) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for i := range actors {
			if err := putVoiceActor(ctx, tx, &actors[i]); err != nil {
				return err
			}
		}
		return advanceCursorTx(ctx, tx, CursorVoiceActors, dataUpdatedAt)
	})
}

func advanceCursorTx(ctx context.Context, tx *sqlx.Tx, name, dataUpdatedAt string) error {
	if dataUpdatedAt == "" {
		return nil
	}
	return setCursorTx(ctx, tx, name, dataUpdatedAt)
}
