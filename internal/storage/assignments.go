package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkaneko/kameki/internal/learning"
)

// ApplyAssignments upserts server-fetched assignments and refreshes the
// subject_progress projection for each.
func (s *Store) ApplyAssignments(ctx context.Context, assignments []learning.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for i := range assignments {
			if err := putAssignment(ctx, tx, &assignments[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.ag.invalidate(EventAvailableItems, EventSRSCategories)
	return nil
}

func putAssignment(ctx context.Context, tx *sqlx.Tx, assignment *learning.Assignment) error {
	data, err := json.Marshal(assignment)
	if err != nil {
		return fmt.Errorf("json.Marshal(assignment %d) > %w", assignment.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (id, subject_id, level, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (subject_id) DO UPDATE SET id = excluded.id, level = excluded.level, data = excluded.data`,
		assignment.ID, assignment.SubjectID, assignment.Level, data); err != nil {
		return fmt.Errorf("tx.ExecContext(upsert assignment %d) > %w", assignment.ID, err)
	}
	return putProjection(ctx, tx, assignment, time.Time{})
}

// putProjection refreshes the flat projection row. A non-zero mistakeAt also
// stamps last_mistake_time; the stamp is otherwise preserved.
func putProjection(ctx context.Context, tx *sqlx.Tx, assignment *learning.Assignment, mistakeAt time.Time) error {
	var availableAt, mistake int64
	if !assignment.AvailableAt.IsZero() {
		availableAt = assignment.AvailableAt.Unix()
	}
	if !mistakeAt.IsZero() {
		mistake = mistakeAt.Unix()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO subject_progress
			(subject_id, level, subject_type, srs_stage, unlocked, started, available_at, last_mistake_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject_id) DO UPDATE SET
			level = excluded.level, subject_type = excluded.subject_type,
			srs_stage = excluded.srs_stage, unlocked = excluded.unlocked,
			started = excluded.started, available_at = excluded.available_at,
			last_mistake_time = MAX(last_mistake_time, excluded.last_mistake_time)`,
		assignment.SubjectID, assignment.Level, assignment.SubjectType, assignment.SRSStage,
		!assignment.UnlockedAt.IsZero(), !assignment.StartedAt.IsZero(), availableAt, mistake); err != nil {
		return fmt.Errorf("tx.ExecContext(upsert subject_progress %d) > %w", assignment.SubjectID, err)
	}
	return nil
}

// GetAssignment returns the assignment for one subject, or ErrNotFound.
func (s *Store) GetAssignment(ctx context.Context, subjectID int64) (*learning.Assignment, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data,
		"SELECT data FROM assignments WHERE subject_id = ?", subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(assignment %d) > %w", subjectID, err)
	}
	return decodeAssignment(data)
}

// GetAllAssignments returns every assignment in the mirror.
func (s *Store) GetAllAssignments(ctx context.Context) ([]learning.Assignment, error) {
	var rows [][]byte
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT data FROM assignments ORDER BY subject_id"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(assignments) > %w", err)
	}
	return decodeAssignments(rows)
}

// GetAssignmentsAtLevel returns the assignments for one level. Subjects with
// no server assignment yet get a synthesized stage-zero entry so per-level
// listings cover the whole level.
func (s *Store) GetAssignmentsAtLevel(ctx context.Context, level int) ([]learning.Assignment, error) {
	var rows [][]byte
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT data FROM assignments WHERE level = ? ORDER BY subject_id", level); err != nil {
		return nil, fmt.Errorf("db.SelectContext(assignments level %d) > %w", level, err)
	}
	assignments, err := decodeAssignments(rows)
	if err != nil {
		return nil, err
	}

	covered := make(map[int64]bool, len(assignments))
	for _, a := range assignments {
		covered[a.SubjectID] = true
	}

	type subjectRow struct {
		ID   int64                `db:"id"`
		Type learning.SubjectType `db:"subject_type"`
	}
	var subjects []subjectRow
	if err := s.db.SelectContext(ctx, &subjects,
		"SELECT id, subject_type FROM subjects WHERE level = ? ORDER BY id", level); err != nil {
		return nil, fmt.Errorf("db.SelectContext(subjects level %d) > %w", level, err)
	}
	for _, subject := range subjects {
		if covered[subject.ID] {
			continue
		}
		assignments = append(assignments, learning.Assignment{
			SubjectID:   subject.ID,
			SubjectType: subject.Type,
			Level:       level,
			SRSStage:    learning.StageUnstarted,
		})
	}
	return assignments, nil
}

// SendProgress records finished lessons and reviews: each progress is queued
// for upload and its assignment is advanced optimistically so the schedule
// stays right while offline. Everything happens in one transaction.
func (s *Store) SendProgress(ctx context.Context, progress []learning.Progress) error {
	if len(progress) == 0 {
		return nil
	}
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for i := range progress {
			if err := applyProgress(ctx, tx, &progress[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.ag.invalidate(EventAvailableItems, EventPendingItems, EventSRSCategories)
	return nil
}

func applyProgress(ctx context.Context, tx *sqlx.Tx, progress *learning.Progress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("json.Marshal(progress) > %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO pending_progress (data) VALUES (?)", data); err != nil {
		return fmt.Errorf("tx.ExecContext(insert pending_progress) > %w", err)
	}

	assignment := progress.Assignment
	newStage := progress.NewStage()
	assignment.SRSStage = newStage
	if progress.IsLesson {
		assignment.StartedAt = progress.CreatedAt
	}
	switch {
	case newStage >= learning.StageBurned:
		assignment.BurnedAt = progress.CreatedAt
		assignment.AvailableAt = time.Time{}
	default:
		// The server schedules reviews on hour boundaries.
		assignment.AvailableAt = progress.CreatedAt.Truncate(time.Hour).
			Add(newStage.Duration(assignment.Level))
	}

	var mistakeAt time.Time
	if progress.MeaningWrong || progress.ReadingWrong {
		mistakeAt = progress.CreatedAt
	}

	assignmentData, err := json.Marshal(&assignment)
	if err != nil {
		return fmt.Errorf("json.Marshal(assignment %d) > %w", assignment.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (id, subject_id, level, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (subject_id) DO UPDATE SET level = excluded.level, data = excluded.data`,
		assignment.ID, assignment.SubjectID, assignment.Level, assignmentData); err != nil {
		return fmt.Errorf("tx.ExecContext(advance assignment %d) > %w", assignment.ID, err)
	}
	return putProjection(ctx, tx, &assignment, mistakeAt)
}

// PendingProgress is one outbox entry awaiting upload.
type PendingProgress struct {
	ID       int64
	Progress learning.Progress
}

// GetPendingProgress returns the upload outbox, oldest first.
func (s *Store) GetPendingProgress(ctx context.Context) ([]PendingProgress, error) {
	type row struct {
		ID   int64  `db:"id"`
		Data []byte `db:"data"`
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT id, data FROM pending_progress ORDER BY id"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(pending_progress) > %w", err)
	}
	pending := make([]PendingProgress, 0, len(rows))
	for _, r := range rows {
		var progress learning.Progress
		if err := json.Unmarshal(r.Data, &progress); err != nil {
			return nil, fmt.Errorf("json.Unmarshal(pending_progress %d) > %w", r.ID, err)
		}
		pending = append(pending, PendingProgress{ID: r.ID, Progress: progress})
	}
	return pending, nil
}

// ClearPendingProgress removes one outbox entry after a successful upload or
// a permanent rejection.
func (s *Store) ClearPendingProgress(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM pending_progress WHERE id = ?", id); err != nil {
		return fmt.Errorf("db.ExecContext(delete pending_progress %d) > %w", id, err)
	}
	s.ag.invalidate(EventPendingItems)
	return nil
}

// Mistake is one recently missed subject.
type Mistake struct {
	SubjectID int64
	At        time.Time
}

// RecentMistakes returns subjects answered wrong since the cutoff, newest
// first.
func (s *Store) RecentMistakes(ctx context.Context, since time.Time) ([]Mistake, error) {
	type row struct {
		SubjectID int64 `db:"subject_id"`
		At        int64 `db:"last_mistake_time"`
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT subject_id, last_mistake_time FROM subject_progress
		WHERE last_mistake_time >= ? ORDER BY last_mistake_time DESC`,
		since.Unix()); err != nil {
		return nil, fmt.Errorf("db.SelectContext(recent mistakes) > %w", err)
	}
	mistakes := make([]Mistake, 0, len(rows))
	for _, r := range rows {
		mistakes = append(mistakes, Mistake{SubjectID: r.SubjectID, At: time.Unix(r.At, 0).UTC()})
	}
	return mistakes, nil
}

func decodeAssignment(data []byte) (*learning.Assignment, error) {
	var assignment learning.Assignment
	if err := json.Unmarshal(data, &assignment); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(assignment) > %w", err)
	}
	return &assignment, nil
}

func decodeAssignments(rows [][]byte) ([]learning.Assignment, error) {
	assignments := make([]learning.Assignment, 0, len(rows))
	for _, data := range rows {
		assignment, err := decodeAssignment(data)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *assignment)
	}
	return assignments, nil
}
