package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mkaneko/kameki/internal/learning"
)

// PutSubjects upserts catalog entries and refreshes their extracted audio
// urls in one transaction.
func (s *Store) PutSubjects(ctx context.Context, subjects []*learning.Subject) error {
	if len(subjects) == 0 {
		return nil
	}
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, subject := range subjects {
			if err := putSubject(ctx, tx, subject); err != nil {
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

func putSubject(ctx context.Context, tx *sqlx.Tx, subject *learning.Subject) error {
	data, err := json.Marshal(subject)
	if err != nil {
		return fmt.Errorf("json.Marshal(subject %d) > %w", subject.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO subjects (id, level, subject_type, japanese, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET level = excluded.level, subject_type = excluded.subject_type,
			japanese = excluded.japanese, data = excluded.data`,
		subject.ID, subject.Level, subject.Type, subject.Japanese, data); err != nil {
		return fmt.Errorf("tx.ExecContext(upsert subject %d) > %w", subject.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM audio_urls WHERE subject_id = ?", subject.ID); err != nil {
		return fmt.Errorf("tx.ExecContext(delete audio_urls %d) > %w", subject.ID, err)
	}
	for _, clip := range subject.Audio {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO audio_urls (subject_id, voice_actor_id, level, url) VALUES (?, ?, ?, ?)`,
			subject.ID, clip.VoiceActorID, subject.Level, clip.URL); err != nil {
			return fmt.Errorf("tx.ExecContext(insert audio_url %d) > %w", subject.ID, err)
		}
	}
	return nil
}

// DeleteSubjects removes catalog entries the server has hidden, together with
// their dependent rows.
func (s *Store) DeleteSubjects(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, id := range ids {
			if err := deleteSubject(ctx, tx, id); err != nil {
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

func deleteSubject(ctx context.Context, tx *sqlx.Tx, id int64) error {
	for _, stmt := range []string{
		"DELETE FROM subjects WHERE id = ?",
		"DELETE FROM assignments WHERE subject_id = ?",
		"DELETE FROM subject_progress WHERE subject_id = ?",
		"DELETE FROM study_materials WHERE subject_id = ?",
		"DELETE FROM audio_urls WHERE subject_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("tx.ExecContext(delete subject %d) > %w", id, err)
		}
	}
	return nil
}

// GetSubject returns the catalog entry by id, or ErrNotFound.
func (s *Store) GetSubject(ctx context.Context, id int64) (*learning.Subject, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, "SELECT data FROM subjects WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(subject %d) > %w", id, err)
	}
	return decodeSubject(data)
}

// GetSubjectByJapanese returns the catalog entry with the given written form
// and type, or ErrNotFound. The pair is unique in practice.
func (s *Store) GetSubjectByJapanese(ctx context.Context, japanese string, subjectType learning.SubjectType) (*learning.Subject, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data,
		"SELECT data FROM subjects WHERE japanese = ? AND subject_type = ? LIMIT 1",
		japanese, subjectType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(subject %q) > %w", japanese, err)
	}
	return decodeSubject(data)
}

// GetSubjectsAtLevel returns every catalog entry at one level.
func (s *Store) GetSubjectsAtLevel(ctx context.Context, level int) ([]*learning.Subject, error) {
	var rows [][]byte
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT data FROM subjects WHERE level = ? ORDER BY id", level); err != nil {
		return nil, fmt.Errorf("db.SelectContext(subjects level %d) > %w", level, err)
	}
	subjects := make([]*learning.Subject, 0, len(rows))
	for _, data := range rows {
		subject, err := decodeSubject(data)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

// HasSubject reports whether the catalog contains the id. The review
// scheduler uses it to skip assignments whose subject was hidden.
func (s *Store) HasSubject(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, "SELECT 1 FROM subjects WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db.GetContext(has subject %d) > %w", id, err)
	}
	return true, nil
}

// SubjectLevels returns the id to level mapping for the whole catalog. The
// sync engine joins it onto fetched assignments, whose wire records carry no
// level.
func (s *Store) SubjectLevels(ctx context.Context) (map[int64]int, error) {
	type row struct {
		ID    int64 `db:"id"`
		Level int   `db:"level"`
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, level FROM subjects"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(subject levels) > %w", err)
	}
	levels := make(map[int64]int, len(rows))
	for _, r := range rows {
		levels[r.ID] = r.Level
	}
	return levels, nil
}

// CountSubjects returns the catalog size.
func (s *Store) CountSubjects(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM subjects"); err != nil {
		return 0, fmt.Errorf("db.GetContext(count subjects) > %w", err)
	}
	return count, nil
}

// AudioURL is one pronunciation recording reference.
type AudioURL struct {
	SubjectID    int64  `db:"subject_id"`
	VoiceActorID int64  `db:"voice_actor_id"`
	Level        int    `db:"level"`
	URL          string `db:"url"`
}

// AudioURLs returns the recordings for a subject, optionally restricted to
// one voice actor (pass zero for all).
func (s *Store) AudioURLs(ctx context.Context, subjectID, voiceActorID int64) ([]AudioURL, error) {
	query := "SELECT subject_id, voice_actor_id, level, url FROM audio_urls WHERE subject_id = ?"
	args := []any{subjectID}
	if voiceActorID != 0 {
		query += " AND voice_actor_id = ?"
		args = append(args, voiceActorID)
	}
	var urls []AudioURL
	if err := s.db.SelectContext(ctx, &urls, query, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext(audio_urls %d) > %w", subjectID, err)
	}
	return urls, nil
}

func decodeSubject(data []byte) (*learning.Subject, error) {
	var subject learning.Subject
	if err := json.Unmarshal(data, &subject); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(subject) > %w", err)
	}
	return &subject, nil
}
