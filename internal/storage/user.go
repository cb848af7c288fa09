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

// PutUser stores the account record.
func (s *Store) PutUser(ctx context.Context, user *learning.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("json.Marshal(user) > %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO user (id, data) VALUES (0, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data`, data); err != nil {
		return fmt.Errorf("db.ExecContext(upsert user) > %w", err)
	}
	s.ag.invalidate(EventUser, EventAvailableItems)
	return nil
}

// GetUser returns the account record, or ErrNotFound before the first sync.
func (s *Store) GetUser(ctx context.Context) (*learning.User, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, "SELECT data FROM user WHERE id = 0")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(user) > %w", err)
	}
	var user learning.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(user) > %w", err)
	}
	return &user, nil
}

// PutLevelProgressions upserts per-level progression records.
func (s *Store) PutLevelProgressions(ctx context.Context, progressions []learning.LevelProgression) error {
	if len(progressions) == 0 {
		return nil
	}
	return s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for i := range progressions {
			if err := putLevelProgression(ctx, tx, &progressions[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func putLevelProgression(ctx context.Context, tx *sqlx.Tx, p *learning.LevelProgression) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("json.Marshal(level_progression %d) > %w", p.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO level_progressions (id, level, data) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET level = excluded.level, data = excluded.data`,
		p.ID, p.Level, data); err != nil {
		return fmt.Errorf("tx.ExecContext(upsert level_progression %d) > %w", p.ID, err)
	}
	return nil
}

// GetLevelProgressions returns all progression records ordered by level.
func (s *Store) GetLevelProgressions(ctx context.Context) ([]learning.LevelProgression, error) {
	var rows [][]byte
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT data FROM level_progressions ORDER BY level"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(level_progressions) > %w", err)
	}
	progressions := make([]learning.LevelProgression, 0, len(rows))
	for _, data := range rows {
		var p learning.LevelProgression
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("json.Unmarshal(level_progression) > %w", err)
		}
		progressions = append(progressions, p)
	}
	return progressions, nil
}

// PutVoiceActors upserts voice actor records.
func (s *Store) PutVoiceActors(ctx context.Context, actors []learning.VoiceActor) error {
	if len(actors) == 0 {
		return nil
	}
	return s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for i := range actors {
			if err := putVoiceActor(ctx, tx, &actors[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func putVoiceActor(ctx context.Context, tx *sqlx.Tx, actor *learning.VoiceActor) error {
	data, err := json.Marshal(actor)
	if err != nil {
		return fmt.Errorf("json.Marshal(voice_actor %d) > %w", actor.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO voice_actors (id, data) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data`,
		actor.ID, data); err != nil {
		return fmt.Errorf("tx.ExecContext(upsert voice_actor %d) > %w", actor.ID, err)
	}
	return nil
}

// GetVoiceActors returns all voice actor records.
func (s *Store) GetVoiceActors(ctx context.Context) ([]learning.VoiceActor, error) {
	var rows [][]byte
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT data FROM voice_actors ORDER BY id"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(voice_actors) > %w", err)
	}
	actors := make([]learning.VoiceActor, 0, len(rows))
	for _, data := range rows {
		var actor learning.VoiceActor
		if err := json.Unmarshal(data, &actor); err != nil {
			return nil, fmt.Errorf("json.Unmarshal(voice_actor) > %w", err)
		}
		actors = append(actors, actor)
	}
	return actors, nil
}

// Cursor returns the incremental-sync watermark for an entity, or the empty
// string when a full fetch is needed.
func (s *Store) Cursor(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		"SELECT value FROM sync_cursors WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("db.GetContext(cursor %s) > %w", name, err)
	}
	return value, nil
}

// SetCursor stores the watermark for an entity.
func (s *Store) SetCursor(ctx context.Context, name, value string) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		return setCursorTx(ctx, tx, name, value)
	})
}

func setCursorTx(ctx context.Context, tx *sqlx.Tx, name, value string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sync_cursors (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`, name, value); err != nil {
		return fmt.Errorf("tx.ExecContext(set cursor %s) > %w", name, err)
	}
	return nil
}

// ResetCursor forgets one entity's watermark so the next sync refetches it
// from scratch.
func (s *Store) ResetCursor(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sync_cursors WHERE name = ?", name); err != nil {
		return fmt.Errorf("db.ExecContext(reset cursor %s) > %w", name, err)
	}
	return nil
}

// ResetCursors forgets every watermark, forcing the next sync to refetch all
// entities.
func (s *Store) ResetCursors(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sync_cursors"); err != nil {
		return fmt.Errorf("db.ExecContext(reset cursors) > %w", err)
	}
	return nil
}

// errorLogLimit caps the error log; older entries are dropped as new ones
// arrive.
const errorLogLimit = 100

// LoggedError is one recorded failure. Code is the HTTP status when the
// failure came from the service, zero otherwise.
type LoggedError struct {
	CreatedAt time.Time
	Code      int
	Message   string
}

// LogError appends to the error log ring.
func (s *Store) LogError(ctx context.Context, code int, message string) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO error_log (created_at, code, message) VALUES (?, ?, ?)",
			time.Now().Unix(), code, message); err != nil {
			return fmt.Errorf("tx.ExecContext(insert error_log) > %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM error_log WHERE id NOT IN
				(SELECT id FROM error_log ORDER BY id DESC LIMIT ?)`,
			errorLogLimit); err != nil {
			return fmt.Errorf("tx.ExecContext(trim error_log) > %w", err)
		}
		return nil
	})
}

// RecentErrors returns the error log, newest first.
func (s *Store) RecentErrors(ctx context.Context) ([]LoggedError, error) {
	type row struct {
		CreatedAt int64  `db:"created_at"`
		Code      int    `db:"code"`
		Message   string `db:"message"`
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT created_at, code, message FROM error_log ORDER BY id DESC"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(error_log) > %w", err)
	}
	logged := make([]LoggedError, 0, len(rows))
	for _, r := range rows {
		logged = append(logged, LoggedError{
			CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
			Code:      r.Code,
			Message:   r.Message,
		})
	}
	return logged, nil
}
