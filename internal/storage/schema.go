package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Each entry migrates the schema one version forward; PRAGMA user_version
// records how far a database has come. Entries are append-only.
var migrations = []string{
	// v1: catalog, assignments, study materials, the upload outboxes and
	// bookkeeping tables. Entity payloads are stored as JSON; columns exist
	// only where SQL needs to filter or join.
	`CREATE TABLE subjects (
		id INTEGER PRIMARY KEY,
		level INTEGER NOT NULL,
		subject_type INTEGER NOT NULL,
		japanese TEXT NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX idx_subjects_level ON subjects (level);
	CREATE INDEX idx_subjects_japanese ON subjects (japanese);

	CREATE TABLE assignments (
		id INTEGER PRIMARY KEY,
		subject_id INTEGER NOT NULL UNIQUE,
		level INTEGER NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX idx_assignments_level ON assignments (level);

	CREATE TABLE study_materials (
		subject_id INTEGER PRIMARY KEY,
		data TEXT NOT NULL
	);

	CREATE TABLE pending_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL
	);

	CREATE TABLE pending_study_materials (
		subject_id INTEGER PRIMARY KEY,
		data TEXT NOT NULL
	);

	CREATE TABLE user (
		id INTEGER PRIMARY KEY CHECK (id = 0),
		data TEXT NOT NULL
	);

	CREATE TABLE sync_cursors (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE error_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		code INTEGER NOT NULL,
		message TEXT NOT NULL
	);`,

	// v2: flat projection of per-subject progress so the dashboard
	// aggregates never decode assignment JSON.
	`CREATE TABLE subject_progress (
		subject_id INTEGER PRIMARY KEY,
		level INTEGER NOT NULL,
		subject_type INTEGER NOT NULL,
		srs_stage INTEGER NOT NULL,
		unlocked INTEGER NOT NULL DEFAULT 0,
		started INTEGER NOT NULL DEFAULT 0,
		available_at INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX idx_subject_progress_available ON subject_progress (available_at);`,

	// v3: level progressions and voice actors.
	`CREATE TABLE level_progressions (
		id INTEGER PRIMARY KEY,
		level INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE TABLE voice_actors (
		id INTEGER PRIMARY KEY,
		data TEXT NOT NULL
	);`,

	// v4: audio urls extracted from subjects at apply time.
	`CREATE TABLE audio_urls (
		subject_id INTEGER NOT NULL,
		voice_actor_id INTEGER NOT NULL,
		level INTEGER NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (subject_id, voice_actor_id, url)
	);`,

	// v5: when the subject was last answered wrong, for the recent-mistakes
	// listing.
	`ALTER TABLE subject_progress ADD COLUMN last_mistake_time INTEGER NOT NULL DEFAULT 0;`,
}

func migrate(db *sqlx.DB) error {
	var version int
	if err := db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("db.Get(user_version) > %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("database version %d is newer than this build supports (%d)", version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("db.Beginx() > %w", err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("tx.Exec(migration %d) > %w", v+1, err)
		}
		// PRAGMA does not accept bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("tx.Exec(user_version %d) > %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit() > %w", err)
		}
	}
	return nil
}
