// Package storage persists the local mirror of the remote service: the
// subject catalog, the user's assignments and study materials, the pending
// upload outboxes, sync cursors, an error log and the derived dashboard
// aggregates. All durable state lives in one SQLite database.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mkaneko/kameki/internal/database"
)

// ErrNotFound is returned by single-record lookups when no row matches.
var ErrNotFound = errors.New("storage: not found")

// Store is the single entry point to the local database. It is safe for
// concurrent use; SQLite serializes the writes underneath.
type Store struct {
	db     *sqlx.DB
	ag     *aggregates
	closed bool
}

// Open opens (and migrates) the database at path.
func Open(path string) (*Store, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("database.Open() > %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate() > %w", err)
	}
	s := &Store{db: db}
	s.ag = newAggregates(s)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// RunInTx runs fn inside one transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	return database.RunInTx(ctx, s.db, fn)
}

// ClearAllData drops every row while keeping the schema, returning the store
// to its freshly-opened state. Used when the user logs out or switches
// accounts.
func (s *Store) ClearAllData(ctx context.Context) error {
	tables := []string{
		"subjects",
		"assignments",
		"subject_progress",
		"study_materials",
		"pending_progress",
		"pending_study_materials",
		"user",
		"level_progressions",
		"voice_actors",
		"audio_urls",
		"error_log",
		"sync_cursors",
	}
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("tx.ExecContext(delete %s) > %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.ag.invalidateAll()
	return nil
}
