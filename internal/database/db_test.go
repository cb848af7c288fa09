package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "creates the database file",
			path: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "kameki.db")
			},
		},
		{
			name: "in memory database",
			path: func(t *testing.T) string {
				return ":memory:"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Open(tt.path(t))
			require.NoError(t, err)
			require.NotNil(t, got)
			defer got.Close()

			assert.Equal(t, "sqlite3", got.DriverName())

			_, err = got.Exec("CREATE TABLE scratch (id INTEGER PRIMARY KEY)")
			assert.NoError(t, err)
		})
	}
}

func TestRunInTx(t *testing.T) {
	open := func(t *testing.T) *sqlx.DB {
		db, err := Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		_, err = db.Exec("CREATE TABLE scratch (id INTEGER PRIMARY KEY)")
		require.NoError(t, err)
		return db
	}

	t.Run("commits on success", func(t *testing.T) {
		db := open(t)
		err := RunInTx(context.Background(), db, func(ctx context.Context, tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, "INSERT INTO scratch (id) VALUES (1)")
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM scratch"))
		assert.Equal(t, 1, count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db := open(t)
		wantErr := errors.New("boom")
		err := RunInTx(context.Background(), db, func(ctx context.Context, tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, "INSERT INTO scratch (id) VALUES (1)"); err != nil {
				return err
			}
			return wantErr
		})
		require.ErrorIs(t, err, wantErr)

		var count int
		require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM scratch"))
		assert.Equal(t, 0, count)
	})
}
