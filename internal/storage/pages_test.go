package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaneko/kameki/internal/learning"
)

func TestApplySubjectsPage(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	subject := &learning.Subject{ID: 440, Type: learning.SubjectKanji, Level: 2, Japanese: "犬"}
	doomed := &learning.Subject{ID: 999, Type: learning.SubjectKanji, Level: 2, Japanese: "猫"}
	require.NoError(t, store.PutSubjects(ctx, []*learning.Subject{doomed}))

	require.NoError(t, store.ApplySubjectsPage(ctx,
		[]*learning.Subject{subject}, []int64{999}, "2024-05-01T10:00:00Z"))

	got, err := store.GetSubject(ctx, 440)
	require.NoError(t, err)
	assert.Equal(t, subject, got)
	_, err = store.GetSubject(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	cursor, err := store.Cursor(ctx, CursorSubjects)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:00:00Z", cursor)

	// An empty listing carries no watermark and moves nothing.
	require.NoError(t, store.ApplySubjectsPage(ctx, nil, nil, ""))
	cursor, err = store.Cursor(ctx, CursorSubjects)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:00:00Z", cursor)
}

func TestApplySubjectsPageFailureLeavesNoTrace(t *testing.T) {
	store := openStore(t)
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	subject := &learning.Subject{ID: 440, Type: learning.SubjectKanji, Level: 2, Japanese: "犬"}
	err := store.ApplySubjectsPage(canceled, []*learning.Subject{subject}, nil, "2024-05-01T10:00:00Z")
	require.Error(t, err)

	// Records and cursor move together or not at all.
	ctx := context.Background()
	_, err = store.GetSubject(ctx, 440)
	assert.ErrorIs(t, err, ErrNotFound)
	cursor, err := store.Cursor(ctx, CursorSubjects)
	require.NoError(t, err)
	assert.Empty(t, cursor)
}

func TestApplyAssignmentsPage(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()

	assignment := reviewAssignment(10, 440, 2, learning.StageGuru1, now.Add(-time.Hour))
	require.NoError(t, store.ApplyAssignmentsPage(ctx,
		[]learning.Assignment{assignment}, "2024-05-01T10:00:01Z"))

	got, err := store.GetAssignment(ctx, 440)
	require.NoError(t, err)
	assert.Equal(t, &assignment, got)

	cursor, err := store.Cursor(ctx, CursorAssignments)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:00:01Z", cursor)

	reviews, err := store.AvailableReviewCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reviews)
}

func TestPendingProgressSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kameki.db")

	store, err := Open(path)
	require.NoError(t, err)

	now := time.Now().UTC()
	assignment := reviewAssignment(10, 440, 2, learning.StageApprentice1, now.Add(-time.Hour))
	require.NoError(t, store.ApplyAssignments(ctx, []learning.Assignment{assignment}))
	require.NoError(t, store.SendProgress(ctx, []learning.Progress{
		{Assignment: assignment, CreatedAt: now, MeaningWrongCount: 1},
	}))
	require.NoError(t, store.Close())

	// The outbox is durable: a restart before the upload loses nothing.
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	pending, err := store.GetPendingProgress(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(440), pending[0].Progress.Assignment.SubjectID)
	assert.Equal(t, 1, pending[0].Progress.MeaningWrongCount)
}
