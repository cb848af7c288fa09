package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaneko/kameki/internal/learning"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenMigratesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kameki.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.PutUser(context.Background(), &learning.User{Username: "koichi", Level: 3}))
	require.NoError(t, store.Close())

	// Reopening an already-migrated database is a no-op.
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	user, err := store.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "koichi", user.Username)
}

func TestSubjects(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	subject := &learning.Subject{
		ID:       440,
		Type:     learning.SubjectKanji,
		Level:    2,
		Japanese: "犬",
		Readings: []learning.Reading{{Reading: "けん", IsPrimary: true}},
		Meanings: []learning.Meaning{{Meaning: "dog", Type: learning.MeaningPrimary}},
		Audio: []learning.AudioClip{
			{URL: "https://cdn.example.com/440-1.mp3", VoiceActorID: 1},
			{URL: "https://cdn.example.com/440-2.mp3", VoiceActorID: 2},
		},
	}
	require.NoError(t, store.PutSubjects(ctx, []*learning.Subject{subject}))

	got, err := store.GetSubject(ctx, 440)
	require.NoError(t, err)
	assert.Equal(t, subject, got)

	got, err = store.GetSubjectByJapanese(ctx, "犬", learning.SubjectKanji)
	require.NoError(t, err)
	assert.Equal(t, int64(440), got.ID)

	_, err = store.GetSubject(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := store.HasSubject(ctx, 440)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := store.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	urls, err := store.AudioURLs(ctx, 440, 0)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
	urls, err = store.AudioURLs(ctx, 440, 2)
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, "https://cdn.example.com/440-2.mp3", urls[0].URL)

	// Hidden subjects disappear together with their dependent rows.
	require.NoError(t, store.DeleteSubjects(ctx, []int64{440}))
	_, err = store.GetSubject(ctx, 440)
	assert.ErrorIs(t, err, ErrNotFound)
	urls, err = store.AudioURLs(ctx, 440, 0)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func reviewAssignment(id, subjectID int64, level int, stage learning.Stage, availableAt time.Time) learning.Assignment {
	return learning.Assignment{
		ID:          id,
		SubjectID:   subjectID,
		SubjectType: learning.SubjectKanji,
		Level:       level,
		SRSStage:    stage,
		UnlockedAt:  availableAt.Add(-96 * time.Hour),
		StartedAt:   availableAt.Add(-72 * time.Hour),
		AvailableAt: availableAt,
	}
}

func TestAssignments(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	assignment := reviewAssignment(1, 440, 2, learning.StageApprentice3, now)
	require.NoError(t, store.ApplyAssignments(ctx, []learning.Assignment{assignment}))

	got, err := store.GetAssignment(ctx, 440)
	require.NoError(t, err)
	assert.Equal(t, assignment.ID, got.ID)
	assert.Equal(t, assignment.SRSStage, got.SRSStage)

	all, err := store.GetAllAssignments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// A re-fetch of the same subject replaces the row.
	assignment.SRSStage = learning.StageApprentice4
	require.NoError(t, store.ApplyAssignments(ctx, []learning.Assignment{assignment}))
	all, err = store.GetAllAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, learning.StageApprentice4, all[0].SRSStage)

	_, err = store.GetAssignment(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAssignmentsAtLevelFillsGaps(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()

	subjects := []*learning.Subject{
		{ID: 1, Type: learning.SubjectRadical, Level: 2, Japanese: "一"},
		{ID: 2, Type: learning.SubjectKanji, Level: 2, Japanese: "二"},
	}
	require.NoError(t, store.PutSubjects(ctx, subjects))
	require.NoError(t, store.ApplyAssignments(ctx, []learning.Assignment{
		reviewAssignment(10, 1, 2, learning.StageGuru1, now),
	}))

	assignments, err := store.GetAssignmentsAtLevel(ctx, 2)
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	bySubject := map[int64]learning.Assignment{}
	for _, a := range assignments {
		bySubject[a.SubjectID] = a
	}
	assert.Equal(t, learning.StageGuru1, bySubject[1].SRSStage)
	assert.Equal(t, learning.StageUnstarted, bySubject[2].SRSStage)
	assert.Equal(t, learning.SubjectKanji, bySubject[2].SubjectType)
	assert.Zero(t, bySubject[2].ID)
}

func TestSendProgress(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	assignment := reviewAssignment(1, 440, 5, learning.StageApprentice3, now.Add(-time.Hour))
	require.NoError(t, store.ApplyAssignments(ctx, []learning.Assignment{assignment}))

	progress := learning.Progress{
		Assignment:        assignment,
		MeaningWrong:      true,
		MeaningWrongCount: 1,
		CreatedAt:         now,
	}
	require.NoError(t, store.SendProgress(ctx, []learning.Progress{progress}))

	// The assignment demoted optimistically and rescheduled on the hour.
	got, err := store.GetAssignment(ctx, 440)
	require.NoError(t, err)
	assert.Equal(t, learning.StageApprentice2, got.SRSStage)
	wantAvailable := now.Truncate(time.Hour).Add(learning.StageApprentice2.Duration(5))
	assert.Equal(t, wantAvailable, got.AvailableAt)

	pending, err := store.GetPendingProgress(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Progress.MeaningWrong)

	count, err := store.PendingProgressCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	mistakes, err := store.RecentMistakes(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, mistakes, 1)
	assert.Equal(t, int64(440), mistakes[0].SubjectID)

	require.NoError(t, store.ClearPendingProgress(ctx, pending[0].ID))
	count, err = store.PendingProgressCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSendProgressLessonStartsAssignment(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	assignment := learning.Assignment{
		ID:          1,
		SubjectID:   440,
		SubjectType: learning.SubjectKanji,
		Level:       1,
		SRSStage:    learning.StageUnstarted,
		UnlockedAt:  now.Add(-time.Hour),
	}
	require.NoError(t, store.ApplyAssignments(ctx, []learning.Assignment{assignment}))

	progress := learning.Progress{Assignment: assignment, IsLesson: true, CreatedAt: now}
	require.NoError(t, store.SendProgress(ctx, []learning.Progress{progress}))

	got, err := store.GetAssignment(ctx, 440)
	require.NoError(t, err)
	assert.Equal(t, learning.StageApprentice1, got.SRSStage)
	assert.Equal(t, now, got.StartedAt)
	// Level 1 uses the accelerated two-hour first interval.
	assert.Equal(t, now.Truncate(time.Hour).Add(2*time.Hour), got.AvailableAt)
}

func TestStudyMaterials(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	material := learning.StudyMaterial{SubjectID: 440, MeaningSynonyms: []string{"doggo"}}
	require.NoError(t, store.PutStudyMaterials(ctx, []learning.StudyMaterial{material}))

	got, err := store.GetStudyMaterial(ctx, 440)
	require.NoError(t, err)
	assert.Equal(t, []string{"doggo"}, got.MeaningSynonyms)

	// Server fetches never queue uploads.
	pending, err := store.GetPendingStudyMaterials(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	material.MeaningNote = "woof"
	require.NoError(t, store.UpdateStudyMaterial(ctx, material))
	pending, err = store.GetPendingStudyMaterials(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "woof", pending[0].MeaningNote)

	// A newer edit replaces the queued one.
	material.MeaningNote = "bark"
	require.NoError(t, store.UpdateStudyMaterial(ctx, material))
	pending, err = store.GetPendingStudyMaterials(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "bark", pending[0].MeaningNote)

	count, err := store.PendingStudyMaterialCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.ClearPendingStudyMaterial(ctx, 440))
	count, err = store.PendingStudyMaterialCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCursors(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	value, err := store.Cursor(ctx, "subjects")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.SetCursor(ctx, "subjects", "2024-05-01T10:00:00Z"))
	require.NoError(t, store.SetCursor(ctx, "assignments", "2024-05-01T11:00:00Z"))

	value, err = store.Cursor(ctx, "subjects")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:00:00Z", value)

	require.NoError(t, store.ResetCursor(ctx, "subjects"))
	value, err = store.Cursor(ctx, "subjects")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.ResetCursors(ctx))
	value, err = store.Cursor(ctx, "assignments")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestErrorLogKeepsLastHundred(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	for i := 0; i < errorLogLimit+20; i++ {
		require.NoError(t, store.LogError(ctx, 500, fmt.Sprintf("failure %d", i)))
	}

	logged, err := store.RecentErrors(ctx)
	require.NoError(t, err)
	require.Len(t, logged, errorLogLimit)
	assert.Equal(t, fmt.Sprintf("failure %d", errorLogLimit+19), logged[0].Message)
	assert.Equal(t, 500, logged[0].Code)
}

func TestAggregates(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.PutUser(ctx, &learning.User{Level: 3}))

	lesson := learning.Assignment{
		ID: 1, SubjectID: 1, SubjectType: learning.SubjectRadical, Level: 1,
		UnlockedAt: now.Add(-time.Hour),
	}
	due := reviewAssignment(2, 2, 2, learning.StageApprentice1, now.Add(-time.Hour))
	future := reviewAssignment(3, 3, 2, learning.StageGuru1, now.Add(90*time.Minute))
	aboveLevel := reviewAssignment(4, 4, 9, learning.StageApprentice1, now.Add(-time.Hour))
	burnedKanji := reviewAssignment(5, 5, 3, learning.StageGuru2, now.Add(-time.Hour))
	burnedKanji.SRSStage = learning.StageBurned
	burnedKanji.AvailableAt = time.Time{}

	require.NoError(t, store.ApplyAssignments(ctx, []learning.Assignment{
		lesson, due, future, aboveLevel, burnedKanji,
	}))

	lessons, err := store.AvailableLessonCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, lessons)

	reviews, err := store.AvailableReviewCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reviews)

	upcoming, err := store.UpcomingReviews(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, UpcomingHours)
	total := 0
	for _, n := range upcoming {
		total += n
	}
	assert.Equal(t, 1, total)

	counts, err := store.SRSCategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[learning.CategoryApprentice])
	assert.Equal(t, 1, counts[learning.CategoryGuru])
	assert.Equal(t, 1, counts[learning.CategoryBurned])

	guru, err := store.GuruKanjiCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, guru)
}

func TestAverageRemainingLevelTime(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	avg, err := store.AverageRemainingLevelTime(ctx)
	require.NoError(t, err)
	assert.Zero(t, avg)

	days := func(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }
	progressions := []learning.LevelProgression{
		{ID: 1, Level: 1, StartedAt: base, PassedAt: base.Add(days(7))},
		{ID: 2, Level: 2, StartedAt: base.Add(days(7)), PassedAt: base.Add(days(7 + 9))},
		{ID: 3, Level: 3, StartedAt: base.Add(days(16)), PassedAt: base.Add(days(16 + 30))},
		{ID: 4, Level: 4, StartedAt: base.Add(days(46))},
	}
	require.NoError(t, store.PutLevelProgressions(ctx, progressions))

	// The mean of the fastest half: (7d + 9d) / 2.
	avg, err = store.AverageRemainingLevelTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, days(8), avg)
}

func TestVoiceActors(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	actors := []learning.VoiceActor{
		{ID: 1, Name: "Kyoko", Gender: "female"},
		{ID: 2, Name: "Kenichi", Gender: "male"},
	}
	require.NoError(t, store.PutVoiceActors(ctx, actors))

	got, err := store.GetVoiceActors(ctx)
	require.NoError(t, err)
	assert.Equal(t, actors, got)
}

func TestClearAllData(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.PutUser(ctx, &learning.User{Level: 3}))
	require.NoError(t, store.PutSubjects(ctx, []*learning.Subject{
		{ID: 1, Type: learning.SubjectRadical, Level: 1, Japanese: "一"},
	}))
	require.NoError(t, store.ApplyAssignments(ctx, []learning.Assignment{
		reviewAssignment(1, 1, 1, learning.StageApprentice1, now),
	}))
	require.NoError(t, store.SetCursor(ctx, "subjects", "2024-05-01T10:00:00Z"))

	require.NoError(t, store.ClearAllData(ctx))

	_, err := store.GetUser(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	count, err := store.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	value, err := store.Cursor(ctx, "subjects")
	require.NoError(t, err)
	assert.Empty(t, value)
	lessons, err := store.AvailableLessonCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, lessons)
}
