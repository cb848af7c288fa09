package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaneko/kameki/internal/learning"
)

func TestCurrentHourChanged(t *testing.T) {
	store := openStore(t)
	base := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	// The first observation only sets the baseline.
	assert.Empty(t, store.CurrentHourChanged(base))
	assert.Empty(t, store.CurrentHourChanged(base.Add(10*time.Minute)))

	events := store.CurrentHourChanged(base.Add(time.Hour))
	assert.Equal(t, []ChangeEvent{EventAvailableItems}, events)

	assert.Empty(t, store.CurrentHourChanged(base.Add(90*time.Minute)))
}

func TestAggregateWriteDuringRefreshStaysStale(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()

	assignment := reviewAssignment(10, 440, 2, learning.StageGuru1, now.Add(-time.Hour))
	require.NoError(t, store.ApplyAssignments(ctx, []learning.Assignment{assignment}))

	// Simulate a write landing between a refresh reading the tables and
	// publishing its result: the stale numbers must not be served as valid.
	ag := store.ag
	ag.mu.Lock()
	gen := ag.availableGen
	ag.mu.Unlock()
	ag.invalidate(EventAvailableItems)
	ag.memoizeAvailable(gen, now.Truncate(time.Hour), 0, 0, make([]int, UpcomingHours))

	ag.mu.Lock()
	stillValid := ag.availableValid
	ag.mu.Unlock()
	assert.False(t, stillValid)

	// The next read recomputes from the database instead.
	reviews, err := store.AvailableReviewCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reviews)

	// A result computed against the current generation is memoized.
	ag.mu.Lock()
	assert.True(t, ag.availableValid)
	ag.mu.Unlock()
}
