package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mkaneko/kameki/internal/learning"
)

// ChangeEvent names a group of derived aggregates that a write invalidates.
type ChangeEvent int

const (
	EventAvailableItems ChangeEvent = iota
	EventPendingItems
	EventUser
	EventSRSCategories
)

// UpcomingHours is the horizon of the hourly review forecast.
const UpcomingHours = 168

// aggregates memoizes the dashboard numbers between writes. Review
// availability also goes stale when the clock crosses an hour boundary, so
// the computed hour is remembered alongside. Each group carries a generation
// counter bumped on invalidation: a result computed with the mutex released
// is only memoized when no write landed in the meantime.
type aggregates struct {
	mu       sync.Mutex
	store    *Store
	lastHour time.Time

	availableGen    uint64
	availableValid  bool
	availableHour   time.Time
	lessonCount     int
	reviewCount     int
	upcomingReviews []int

	pendingGen       uint64
	pendingValid     bool
	pendingProgress  int
	pendingMaterials int

	srsGen         uint64
	srsValid       bool
	guruKanjiCount int
	categoryCounts [learning.StageCategoryCount]int
}

func newAggregates(store *Store) *aggregates {
	return &aggregates{store: store}
}

func (a *aggregates) invalidate(events ...ChangeEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, event := range events {
		switch event {
		case EventAvailableItems, EventUser:
			a.availableValid = false
			a.availableGen++
		case EventPendingItems:
			a.pendingValid = false
			a.pendingGen++
		case EventSRSCategories:
			a.srsValid = false
			a.srsGen++
		}
	}
}

func (a *aggregates) invalidateAll() {
	a.invalidate(EventAvailableItems, EventPendingItems, EventSRSCategories)
}

// CurrentHourChanged is the injected time trigger: callers tell the store the
// clock may have crossed an hour boundary, since review availability only
// changes on those boundaries. When one has passed, the availability
// aggregates go stale and the raised events are returned; otherwise the
// result is empty. The store owns no timer of its own.
func (s *Store) CurrentHourChanged(now time.Time) []ChangeEvent {
	hour := now.Truncate(time.Hour)
	s.ag.mu.Lock()
	last := s.ag.lastHour
	s.ag.lastHour = hour
	s.ag.mu.Unlock()
	if last.IsZero() || last.Equal(hour) {
		return nil
	}
	s.ag.invalidate(EventAvailableItems)
	return []ChangeEvent{EventAvailableItems}
}

// AvailableLessonCount returns the number of lessons waiting to be taught.
func (s *Store) AvailableLessonCount(ctx context.Context) (int, error) {
	if err := s.ag.refreshAvailable(ctx, time.Now()); err != nil {
		return 0, err
	}
	s.ag.mu.Lock()
	defer s.ag.mu.Unlock()
	return s.ag.lessonCount, nil
}

// AvailableReviewCount returns the number of reviews due now.
func (s *Store) AvailableReviewCount(ctx context.Context) (int, error) {
	if err := s.ag.refreshAvailable(ctx, time.Now()); err != nil {
		return 0, err
	}
	s.ag.mu.Lock()
	defer s.ag.mu.Unlock()
	return s.ag.reviewCount, nil
}

// UpcomingReviews returns how many reviews become available in each of the
// next UpcomingHours hours, starting with the hour after the current one.
func (s *Store) UpcomingReviews(ctx context.Context) ([]int, error) {
	if err := s.ag.refreshAvailable(ctx, time.Now()); err != nil {
		return nil, err
	}
	s.ag.mu.Lock()
	defer s.ag.mu.Unlock()
	upcoming := make([]int, UpcomingHours)
	copy(upcoming, s.ag.upcomingReviews)
	return upcoming, nil
}

func (a *aggregates) refreshAvailable(ctx context.Context, now time.Time) error {
	a.mu.Lock()
	hour := now.Truncate(time.Hour)
	if a.availableValid && a.availableHour.Equal(hour) {
		a.mu.Unlock()
		return nil
	}
	gen := a.availableGen
	a.mu.Unlock()

	maxLevel := 0
	user, err := a.store.GetUser(ctx)
	switch {
	case err == nil:
		maxLevel = user.Level
	case !errors.Is(err, ErrNotFound):
		return err
	}

	type row struct {
		Started     bool  `db:"started"`
		Unlocked    bool  `db:"unlocked"`
		SRSStage    int   `db:"srs_stage"`
		AvailableAt int64 `db:"available_at"`
	}
	var rows []row
	query := `SELECT started, unlocked, srs_stage, available_at FROM subject_progress`
	var args []any
	if maxLevel > 0 {
		query += " WHERE level <= ?"
		args = append(args, maxLevel)
	}
	if err := a.store.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("db.SelectContext(subject_progress availability) > %w", err)
	}

	var lessons, reviews int
	upcoming := make([]int, UpcomingHours)
	for _, r := range rows {
		if r.Unlocked && !r.Started {
			lessons++
			continue
		}
		if !r.Started || r.SRSStage < int(learning.StageApprentice1) ||
			r.SRSStage >= int(learning.StageBurned) || r.AvailableAt == 0 {
			continue
		}
		availableAt := time.Unix(r.AvailableAt, 0)
		if !availableAt.After(now) {
			reviews++
			continue
		}
		bucket := int(availableAt.Sub(hour) / time.Hour)
		// Bucket zero is the hour after the current one.
		bucket--
		if bucket >= 0 && bucket < UpcomingHours {
			upcoming[bucket]++
		}
	}

	a.memoizeAvailable(gen, hour, lessons, reviews, upcoming)
	return nil
}

// memoizeAvailable publishes a computed availability result. When a write
// invalidated the group while the result was being computed, the numbers are
// still the freshest on hand but stay flagged stale, so the next read
// recomputes instead of serving pre-write data.
func (a *aggregates) memoizeAvailable(gen uint64, hour time.Time, lessons, reviews int, upcoming []int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.availableHour = hour
	a.lessonCount = lessons
	a.reviewCount = reviews
	a.upcomingReviews = upcoming
	if a.availableGen == gen {
		a.availableValid = true
	}
}

// PendingProgressCount returns the size of the progress upload outbox.
func (s *Store) PendingProgressCount(ctx context.Context) (int, error) {
	if err := s.ag.refreshPending(ctx); err != nil {
		return 0, err
	}
	s.ag.mu.Lock()
	defer s.ag.mu.Unlock()
	return s.ag.pendingProgress, nil
}

// PendingStudyMaterialCount returns the size of the study-material outbox.
func (s *Store) PendingStudyMaterialCount(ctx context.Context) (int, error) {
	if err := s.ag.refreshPending(ctx); err != nil {
		return 0, err
	}
	s.ag.mu.Lock()
	defer s.ag.mu.Unlock()
	return s.ag.pendingMaterials, nil
}

func (a *aggregates) refreshPending(ctx context.Context) error {
	a.mu.Lock()
	if a.pendingValid {
		a.mu.Unlock()
		return nil
	}
	gen := a.pendingGen
	a.mu.Unlock()

	var progress, materials int
	if err := a.store.db.GetContext(ctx, &progress,
		"SELECT COUNT(*) FROM pending_progress"); err != nil {
		return fmt.Errorf("db.GetContext(count pending_progress) > %w", err)
	}
	if err := a.store.db.GetContext(ctx, &materials,
		"SELECT COUNT(*) FROM pending_study_materials"); err != nil {
		return fmt.Errorf("db.GetContext(count pending_study_materials) > %w", err)
	}

	a.mu.Lock()
	a.pendingProgress = progress
	a.pendingMaterials = materials
	if a.pendingGen == gen {
		a.pendingValid = true
	}
	a.mu.Unlock()
	return nil
}

// GuruKanjiCount returns how many kanji have reached Guru or beyond.
func (s *Store) GuruKanjiCount(ctx context.Context) (int, error) {
	if err := s.ag.refreshSRS(ctx); err != nil {
		return 0, err
	}
	s.ag.mu.Lock()
	defer s.ag.mu.Unlock()
	return s.ag.guruKanjiCount, nil
}

// SRSCategoryCounts returns the number of started subjects in each stage
// bucket.
func (s *Store) SRSCategoryCounts(ctx context.Context) ([learning.StageCategoryCount]int, error) {
	if err := s.ag.refreshSRS(ctx); err != nil {
		return [learning.StageCategoryCount]int{}, err
	}
	s.ag.mu.Lock()
	defer s.ag.mu.Unlock()
	return s.ag.categoryCounts, nil
}

func (a *aggregates) refreshSRS(ctx context.Context) error {
	a.mu.Lock()
	if a.srsValid {
		a.mu.Unlock()
		return nil
	}
	gen := a.srsGen
	a.mu.Unlock()

	type row struct {
		SubjectType int `db:"subject_type"`
		SRSStage    int `db:"srs_stage"`
		Count       int `db:"count"`
	}
	var rows []row
	if err := a.store.db.SelectContext(ctx, &rows,
		`SELECT subject_type, srs_stage, COUNT(*) AS count FROM subject_progress
		WHERE started = 1 GROUP BY subject_type, srs_stage`); err != nil {
		return fmt.Errorf("db.SelectContext(srs counts) > %w", err)
	}

	var guruKanji int
	var categories [learning.StageCategoryCount]int
	for _, r := range rows {
		stage := learning.Stage(r.SRSStage)
		categories[stage.Category()] += r.Count
		if learning.SubjectType(r.SubjectType) == learning.SubjectKanji && stage >= learning.StageGuru1 {
			guruKanji += r.Count
		}
	}

	a.mu.Lock()
	a.guruKanjiCount = guruKanji
	a.categoryCounts = categories
	if a.srsGen == gen {
		a.srsValid = true
	}
	a.mu.Unlock()
	return nil
}

// AverageRemainingLevelTime estimates how long the remaining levels will each
// take: the mean of the fastest half of the levels passed so far. Zero when
// no level has been passed yet.
func (s *Store) AverageRemainingLevelTime(ctx context.Context) (time.Duration, error) {
	progressions, err := s.GetLevelProgressions(ctx)
	if err != nil {
		return 0, err
	}
	var durations []time.Duration
	for i := range progressions {
		p := &progressions[i]
		if p.PassedAt.IsZero() {
			continue
		}
		if d := p.TimeSpent(p.PassedAt); d > 0 {
			durations = append(durations, d)
		}
	}
	if len(durations) == 0 {
		return 0, nil
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	half := (len(durations) + 1) / 2
	var total time.Duration
	for _, d := range durations[:half] {
		total += d
	}
	return total / time.Duration(half), nil
}
