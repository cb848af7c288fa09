// Package review turns due assignments into an ordered task queue and runs
// the per-session spaced-repetition state machine: task selection, answer
// marking, SRS stage transitions and progress hand-off to the outbox.
package review

import (
	"time"

	"github.com/mkaneko/kameki/internal/learning"
)

// Item wraps one assignment for the duration of a session together with the
// completion state of its two halves and the progress record being built.
// Items are never persisted; only the finished progress is.
type Item struct {
	Assignment learning.Assignment
	Answer     learning.Progress

	answeredMeaning  bool
	answeredReading  bool
	meaningAttempted bool
	readingAttempted bool
}

// NewItem starts a blank review item for the assignment.
func NewItem(assignment learning.Assignment) *Item {
	return &Item{
		Assignment: assignment,
		Answer: learning.Progress{
			Assignment: assignment,
			IsLesson:   assignment.IsLessonStage(),
		},
	}
}

// reset clears all per-round state, used when the user asks for the item
// again later.
func (i *Item) reset() {
	i.Answer.MeaningWrong = false
	i.Answer.ReadingWrong = false
	i.Answer.MeaningWrongCount = 0
	i.Answer.ReadingWrongCount = 0
	i.answeredMeaning = false
	i.answeredReading = false
	i.meaningAttempted = false
	i.readingAttempted = false
}

// ReadyForReview filters assignments down to those due for review at now,
// excluding subjects the valid callback rejects and assignments above the
// user's level (they appear when an account lapses to free).
func ReadyForReview(assignments []learning.Assignment, user *learning.User,
	now time.Time, valid func(subjectID int64) bool) []*Item {
	return filterReady(assignments, user, valid, func(a *learning.Assignment) bool {
		return a.AvailableNow(now)
	})
}

// ReadyForLessons filters assignments down to those waiting to be taught.
func ReadyForLessons(assignments []learning.Assignment, user *learning.User,
	valid func(subjectID int64) bool) []*Item {
	return filterReady(assignments, user, valid, func(a *learning.Assignment) bool {
		return a.IsLessonStage()
	})
}

func filterReady(assignments []learning.Assignment, user *learning.User,
	valid func(subjectID int64) bool, include func(*learning.Assignment) bool) []*Item {
	var ret []*Item
	if user == nil {
		return ret
	}
	for _, assignment := range assignments {
		if valid != nil && !valid(assignment.SubjectID) {
			continue
		}
		if user.Level > 0 && assignment.Level > user.Level {
			continue
		}
		if !include(&assignment) {
			continue
		}
		ret = append(ret, NewItem(assignment))
	}
	return ret
}

// LessonLess orders lesson items by level, then by the configured subject
// type order, then by subject id. When prioritizeCurrentLevel is set, higher
// levels come first so the newest material is taught before the backlog.
func LessonLess(a, b *Item, typeOrder []learning.SubjectType, prioritizeCurrentLevel bool) bool {
	if a.Assignment.Level != b.Assignment.Level {
		if prioritizeCurrentLevel {
			return a.Assignment.Level > b.Assignment.Level
		}
		return a.Assignment.Level < b.Assignment.Level
	}
	ai, bi := typeOrderIndex(a.Assignment.SubjectType, typeOrder), typeOrderIndex(b.Assignment.SubjectType, typeOrder)
	if ai != bi {
		return ai < bi
	}
	return a.Assignment.SubjectID <= b.Assignment.SubjectID
}

func typeOrderIndex(t learning.SubjectType, order []learning.SubjectType) int {
	for i, o := range order {
		if o == t {
			return i
		}
	}
	return 0
}
