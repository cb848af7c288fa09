package review

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mkaneko/kameki/internal/learning"
)

// Catalog is the read side of the local cache the session needs: subject
// details for task selection and the user's synonyms for display.
type Catalog interface {
	GetSubject(id int64) (*learning.Subject, error)
	GetStudyMaterial(id int64) (*learning.StudyMaterial, error)
}

// ProgressSink receives finished progress records. The local cache implements
// it by applying the progress write-through and queueing the upload.
type ProgressSink interface {
	SendProgress(progress []learning.Progress) error
}

// AnswerResult is the session-level outcome of one answered task.
type AnswerResult int

const (
	ResultCorrect AnswerResult = iota
	ResultIncorrect
	// ResultOverrideCorrect is the user marking their own wrong answer as
	// correct (a typo the checker did not tolerate).
	ResultOverrideCorrect
	// ResultAskAgainLater throws the current round away and requeues the item
	// at the back; it never counts toward statistics.
	ResultAskAgainLater
)

// correct reports whether the result counts the sub-task as answered right.
func (r AnswerResult) correct() bool {
	return r == ResultCorrect || r == ResultOverrideCorrect
}

// Options configures a session.
type Options struct {
	Order Order
	// BatchSize caps the active queue. Forced to 1 when GroupMeaningReading
	// is set so both halves of an item are asked back to back.
	BatchSize             int
	GroupMeaningReading   bool
	MeaningFirst          bool
	MinimizeReviewPenalty bool

	// Rand drives shuffling and task picks; tests inject a seeded source.
	Rand *rand.Rand
	// Now is the session clock, defaulting to time.Now.
	Now func() time.Time
}

// Session hands out one task at a time from a bounded active queue and
// retires items once both halves are answered. A session is owned by one
// goroutine; it is not safe for concurrent use.
type Session struct {
	catalog Catalog
	sink    ProgressSink
	opts    Options
	rng     *rand.Rand
	now     func() time.Time

	reviewQueue []*Item
	activeQueue []*Item
	completed   []*Item

	activeQueueSize int
	activeIndex     int
	active          *Item
	activeSubject   *learning.Subject
	activeMaterials *learning.StudyMaterial
	activeTaskType  learning.TaskType

	tasksAnswered          int
	tasksAnsweredCorrectly int
	reviewsCompleted       int
	wrappingUp             bool
	lastMarkWasFirstTime   bool
}

// MarkResult reports what happened to the active item after an answer.
type MarkResult struct {
	SubjectFinished bool
	DidLevelUp      bool
	NewStage        learning.Stage
	AskedAgain      bool
}

// NewSession shuffles and sorts the items by the ordering policy and fills
// the active queue.
func NewSession(catalog Catalog, sink ProgressSink, items []*Item, opts Options) *Session {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}

	s := &Session{
		catalog:     catalog,
		sink:        sink,
		opts:        opts,
		rng:         opts.Rand,
		now:         opts.Now,
		reviewQueue: items,
	}
	s.activeQueueSize = opts.BatchSize
	if opts.GroupMeaningReading {
		s.activeQueueSize = 1
	}

	s.rng.Shuffle(len(s.reviewQueue), func(i, j int) {
		s.reviewQueue[i], s.reviewQueue[j] = s.reviewQueue[j], s.reviewQueue[i]
	})
	sortQueue(s.reviewQueue, opts.Order, s.now())
	s.refillActiveQueue()
	return s
}

// ActiveQueueLength is the number of items currently in play.
func (s *Session) ActiveQueueLength() int { return len(s.activeQueue) }

// ReviewQueueLength is the backlog not yet pulled into the active queue.
func (s *Session) ReviewQueueLength() int { return len(s.reviewQueue) }

// ReviewsCompleted is the number of items finished this session.
func (s *Session) ReviewsCompleted() int { return s.reviewsCompleted }

// TasksAnswered counts scored answers (ask-again-later rounds excluded).
func (s *Session) TasksAnswered() int { return s.tasksAnswered }

// TasksAnsweredCorrectly counts scored answers that were right.
func (s *Session) TasksAnsweredCorrectly() int { return s.tasksAnsweredCorrectly }

// SuccessRatePercent is the running correct percentage, 100 before any
// answer.
func (s *Session) SuccessRatePercent() int {
	if s.tasksAnswered == 0 {
		return 100
	}
	return s.tasksAnsweredCorrectly * 100 / s.tasksAnswered
}

// Finished reports whether there is nothing left to ask.
func (s *Session) Finished() bool { return len(s.activeQueue) == 0 }

// WrappingUp reports whether the session is draining in-flight items only.
func (s *Session) WrappingUp() bool { return s.wrappingUp }

// WrapUp stops pulling new items from the backlog; the active queue drains
// and the session finishes once it is empty.
func (s *Session) WrapUp() { s.wrappingUp = true }

// ActiveSubject is the subject of the task handed out by the last NextTask.
func (s *Session) ActiveSubject() *learning.Subject { return s.activeSubject }

// ActiveMaterials is the user's study material for the active subject, or nil.
func (s *Session) ActiveMaterials() *learning.StudyMaterial { return s.activeMaterials }

// ActiveTaskType is the half being asked by the last NextTask.
func (s *Session) ActiveTaskType() learning.TaskType { return s.activeTaskType }

// NextTask picks a uniformly random item from the active queue rather than
// the front, so nearby subjects interleave even in a small window, and chooses
// which half to ask. It returns nil when the session is finished.
func (s *Session) NextTask() (*Item, error) {
	if len(s.activeQueue) == 0 {
		return nil, nil
	}
	s.activeIndex = s.rng.Intn(len(s.activeQueue))
	s.active = s.activeQueue[s.activeIndex]

	subject, err := s.catalog.GetSubject(s.active.Assignment.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("catalog.GetSubject(%d) > %w", s.active.Assignment.SubjectID, err)
	}
	if subject == nil {
		return nil, fmt.Errorf("subject %d missing from local cache", s.active.Assignment.SubjectID)
	}
	s.activeSubject = subject
	s.activeMaterials, err = s.catalog.GetStudyMaterial(subject.ID)
	if err != nil {
		return nil, fmt.Errorf("catalog.GetStudyMaterial(%d) > %w", subject.ID, err)
	}

	switch {
	case s.active.answeredMeaning:
		s.activeTaskType = learning.TaskReading
	case s.active.answeredReading || s.active.Assignment.KanaOnly || len(subject.Readings) == 0:
		s.activeTaskType = learning.TaskMeaning
	case s.opts.GroupMeaningReading:
		if s.opts.MeaningFirst {
			s.activeTaskType = learning.TaskMeaning
		} else {
			s.activeTaskType = learning.TaskReading
		}
	default:
		if s.rng.Intn(2) == 0 {
			s.activeTaskType = learning.TaskReading
		} else {
			s.activeTaskType = learning.TaskMeaning
		}
	}
	return s.active, nil
}

// MarkAnswer scores the active task. A finished item has its SRS transition
// computed, its progress finalized and handed to the sink, and is replaced in
// the active queue.
func (s *Session) MarkAnswer(result AnswerResult) (MarkResult, error) {
	if s.active == nil {
		return MarkResult{}, fmt.Errorf("no active task; call NextTask first")
	}

	if result == ResultAskAgainLater {
		s.moveActiveToEnd()
		return MarkResult{AskedAgain: true}, nil
	}

	item := s.active
	var firstTime bool
	switch s.activeTaskType {
	case learning.TaskMeaning:
		firstTime = !item.meaningAttempted
		if firstTime || (s.lastMarkWasFirstTime && result == ResultOverrideCorrect) {
			item.Answer.MeaningWrong = !result.correct()
			item.meaningAttempted = true
			if result == ResultOverrideCorrect {
				item.Answer.MeaningWrongCount--
			}
		}
		item.answeredMeaning = result.correct()
		if !result.correct() {
			item.Answer.MeaningWrongCount++
		}
	case learning.TaskReading:
		firstTime = !item.readingAttempted
		if firstTime || (s.lastMarkWasFirstTime && result == ResultOverrideCorrect) {
			item.Answer.ReadingWrong = !result.correct()
			item.readingAttempted = true
			if result == ResultOverrideCorrect {
				item.Answer.ReadingWrongCount--
			}
		}
		item.answeredReading = result.correct()
		if !result.correct() {
			item.Answer.ReadingWrongCount++
		}
	}
	s.lastMarkWasFirstTime = firstTime

	switch result {
	case ResultCorrect:
		s.tasksAnswered++
		s.tasksAnsweredCorrectly++
	case ResultIncorrect:
		s.tasksAnswered++
	case ResultOverrideCorrect:
		s.tasksAnsweredCorrectly++
	}

	// Kana-only vocabulary is written in its own reading, so the meaning half
	// is the whole item.
	finished := item.answeredMeaning &&
		(item.answeredReading || item.Assignment.KanaOnly || len(s.activeSubject.Readings) == 0)
	didLevelUp := !item.Answer.MeaningWrong && !item.Answer.ReadingWrong
	newStage := item.Assignment.SRSStage.Previous()
	if didLevelUp {
		newStage = item.Assignment.SRSStage.Next()
	}

	if finished {
		// The server rejects progress dated before the review became
		// available.
		createdAt := s.now()
		if createdAt.Before(item.Assignment.AvailableAt) {
			createdAt = item.Assignment.AvailableAt
		}
		item.Answer.CreatedAt = createdAt

		if s.opts.MinimizeReviewPenalty {
			if item.Answer.MeaningWrong {
				item.Answer.MeaningWrongCount = 1
			}
			if item.Answer.ReadingWrong {
				item.Answer.ReadingWrongCount = 1
			}
		}

		if err := s.sink.SendProgress([]learning.Progress{item.Answer}); err != nil {
			return MarkResult{}, fmt.Errorf("sink.SendProgress() > %w", err)
		}

		s.reviewsCompleted++
		s.completed = append(s.completed, item)
		s.removeActive()
		s.refillActiveQueue()
	}

	return MarkResult{
		SubjectFinished: finished,
		DidLevelUp:      didLevelUp,
		NewStage:        newStage,
	}, nil
}

// moveActiveToEnd resets the active item and requeues it at the back of the
// full queue.
func (s *Session) moveActiveToEnd() {
	item := s.active
	s.removeActive()
	item.reset()
	s.reviewQueue = append(s.reviewQueue, item)
	s.refillActiveQueue()
}

func (s *Session) removeActive() {
	s.activeQueue = append(s.activeQueue[:s.activeIndex], s.activeQueue[s.activeIndex+1:]...)
	s.active = nil
	s.activeSubject = nil
	s.activeMaterials = nil
}

// refillActiveQueue tops the active queue up from the front of the sorted
// backlog, unless the session is wrapping up.
func (s *Session) refillActiveQueue() {
	if s.wrappingUp {
		return
	}
	for len(s.activeQueue) < s.activeQueueSize && len(s.reviewQueue) > 0 {
		s.activeQueue = append(s.activeQueue, s.reviewQueue[0])
		s.reviewQueue = s.reviewQueue[1:]
	}
}
