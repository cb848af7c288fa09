package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mkaneko/kameki/internal/config"
	"github.com/mkaneko/kameki/internal/learning"
	"github.com/mkaneko/kameki/internal/review"
	"github.com/mkaneko/kameki/internal/storage"
)

// LessonCLI teaches unstarted assignments in batches: each batch is presented
// subject by subject, then quizzed with both halves grouped per item. Passing
// the quiz starts the assignment.
type LessonCLI struct {
	*InteractiveCLI
	store   *storage.Store
	queue   []*review.Item
	session *review.Session

	batchSize int
	taught    int
}

// NewLessonCLI builds the ordered lesson queue from unstarted assignments.
func NewLessonCLI(ctx context.Context, store *storage.Store, lessonsConfig config.LessonsConfig) (*LessonCLI, error) {
	user, err := store.GetUser(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no account data yet; run a sync first")
		}
		return nil, fmt.Errorf("store.GetUser() > %w", err)
	}
	assignments, err := store.GetAllAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.GetAllAssignments() > %w", err)
	}

	queue := review.ReadyForLessons(assignments, user, hasSubject(ctx, store))
	typeOrder := lessonsConfig.SubjectTypeOrder()
	sort.SliceStable(queue, func(i, j int) bool {
		return review.LessonLess(queue[i], queue[j], typeOrder, lessonsConfig.PrioritizeCurrentLevel)
	})

	batchSize := lessonsConfig.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	return &LessonCLI{
		InteractiveCLI: newInteractiveCLI(),
		store:          store,
		queue:          queue,
		batchSize:      batchSize,
	}, nil
}

// ItemCount is the number of lessons waiting when the session started.
func (l *LessonCLI) ItemCount() int {
	count := len(l.queue)
	if l.session != nil {
		count += l.session.ActiveQueueLength() + l.session.ReviewQueueLength()
	}
	return count
}

func (l *LessonCLI) Session(ctx context.Context) error {
	if l.session == nil || l.session.Finished() {
		if len(l.queue) == 0 {
			if _, err := fmt.Fprintf(l.stdoutWriter, "Done: %d lesson(s) taught.\n", l.taught); err != nil {
				return fmt.Errorf("failed to write to stdout: %w", err)
			}
			return errEnd
		}
		if err := l.startBatch(ctx); err != nil {
			return err
		}
	}
	return l.askTask(ctx, l.session, l.store)
}

// startBatch presents the next slice of the queue and opens its quiz. The quiz
// groups both halves of an item so a freshly taught subject is asked whole.
func (l *LessonCLI) startBatch(ctx context.Context) error {
	batch := l.queue
	if len(batch) > l.batchSize {
		batch = batch[:l.batchSize]
	}
	l.queue = l.queue[len(batch):]

	for i, item := range batch {
		subject, err := l.store.GetSubject(ctx, item.Assignment.SubjectID)
		if err != nil {
			return fmt.Errorf("store.GetSubject(%d) > %w", item.Assignment.SubjectID, err)
		}
		if err := l.presentSubject(ctx, subject, i+1, len(batch)); err != nil {
			return err
		}
	}
	l.taught += len(batch)

	l.session = review.NewSession(
		storeCatalog{ctx: ctx, store: l.store},
		storeSink{ctx: ctx, store: l.store},
		batch,
		review.Options{
			GroupMeaningReading: true,
			MeaningFirst:        true,
		},
	)
	return nil
}

func (l *LessonCLI) presentSubject(ctx context.Context, subject *learning.Subject, position, total int) error {
	if _, err := fmt.Fprintf(l.stdoutWriter, "\nLesson %d/%d: %s (%s, level %d)\n",
		position, total,
		l.bold.Sprintf("%s", subject.Japanese),
		subject.Type, subject.Level,
	); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	if meanings := expectedAnswers(subject, learning.TaskMeaning); meanings != "" {
		if _, err := fmt.Fprintf(l.stdoutWriter, "  Meaning: %s\n", l.italic.Sprintf("%s", meanings)); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
	}
	if readings := expectedAnswers(subject, learning.TaskReading); readings != "" {
		if _, err := fmt.Fprintf(l.stdoutWriter, "  Reading: %s\n", l.italic.Sprintf("%s", readings)); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
	}
	if material, err := l.store.GetStudyMaterial(ctx, subject.ID); err == nil && material.MeaningNote != "" {
		if _, err := fmt.Fprintf(l.stdoutWriter, "  Note: %s\n", material.MeaningNote); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
	}

	if _, err := fmt.Fprint(l.stdoutWriter, "Press enter to continue: "); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	input, err := l.readLine()
	if err != nil {
		return err
	}
	if input == "!quit" || input == "!exit" {
		return errEnd
	}
	return nil
}
