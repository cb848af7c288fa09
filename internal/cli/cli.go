// Package cli implements the interactive review and lesson sessions on top of
// the local cache: prompting, answer classification and the session loop.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"

	"github.com/mkaneko/kameki/internal/answer"
	"github.com/mkaneko/kameki/internal/learning"
	"github.com/mkaneko/kameki/internal/review"
	"github.com/mkaneko/kameki/internal/storage"
)

// InteractiveCLI contains shared logic for interactive session CLIs
type InteractiveCLI struct {
	stdinReader  *bufio.Reader
	stdoutWriter io.Writer
	bold         *color.Color
	italic       *color.Color
}

func newInteractiveCLI() *InteractiveCLI {
	return &InteractiveCLI{
		stdinReader:  bufio.NewReader(os.Stdin),
		stdoutWriter: os.Stdout,
		bold:         color.New(color.Bold),
		italic:       color.New(color.Italic),
	}
}

//go:generate mockgen -source=cli.go -destination=../mocks/cli/mock_session.go -package=mock_cli Session

type Session interface {
	Session(context context.Context) error
}

var errEnd = errors.New("end")

func (cli *InteractiveCLI) Run(ctx context.Context, session Session) error {
	ctx, cancel := signal.NotifyContext(
		ctx,
		os.Interrupt,
	)
	defer cancel()

	errCh := make(chan error)
	go func() {
		defer close(errCh)

	LOOP:
		for {
			select {
			case <-ctx.Done():
				break LOOP
			default:
			}

			if err := session.Session(ctx); err != nil {
				if errors.Is(err, errEnd) {
					break
				}
				errCh <- err
				break
			}
		}
	}()
	select {
	case <-ctx.Done():
		fmt.Println("Received interrupt signal, exiting...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error: %w", err)
		}
	}
	return nil
}

// readLine reads one trimmed line from stdin.
func (cli *InteractiveCLI) readLine() (string, error) {
	line, err := cli.stdinReader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// storeCatalog adapts the local cache to the session's read interface, pinning
// the context for the lifetime of one session.
type storeCatalog struct {
	ctx   context.Context
	store *storage.Store
}

func (c storeCatalog) GetSubject(id int64) (*learning.Subject, error) {
	return c.store.GetSubject(c.ctx, id)
}

func (c storeCatalog) GetStudyMaterial(id int64) (*learning.StudyMaterial, error) {
	material, err := c.store.GetStudyMaterial(c.ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return material, err
}

// storeSink adapts the local cache to the session's progress hand-off.
type storeSink struct {
	ctx   context.Context
	store *storage.Store
}

func (s storeSink) SendProgress(progress []learning.Progress) error {
	return s.store.SendProgress(s.ctx, progress)
}

// subjectSource resolves component subjects for the answer checker, dropping
// lookup errors: an unknown component only disables the cross-reading hint.
func subjectSource(ctx context.Context, store *storage.Store) answer.SubjectSource {
	return func(id int64) *learning.Subject {
		subject, err := store.GetSubject(ctx, id)
		if err != nil {
			return nil
		}
		return subject
	}
}

// hasSubject filters assignments whose subject is missing from the catalog.
func hasSubject(ctx context.Context, store *storage.Store) func(id int64) bool {
	return func(id int64) bool {
		ok, err := store.HasSubject(ctx, id)
		return err == nil && ok
	}
}

// askTask asks the session's next task until it is scored or requeued. The
// caller must have checked that the session is not finished.
func (cli *InteractiveCLI) askTask(ctx context.Context, session *review.Session, store *storage.Store) error {
	task, err := session.NextTask()
	if err != nil {
		return fmt.Errorf("session.NextTask() > %w", err)
	}
	if task == nil {
		return nil
	}
	subject := session.ActiveSubject()
	taskType := session.ActiveTaskType()

	for {
		if _, err := fmt.Fprintf(cli.stdoutWriter, "%s %s: ",
			cli.bold.Sprintf("%s", subject.Japanese),
			cli.italic.Sprintf("%s", taskType),
		); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}

		input, err := cli.readLine()
		if err != nil {
			return err
		}
		switch input {
		case "!quit", "!exit":
			return errEnd
		case "!wrapup":
			session.WrapUp()
			if _, err := fmt.Fprintf(cli.stdoutWriter, "Wrapping up: %d item(s) left in play.\n",
				session.ActiveQueueLength()); err != nil {
				return fmt.Errorf("failed to write to stdout: %w", err)
			}
			continue
		case "!again":
			if _, err := session.MarkAnswer(review.ResultAskAgainLater); err != nil {
				return fmt.Errorf("session.MarkAnswer() > %w", err)
			}
			if _, err := fmt.Fprintln(cli.stdoutWriter, "Asking again later."); err != nil {
				return fmt.Errorf("failed to write to stdout: %w", err)
			}
			return nil
		case "":
			continue
		}

		if taskType == learning.TaskReading {
			// Readings are typed in romaji on a plain terminal; keep the raw
			// input when nothing converts so the kana hint still fires.
			if converted := answer.RomajiToHiragana(input); converted != "" {
				input = converted
			}
		}
		result := answer.CheckAnswer(input, subject, session.ActiveMaterials(), taskType, subjectSource(ctx, store))
		if hint := retryHint(result.Kind, taskType); hint != "" {
			if _, err := fmt.Fprintf(cli.stdoutWriter, "%s\n", hint); err != nil {
				return fmt.Errorf("failed to write to stdout: %w", err)
			}
			continue
		}

		if result.Kind.Accepted() {
			return cli.markTask(session, review.ResultCorrect, subject, taskType)
		}
		if err := cli.markTask(session, review.ResultIncorrect, subject, taskType); err != nil {
			return err
		}
		return cli.offerOverride(session, subject, taskType)
	}
}

// retryHint returns the message for answers that are re-asked without being
// scored, or empty when the answer must be marked.
func retryHint(kind answer.Kind, taskType learning.TaskType) string {
	switch kind {
	case answer.OtherKanjiReading:
		return "That reading is valid for the kanji, but not the one this item expects."
	case answer.MismatchingOkurigana:
		return "Check the okurigana."
	case answer.ContainsInvalidCharacters:
		if taskType == learning.TaskReading {
			return "Answer readings in kana."
		}
		return "Answer meanings in plain letters."
	case answer.IsReadingButWantMeaning:
		return "That looks like the reading. The meaning was asked."
	}
	return ""
}

func (cli *InteractiveCLI) markTask(session *review.Session, result review.AnswerResult,
	subject *learning.Subject, taskType learning.TaskType) error {
	mark, err := session.MarkAnswer(result)
	if err != nil {
		return fmt.Errorf("session.MarkAnswer() > %w", err)
	}
	return cli.displayMark(mark, result, subject, taskType)
}

func (cli *InteractiveCLI) displayMark(mark review.MarkResult, result review.AnswerResult,
	subject *learning.Subject, taskType learning.TaskType) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	if result == review.ResultCorrect || result == review.ResultOverrideCorrect {
		if _, err := fmt.Fprint(cli.stdoutWriter, "✅ "); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
		if _, err := green.Fprintln(cli.stdoutWriter, "Correct."); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
	} else {
		if _, err := fmt.Fprint(cli.stdoutWriter, "❌ "); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
		if _, err := red.Fprintf(cli.stdoutWriter, `Wrong. The %s of %s is "%s"`+"\n",
			taskType,
			cli.bold.Sprintf("%s", subject.Japanese),
			cli.italic.Sprintf("%s", expectedAnswers(subject, taskType)),
		); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
	}

	if mark.SubjectFinished {
		direction := "down to"
		if mark.DidLevelUp {
			direction = "up to"
		}
		if _, err := fmt.Fprintf(cli.stdoutWriter, "%s moves %s %s.\n",
			cli.bold.Sprintf("%s", subject.Japanese), direction, mark.NewStage); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
	}
	return nil
}

// offerOverride lets the user flip a wrong mark when the checker was stricter
// than a human would be about a typo.
func (cli *InteractiveCLI) offerOverride(session *review.Session,
	subject *learning.Subject, taskType learning.TaskType) error {
	if _, err := fmt.Fprint(cli.stdoutWriter, "Press enter to continue, or type !correct to override: "); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	input, err := cli.readLine()
	if err != nil {
		return err
	}
	if input != "!correct" {
		return nil
	}
	return cli.markTask(session, review.ResultOverrideCorrect, subject, taskType)
}

// expectedAnswers renders the accepted answers for the failed half.
func expectedAnswers(subject *learning.Subject, taskType learning.TaskType) string {
	var parts []string
	if taskType == learning.TaskReading {
		for _, reading := range subject.PrimaryReadings() {
			parts = append(parts, reading.Reading)
		}
	} else {
		for _, meaning := range subject.Meanings {
			if meaning.Type == learning.MeaningPrimary || meaning.Type == learning.MeaningSecondary {
				parts = append(parts, meaning.Meaning)
			}
		}
	}
	return strings.Join(parts, ", ")
}

func (cli *InteractiveCLI) printSummary(session *review.Session) error {
	_, err := fmt.Fprintf(cli.stdoutWriter, "Done: %d item(s) completed, %d%% correct.\n",
		session.ReviewsCompleted(), session.SuccessRatePercent())
	if err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	return nil
}
