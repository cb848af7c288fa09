// Package sync reconciles the local mirror with the remote service: it
// drains the pending upload outboxes, then pulls changed entities behind
// per-entity cursors so each run only fetches what moved.
package sync

//go:generate mockgen -source=engine.go -destination=../mocks/sync/mock_client.go -package=mock_sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mkaneko/kameki/internal/api"
	"github.com/mkaneko/kameki/internal/learning"
	"github.com/mkaneko/kameki/internal/storage"
)

// Client is the remote API surface the engine needs.
type Client interface {
	GetUser(ctx context.Context) (*learning.User, error)
	GetSubjects(ctx context.Context, updatedAfter string) ([]*learning.Subject, []int64, string, error)
	GetAssignments(ctx context.Context, updatedAfter string) ([]learning.Assignment, string, error)
	GetStudyMaterials(ctx context.Context, updatedAfter string) ([]learning.StudyMaterial, string, error)
	GetLevelProgressions(ctx context.Context, updatedAfter string) ([]learning.LevelProgression, string, error)
	GetVoiceActors(ctx context.Context, updatedAfter string) ([]learning.VoiceActor, string, error)
	CreateProgress(ctx context.Context, progress learning.Progress) error
	UpdateStudyMaterial(ctx context.Context, material learning.StudyMaterial) error
}

// Mode selects how much a sync run covers.
type Mode int

const (
	// ModeQuick uploads the outboxes and refreshes the fast-moving entities
	// only: user, assignments and study materials.
	ModeQuick Mode = iota
	// ModeNormal refreshes every entity incrementally.
	ModeNormal
	// ModeFull forgets all cursors first, refetching everything.
	ModeFull
)

// defaultRequestBudget matches the service's per-minute rate limit.
const defaultRequestBudget = 60

// requestBudget counts the network calls one sync run may still make.
// Pagination inside a single listing counts as one spend; the limiter in the
// client paces the individual pages.
type requestBudget int

// take consumes one request from the budget, reporting false once it is
// spent.
func (b *requestBudget) take() bool {
	if *b <= 0 {
		return false
	}
	*b--
	return true
}

// Result reports what one sync run did.
type Result struct {
	// Skipped is set when another sync was already running.
	Skipped bool
	// Unauthorized is set when the service rejected the API token; nothing
	// after that point ran.
	Unauthorized bool

	UploadedProgress       int
	DroppedProgress        int
	UploadedStudyMaterials int
	DroppedStudyMaterials  int

	Subjects          int
	DeletedSubjects   int
	Assignments       int
	StudyMaterials    int
	LevelProgressions int
	VoiceActors       int

	// Failures collects per-entity fetch errors; the run continues past
	// them and their cursors stay untouched.
	Failures []error
}

// Engine couples the remote client with the local store. A single engine
// allows one sync at a time; overlapping calls are no-ops.
type Engine struct {
	store  *storage.Store
	client Client
	busy   atomic.Bool
	budget requestBudget
}

// NewEngine creates an engine whose runs each spend at most requestBudget
// network calls; zero or negative picks the default. The outbox drains are
// served from the budget first so queued progress always beats catalog
// refreshes to the wire.
func NewEngine(store *storage.Store, client Client, budget int) *Engine {
	if budget <= 0 {
		budget = defaultRequestBudget
	}
	return &Engine{store: store, client: client, budget: requestBudget(budget)}
}

// Busy reports whether a sync is currently running.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// Sync runs one reconciliation pass. A second caller while one is running
// gets a skipped result immediately. Fetch failures of one entity never
// block the others; they are logged, collected in the result and retried
// next run since the cursor does not advance.
func (e *Engine) Sync(ctx context.Context, mode Mode) (Result, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Result{Skipped: true}, nil
	}
	defer e.busy.Store(false)

	var result Result
	if mode == ModeFull {
		if err := e.store.ResetCursors(ctx); err != nil {
			return result, fmt.Errorf("store.ResetCursors() > %w", err)
		}
	}

	// Each run starts from the configured budget; the outboxes spend from it
	// first, one request per item, and the fetches share what is left. A fetch
	// skipped for lack of budget leaves its cursor alone and runs next time.
	budget := e.budget

	if unauthorized, err := e.drainProgress(ctx, &result, &budget); err != nil {
		return result, err
	} else if unauthorized {
		result.Unauthorized = true
		return result, nil
	}
	if unauthorized, err := e.drainStudyMaterials(ctx, &result, &budget); err != nil {
		return result, err
	} else if unauthorized {
		result.Unauthorized = true
		return result, nil
	}

	if unauthorized, err := e.syncUser(ctx, &budget); err != nil {
		e.recordFailure(ctx, &result, "user", err)
	} else if unauthorized {
		result.Unauthorized = true
		return result, nil
	}

	if mode != ModeQuick {
		if err := e.syncSubjects(ctx, &result, &budget); err != nil {
			if api.IsUnauthorized(err) {
				result.Unauthorized = true
				return result, nil
			}
			e.recordFailure(ctx, &result, "subjects", err)
		}
	}

	// Assignments come after subjects so the level join sees new catalog
	// entries.
	if err := e.syncAssignments(ctx, &result, &budget); err != nil {
		if api.IsUnauthorized(err) {
			result.Unauthorized = true
			return result, nil
		}
		e.recordFailure(ctx, &result, "assignments", err)
	}
	if err := e.syncStudyMaterials(ctx, &result, &budget); err != nil {
		if api.IsUnauthorized(err) {
			result.Unauthorized = true
			return result, nil
		}
		e.recordFailure(ctx, &result, "study_materials", err)
	}

	if mode != ModeQuick {
		if err := e.syncLevelProgressions(ctx, &result, &budget); err != nil {
			if api.IsUnauthorized(err) {
				result.Unauthorized = true
				return result, nil
			}
			e.recordFailure(ctx, &result, "level_progressions", err)
		}
		if err := e.syncVoiceActors(ctx, &result, &budget); err != nil {
			if api.IsUnauthorized(err) {
				result.Unauthorized = true
				return result, nil
			}
			e.recordFailure(ctx, &result, "voice_actors", err)
		}
	}

	return result, nil
}

// recordFailure files a fetch or upload error. Transport failures carry no
// signal the user can act on and clear up on their own, so they skip the
// result and the persistent error log entirely.
func (e *Engine) recordFailure(ctx context.Context, result *Result, entity string, err error) {
	if api.IsTransport(err) {
		slog.Debug("sync entity unreachable", slog.String("entity", entity), slog.Any("error", err))
		return
	}
	slog.Warn("sync entity failed", slog.String("entity", entity), slog.Any("error", err))
	result.Failures = append(result.Failures, fmt.Errorf("%s: %w", entity, err))
	code := 0
	if statusErr := new(api.StatusError); errors.As(err, &statusErr) {
		code = statusErr.Code
	}
	if logErr := e.store.LogError(ctx, code, fmt.Sprintf("sync %s: %v", entity, err)); logErr != nil {
		slog.Warn("error log write failed", slog.Any("error", logErr))
	}
}

// drainProgress uploads queued progress oldest first, one budget request per
// item. A permanent rejection drops the entry; a transient failure stops the
// drain and leaves the rest for the next run.
func (e *Engine) drainProgress(ctx context.Context, result *Result, budget *requestBudget) (unauthorized bool, err error) {
	pending, err := e.store.GetPendingProgress(ctx)
	if err != nil {
		return false, fmt.Errorf("store.GetPendingProgress() > %w", err)
	}
	for _, item := range pending {
		if !budget.take() {
			return false, nil
		}
		err := e.client.CreateProgress(ctx, item.Progress)
		switch {
		case err == nil:
			result.UploadedProgress++
		case api.IsUnauthorized(err):
			return true, nil
		case api.IsUnprocessable(err):
			// The server will never accept this payload; keeping it would
			// wedge the outbox. Not an error worth the user's attention.
			result.DroppedProgress++
		default:
			e.recordFailure(ctx, result, "progress upload", err)
			return false, nil
		}
		if err := e.store.ClearPendingProgress(ctx, item.ID); err != nil {
			return false, fmt.Errorf("store.ClearPendingProgress(%d) > %w", item.ID, err)
		}
	}
	return false, nil
}

func (e *Engine) drainStudyMaterials(ctx context.Context, result *Result, budget *requestBudget) (unauthorized bool, err error) {
	pending, err := e.store.GetPendingStudyMaterials(ctx)
	if err != nil {
		return false, fmt.Errorf("store.GetPendingStudyMaterials() > %w", err)
	}
	for _, material := range pending {
		if !budget.take() {
			return false, nil
		}
		err := e.client.UpdateStudyMaterial(ctx, material)
		switch {
		case err == nil:
			result.UploadedStudyMaterials++
		case api.IsUnauthorized(err):
			return true, nil
		case api.IsUnprocessable(err):
			result.DroppedStudyMaterials++
		default:
			e.recordFailure(ctx, result, "study material upload", err)
			return false, nil
		}
		if err := e.store.ClearPendingStudyMaterial(ctx, material.SubjectID); err != nil {
			return false, fmt.Errorf("store.ClearPendingStudyMaterial(%d) > %w", material.SubjectID, err)
		}
	}
	return false, nil
}

// syncUser refreshes the account record. A subscription upgrade raises the
// granted level cap, which unhides subjects the earlier syncs never fetched,
// so the subjects cursor resets.
func (e *Engine) syncUser(ctx context.Context, budget *requestBudget) (unauthorized bool, err error) {
	if !budget.take() {
		return false, nil
	}
	user, err := e.client.GetUser(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			return true, nil
		}
		return false, fmt.Errorf("client.GetUser() > %w", err)
	}

	previous, err := e.store.GetUser(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("store.GetUser() > %w", err)
	}
	if previous != nil && user.MaxLevelGranted > previous.MaxLevelGranted {
		slog.Info("max level increased, refetching subjects",
			slog.Int("from", previous.MaxLevelGranted), slog.Int("to", user.MaxLevelGranted))
		if err := e.store.ResetCursor(ctx, storage.CursorSubjects); err != nil {
			return false, fmt.Errorf("store.ResetCursor(subjects) > %w", err)
		}
	}
	if err := e.store.PutUser(ctx, user); err != nil {
		return false, fmt.Errorf("store.PutUser() > %w", err)
	}
	return false, nil
}

func (e *Engine) syncSubjects(ctx context.Context, result *Result, budget *requestBudget) error {
	if !budget.take() {
		return nil
	}
	cursor, err := e.store.Cursor(ctx, storage.CursorSubjects)
	if err != nil {
		return err
	}
	subjects, hidden, dataUpdatedAt, err := e.client.GetSubjects(ctx, cursor)
	if err != nil {
		return fmt.Errorf("client.GetSubjects() > %w", err)
	}
	if err := e.store.ApplySubjectsPage(ctx, subjects, hidden, dataUpdatedAt); err != nil {
		return err
	}
	result.Subjects = len(subjects)
	result.DeletedSubjects = len(hidden)
	return nil
}

func (e *Engine) syncAssignments(ctx context.Context, result *Result, budget *requestBudget) error {
	if !budget.take() {
		return nil
	}
	cursor, err := e.store.Cursor(ctx, storage.CursorAssignments)
	if err != nil {
		return err
	}
	assignments, dataUpdatedAt, err := e.client.GetAssignments(ctx, cursor)
	if err != nil {
		return fmt.Errorf("client.GetAssignments() > %w", err)
	}
	if len(assignments) > 0 {
		levels, err := e.store.SubjectLevels(ctx)
		if err != nil {
			return err
		}
		for i := range assignments {
			assignments[i].Level = levels[assignments[i].SubjectID]
		}
	}
	if err := e.store.ApplyAssignmentsPage(ctx, assignments, dataUpdatedAt); err != nil {
		return err
	}
	result.Assignments = len(assignments)
	return nil
}

func (e *Engine) syncStudyMaterials(ctx context.Context, result *Result, budget *requestBudget) error {
	if !budget.take() {
		return nil
	}
	cursor, err := e.store.Cursor(ctx, storage.CursorStudyMaterials)
	if err != nil {
		return err
	}
	materials, dataUpdatedAt, err := e.client.GetStudyMaterials(ctx, cursor)
	if err != nil {
		return fmt.Errorf("client.GetStudyMaterials() > %w", err)
	}
	if err := e.store.ApplyStudyMaterialsPage(ctx, materials, dataUpdatedAt); err != nil {
		return err
	}
	result.StudyMaterials = len(materials)
	return nil
}

func (e *Engine) syncLevelProgressions(ctx context.Context, result *Result, budget *requestBudget) error {
	if !budget.take() {
		return nil
	}
	cursor, err := e.store.Cursor(ctx, storage.CursorLevelProgressions)
	if err != nil {
		return err
	}
	progressions, dataUpdatedAt, err := e.client.GetLevelProgressions(ctx, cursor)
	if err != nil {
		return fmt.Errorf("client.GetLevelProgressions() > %w", err)
	}
	if err := e.store.ApplyLevelProgressionsPage(ctx, progressions, dataUpdatedAt); err != nil {
		return err
	}
	result.LevelProgressions = len(progressions)
	return nil
}

func (e *Engine) syncVoiceActors(ctx context.Context, result *Result, budget *requestBudget) error {
	if !budget.take() {
		return nil
	}
	cursor, err := e.store.Cursor(ctx, storage.CursorVoiceActors)
	if err != nil {
		return err
	}
	actors, dataUpdatedAt, err := e.client.GetVoiceActors(ctx, cursor)
	if err != nil {
		return fmt.Errorf("client.GetVoiceActors() > %w", err)
	}
	if err := e.store.ApplyVoiceActorsPage(ctx, actors, dataUpdatedAt); err != nil {
		return err
	}
	result.VoiceActors = len(actors)
	return nil
}
