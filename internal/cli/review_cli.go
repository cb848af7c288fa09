package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkaneko/kameki/internal/config"
	"github.com/mkaneko/kameki/internal/review"
	"github.com/mkaneko/kameki/internal/storage"
)

// ReviewCLI manages the interactive CLI session over the reviews due now.
type ReviewCLI struct {
	*InteractiveCLI
	store   *storage.Store
	session *review.Session
}

// NewReviewCLI builds a session from every assignment due for review.
func NewReviewCLI(ctx context.Context, store *storage.Store, reviewConfig config.ReviewConfig) (*ReviewCLI, error) {
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

	items := review.ReadyForReview(assignments, user, time.Now(), hasSubject(ctx, store))
	session := review.NewSession(
		storeCatalog{ctx: ctx, store: store},
		storeSink{ctx: ctx, store: store},
		items,
		reviewConfig.Options(),
	)
	return &ReviewCLI{
		InteractiveCLI: newInteractiveCLI(),
		store:          store,
		session:        session,
	}, nil
}

// ItemCount is the number of reviews the session started with.
func (r *ReviewCLI) ItemCount() int {
	return r.session.ActiveQueueLength() + r.session.ReviewQueueLength()
}

func (r *ReviewCLI) Session(ctx context.Context) error {
	if r.session.Finished() {
		if err := r.printSummary(r.session); err != nil {
			return err
		}
		return errEnd
	}
	return r.askTask(ctx, r.session, r.store)
}
