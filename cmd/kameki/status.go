package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mkaneko/kameki/internal/learning"
	"github.com/mkaneko/kameki/internal/storage"
)

func newStatusCommand() *cobra.Command {
	var showErrors bool

	command := &cobra.Command{
		Use:   "status",
		Short: "Show what is waiting locally: lessons, reviews and pending uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()
			return printStatus(cmd, store, showErrors)
		},
	}

	command.Flags().BoolVar(&showErrors, "errors", false, "Also show recent sync errors")
	return command
}

func printStatus(cmd *cobra.Command, store *storage.Store, showErrors bool) error {
	ctx := cmd.Context()
	bold := color.New(color.Bold)

	user, err := store.GetUser(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Println("No account data yet; run a sync first.")
			return nil
		}
		return fmt.Errorf("store.GetUser() > %w", err)
	}
	fmt.Printf("%s, level %d\n", bold.Sprintf("%s", user.Username), user.Level)
	if user.OnVacation {
		fmt.Println("Vacation mode is on; reviews are paused.")
	}

	lessons, err := store.AvailableLessonCount(ctx)
	if err != nil {
		return fmt.Errorf("store.AvailableLessonCount() > %w", err)
	}
	reviews, err := store.AvailableReviewCount(ctx)
	if err != nil {
		return fmt.Errorf("store.AvailableReviewCount() > %w", err)
	}
	fmt.Printf("Lessons: %d  Reviews: %d\n", lessons, reviews)

	upcoming, err := store.UpcomingReviews(ctx)
	if err != nil {
		return fmt.Errorf("store.UpcomingReviews() > %w", err)
	}
	printUpcoming(upcoming)

	categories, err := store.SRSCategoryCounts(ctx)
	if err != nil {
		return fmt.Errorf("store.SRSCategoryCounts() > %w", err)
	}
	fmt.Print("SRS:")
	for i, count := range categories {
		fmt.Printf(" %s %d", learning.StageCategory(i), count)
	}
	fmt.Println()

	if remaining, err := store.AverageRemainingLevelTime(ctx); err == nil && remaining > 0 {
		fmt.Printf("Typical time per level: %s\n", remaining.Round(time.Hour))
	}

	pendingProgress, err := store.PendingProgressCount(ctx)
	if err != nil {
		return fmt.Errorf("store.PendingProgressCount() > %w", err)
	}
	pendingMaterials, err := store.PendingStudyMaterialCount(ctx)
	if err != nil {
		return fmt.Errorf("store.PendingStudyMaterialCount() > %w", err)
	}
	if pending := pendingProgress + pendingMaterials; pending > 0 {
		fmt.Printf("%d change(s) waiting to upload.\n", pending)
	}

	if showErrors {
		logged, err := store.RecentErrors(ctx)
		if err != nil {
			return fmt.Errorf("store.RecentErrors() > %w", err)
		}
		for _, entry := range logged {
			fmt.Printf("  [%s] %d %s\n", entry.CreatedAt.Format(time.RFC3339), entry.Code, entry.Message)
		}
	}
	return nil
}

// printUpcoming condenses the per-hour forecast into the next day's non-empty
// hours.
func printUpcoming(upcoming []int) {
	total := 0
	var parts []string
	for hour, count := range upcoming {
		if hour >= 24 {
			break
		}
		total += count
		if count > 0 && len(parts) < 6 {
			parts = append(parts, fmt.Sprintf("+%dh: %d", hour+1, count))
		}
	}
	if total == 0 {
		return
	}
	fmt.Printf("Next 24h: %d review(s)", total)
	for _, part := range parts {
		fmt.Printf("  %s", part)
	}
	fmt.Println()
}
