package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/mkaneko/kameki/internal/storage"
	"github.com/mkaneko/kameki/internal/sync"
)

func newWatchCommand() *cobra.Command {
	var interval time.Duration

	command := &cobra.Command{
		Use:   "watch",
		Short: "Keep the cache fresh: periodic quick syncs plus an hourly availability check",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
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
			engine, client := newEngine(cfg, store)
			defer func() {
				_ = client.Close()
			}()

			scheduler := gocron.NewScheduler(time.UTC)
			if _, err := scheduler.Every(interval).Do(func() {
				result, err := engine.Sync(ctx, sync.ModeQuick)
				if err != nil {
					fmt.Printf("sync failed: %v\n", err)
					return
				}
				if result.Unauthorized {
					fmt.Println("The server rejected the API token; stop and fix the configuration.")
				}
			}); err != nil {
				return fmt.Errorf("scheduler.Every(sync) > %w", err)
			}
			// Review availability only moves on hour boundaries; re-announce
			// the counts whenever one passes.
			if _, err := scheduler.Every(1).Minute().Do(func() {
				if events := store.CurrentHourChanged(time.Now()); len(events) > 0 {
					announceCounts(ctx, store)
				}
			}); err != nil {
				return fmt.Errorf("scheduler.Every(hour check) > %w", err)
			}

			fmt.Printf("Watching: quick sync every %s. Press Ctrl-C to stop.\n", interval)
			announceCounts(ctx, store)
			scheduler.StartAsync()
			defer scheduler.Stop()

			<-ctx.Done()
			return nil
		},
	}

	command.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Time between quick syncs")
	return command
}

func announceCounts(ctx context.Context, store *storage.Store) {
	lessons, err := store.AvailableLessonCount(ctx)
	if err != nil {
		fmt.Printf("count refresh failed: %v\n", err)
		return
	}
	reviews, err := store.AvailableReviewCount(ctx)
	if err != nil {
		fmt.Printf("count refresh failed: %v\n", err)
		return
	}
	fmt.Printf("[%s] Lessons: %d  Reviews: %d\n", time.Now().Format("15:04"), lessons, reviews)
}
