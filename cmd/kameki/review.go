package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkaneko/kameki/internal/cli"
	"github.com/mkaneko/kameki/internal/sync"
)

func newReviewCommand() *cobra.Command {
	var noSync bool

	command := &cobra.Command{
		Use:   "review",
		Short: "Start an interactive review session over everything due now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
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

			if !noSync {
				if _, err := engine.Sync(ctx, sync.ModeQuick); err != nil {
					return fmt.Errorf("engine.Sync() > %w", err)
				}
			}

			reviewCLI, err := cli.NewReviewCLI(ctx, store, cfg.Review)
			if err != nil {
				return err
			}
			if reviewCLI.ItemCount() == 0 {
				fmt.Println("No reviews available right now.")
				return nil
			}
			fmt.Printf("Starting a review session with %d item(s).\n", reviewCLI.ItemCount())
			fmt.Println("Commands: !wrapup, !again, !quit")
			fmt.Println()
			if err := reviewCLI.Run(ctx, reviewCLI); err != nil {
				return err
			}

			// Upload what the session produced; offline failures stay queued.
			if !noSync {
				if _, err := engine.Sync(ctx, sync.ModeQuick); err != nil {
					return fmt.Errorf("engine.Sync() > %w", err)
				}
			}
			return nil
		},
	}

	command.Flags().BoolVar(&noSync, "no-sync", false, "Skip syncing before and after the session")
	return command
}
