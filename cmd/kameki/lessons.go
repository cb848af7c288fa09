package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkaneko/kameki/internal/cli"
	"github.com/mkaneko/kameki/internal/sync"
)

func newLessonsCommand() *cobra.Command {
	var noSync bool

	command := &cobra.Command{
		Use:   "lessons",
		Short: "Learn waiting lessons in batches, then quiz each batch",
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

			lessonCLI, err := cli.NewLessonCLI(ctx, store, cfg.Lessons)
			if err != nil {
				return err
			}
			if lessonCLI.ItemCount() == 0 {
				fmt.Println("No lessons waiting right now.")
				return nil
			}
			fmt.Printf("Starting lessons: %d item(s) waiting.\n", lessonCLI.ItemCount())
			fmt.Println()
			if err := lessonCLI.Run(ctx, lessonCLI); err != nil {
				return err
			}

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
