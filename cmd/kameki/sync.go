package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkaneko/kameki/internal/sync"
)

func newSyncCommand() *cobra.Command {
	var full bool
	var quick bool

	command := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local cache with the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if full && quick {
				return fmt.Errorf("--full and --quick are mutually exclusive")
			}

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

			mode := sync.ModeNormal
			switch {
			case full:
				mode = sync.ModeFull
			case quick:
				mode = sync.ModeQuick
			}

			result, err := engine.Sync(cmd.Context(), mode)
			if err != nil {
				return fmt.Errorf("engine.Sync() > %w", err)
			}
			return printSyncResult(result)
		},
	}

	command.Flags().BoolVar(&full, "full", false, "Forget all sync cursors and refetch everything")
	command.Flags().BoolVar(&quick, "quick", false, "Upload pending changes and refresh fast-moving data only")
	return command
}

func printSyncResult(result sync.Result) error {
	if result.Skipped {
		fmt.Println("Another sync is already running.")
		return nil
	}
	if result.Unauthorized {
		return fmt.Errorf("the server rejected the API token; check your configuration")
	}

	if uploaded := result.UploadedProgress + result.UploadedStudyMaterials; uploaded > 0 {
		fmt.Printf("Uploaded %d pending change(s).\n", uploaded)
	}
	if dropped := result.DroppedProgress + result.DroppedStudyMaterials; dropped > 0 {
		fmt.Printf("Dropped %d change(s) the server permanently rejected.\n", dropped)
	}
	fmt.Printf("Fetched %d subject(s), %d assignment(s), %d study material(s).\n",
		result.Subjects, result.Assignments, result.StudyMaterials)
	if result.DeletedSubjects > 0 {
		fmt.Printf("Removed %d hidden subject(s).\n", result.DeletedSubjects)
	}
	for _, failure := range result.Failures {
		fmt.Printf("Warning: %v\n", failure)
	}
	return nil
}
