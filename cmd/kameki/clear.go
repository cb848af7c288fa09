package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newClearCommand() *cobra.Command {
	var force bool

	command := &cobra.Command{
		Use:   "clear",
		Short: "Delete all locally cached data, including pending uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if !force {
				fmt.Printf("This deletes everything cached in %s, including changes not yet uploaded.\n", cfg.Storage.DatabasePath)
				fmt.Print("Type yes to continue: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("error reading input: %w", err)
				}
				if strings.TrimSpace(line) != "yes" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()
			if err := store.ClearAllData(cmd.Context()); err != nil {
				return fmt.Errorf("store.ClearAllData() > %w", err)
			}
			fmt.Println("Local data cleared.")
			return nil
		},
	}

	command.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")
	return command
}
