package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
)

var conflictsCmd = &cobra.Command{
	Use:     "conflicts",
	Short:   "List or resolve recorded sync conflicts",
	GroupID: "sync",
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unresolved sync conflicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := localstore.Open(getBaseDir())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		conflicts, err := store.ListConflicts()
		if err != nil {
			return fmt.Errorf("list conflicts: %w", err)
		}
		if len(conflicts) == 0 {
			fmt.Println("no unresolved conflicts")
			return nil
		}
		for _, c := range conflicts {
			fmt.Printf("%s  %s/%s  local=v%d server=v%d  detected=%.0f\n",
				c.ID, c.Collection, c.DocumentID, c.LocalVersion, c.ServerVersion, c.DetectedAt)
		}
		return nil
	},
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id>",
	Short: "Mark a conflict as reviewed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := localstore.Open(getBaseDir())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		if err := store.ResolveConflict(args[0]); err != nil {
			return fmt.Errorf("resolve conflict: %w", err)
		}
		fmt.Printf("resolved %s\n", args[0])
		return nil
	},
}

func init() {
	conflictsCmd.AddCommand(conflictsListCmd, conflictsResolveCmd)
}
