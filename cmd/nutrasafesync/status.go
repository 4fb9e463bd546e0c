package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show pending, failed, and conflict counts",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := localstore.Open(getBaseDir())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		pending, err := store.PendingCount()
		if err != nil {
			return fmt.Errorf("count pending operations: %w", err)
		}
		failed, err := store.FailedOperations()
		if err != nil {
			return fmt.Errorf("list failed operations: %w", err)
		}
		conflicts, err := store.ListConflicts()
		if err != nil {
			return fmt.Errorf("list conflicts: %w", err)
		}

		fmt.Printf("%d changes pending\n", pending)
		fmt.Printf("%d changes need attention\n", len(failed))
		fmt.Printf("%d unresolved conflicts\n", len(conflicts))
		return nil
	},
}
