package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
)

var retryCmd = &cobra.Command{
	Use:     "retry <failed-op-id>",
	Short:   "Re-queue a dead-lettered operation",
	GroupID: "sync",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := localstore.Open(getBaseDir())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		if err := store.RetryFailedOperation(args[0]); err != nil {
			return fmt.Errorf("retry operation: %w", err)
		}
		fmt.Printf("re-queued %s\n", args[0])
		return nil
	},
}
