package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
)

var purgeConfirmed bool

var purgeCmd = &cobra.Command{
	Use:     "purge",
	Short:   "Wipe all local data (use before switching accounts)",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeConfirmed {
			return fmt.Errorf("refusing to purge without --yes")
		}

		store, err := localstore.Open(getBaseDir())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()

		if err := store.DeleteAllUserData(); err != nil {
			return fmt.Errorf("purge data: %w", err)
		}
		fmt.Println("all local data removed")
		return nil
	},
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeConfirmed, "yes", false, "confirm the destructive purge")
}
