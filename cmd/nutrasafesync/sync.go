package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Drain the pending-operation queue to the remote store",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, engine, cleanup, err := openEngine(getBaseDir())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := engine.ForceSync(context.Background()); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Println("sync complete")
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:     "pull",
	Short:   "Fetch every collection from the remote store",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, engine, cleanup, err := openEngine(getBaseDir())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := engine.PullAllData(context.Background()); err != nil {
			return fmt.Errorf("pull failed: %w", err)
		}
		fmt.Println("pull complete")
		return nil
	},
}
