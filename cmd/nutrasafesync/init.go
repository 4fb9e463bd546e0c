package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/config"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
)

var (
	initRemoteURL string
	initAPIKey    string
	initDeviceID  string
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the local database and sync config",
	Long:    `Creates the SQLite database and, if --remote is set, records the remote endpoint and credentials.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := getBaseDir()

		store, err := localstore.Open(dir)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer store.Close()

		fmt.Printf("initialized database at %s\n", dir)

		if initRemoteURL != "" {
			if err := config.SetRemote(dir, initRemoteURL, initAPIKey, initDeviceID); err != nil {
				return fmt.Errorf("save remote config: %w", err)
			}
			fmt.Printf("remote endpoint: %s\n", initRemoteURL)
		}

		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initRemoteURL, "remote", "", "remote store base URL")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "remote store API key")
	initCmd.Flags().StringVar(&initDeviceID, "device-id", "", "device identifier sent with remote requests")
}
