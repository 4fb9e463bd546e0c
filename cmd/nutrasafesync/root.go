package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	versionStr string
	baseDir    string
)

// SetVersion sets the version string and enables --version.
func SetVersion(v string) {
	versionStr = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "nutrasafesync",
	Short: "Local-first food log store and sync driver",
	Long: `nutrasafesync manages the embedded SQLite store behind a nutrition-tracking
client: food log entries, perishable inventory, weight history, settings,
fasting plans/sessions, reaction logs, and favorites — plus the durable
sync queue that drains them to a remote document store.`,
}

// Execute runs the root command.
func Execute() {
	if f := initLogFile(); f != nil {
		defer f.Close()
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initLogFile redirects slog to a file if NUTRASAFESYNC_LOG_FILE is set,
// useful for inspecting engine behavior while running a long-lived sync.
func initLogFile() *os.File {
	path := os.Getenv("NUTRASAFESYNC_LOG_FILE")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return f
}

func getBaseDir() string {
	if baseDir != "" {
		return baseDir
	}
	if env := os.Getenv("NUTRASAFESYNC_DIR"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		wd, _ := os.Getwd()
		return filepath.Join(wd, ".nutrasafesync")
	}
	return filepath.Join(home, ".nutrasafesync")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "override the store's base directory (default: ~/.nutrasafesync)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "system", Title: "System:"},
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
	)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(purgeCmd)
}
