// Package config persists the CLI's sync-tunable settings — remote
// endpoint, device identity, and local overrides of the engine's default
// constants — as a small JSON file alongside the database.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
)

const configFile = "config.json"
const lockFile = "config.json.lock"

// Config is the on-disk shape of the sync CLI's settings.
type Config struct {
	RemoteBaseURL string `json:"remoteBaseUrl"`
	APIKey        string `json:"apiKey"`
	DeviceID      string `json:"deviceId"`

	// PeriodicPullIntervalSeconds is persisted by Load/Save only; the sync
	// engine does not read it and always uses its 1800s default.
	PeriodicPullIntervalSeconds int `json:"periodicPullIntervalSeconds,omitempty"`
}

// Load reads the config from baseDir/config.json, returning a zero-value
// Config if the file does not exist yet.
func Load(baseDir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to baseDir/config.json atomically (temp file in the same
// directory, then rename).
func Save(baseDir string, cfg *Config) error {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return err
	}
	configPath := filepath.Join(baseDir, configFile)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(baseDir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, configPath)
}

// withConfigLock serializes read-modify-write access to config.json across
// processes using flock, the same idiom the local store uses for its
// database file lock.
func withConfigLock(baseDir string, fn func() error) error {
	lockPath := filepath.Join(baseDir, lockFile)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}

// SetRemote persists the remote endpoint and credentials.
func SetRemote(baseDir, baseURL, apiKey, deviceID string) error {
	return withConfigLock(baseDir, func() error {
		cfg, err := Load(baseDir)
		if err != nil {
			return err
		}
		cfg.RemoteBaseURL = baseURL
		cfg.APIKey = apiKey
		cfg.DeviceID = deviceID
		return Save(baseDir, cfg)
	})
}
