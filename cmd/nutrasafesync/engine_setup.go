package main

import (
	"fmt"
	"time"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/config"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/remote"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/syncengine"
)

const defaultProbeInterval = 10 * time.Second

// openEngine opens the local store and wires a syncengine.Engine against
// the remote endpoint recorded in config.json. Callers must call the
// returned cleanup func when done; it stops the network monitor and
// closes the store.
func openEngine(dir string) (*localstore.Store, *syncengine.Engine, func(), error) {
	store, err := localstore.Open(dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.RemoteBaseURL == "" {
		store.Close()
		return nil, nil, nil, fmt.Errorf("no remote configured; run `nutrasafesync init --remote <url>` first")
	}

	rs := remote.NewHTTPStore(cfg.RemoteBaseURL, cfg.APIKey, cfg.DeviceID)
	network := remote.NewPollingNetworkMonitor("8.8.8.8:443", defaultProbeInterval)
	auth := newStaticAuthProvider(cfg.DeviceID)

	engine := syncengine.New(store, rs, auth, network)

	cleanup := func() {
		network.Stop()
		store.Close()
	}
	return store, engine, cleanup, nil
}
