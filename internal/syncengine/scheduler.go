package syncengine

import (
	"context"
	"sync"
	"time"
)

// Lifecycle wires the engine's network watcher, database-recovery watcher,
// and periodic-pull timer to foreground/background transitions: the
// periodic timer only runs in the foreground, to preserve battery (spec
// §4.4.4, §5).
type Lifecycle struct {
	engine *Engine

	mu           sync.Mutex
	stopNetwork  func()
	stopRecovery func()
	periodicStop context.CancelFunc
}

// NewLifecycle wires up an Engine's background tasks but does not start
// them — call Foreground to enter the running state.
func NewLifecycle(e *Engine) *Lifecycle {
	return &Lifecycle{engine: e}
}

// Foreground starts the network watcher and the database-recovery watcher
// (both idempotent across repeated foreground entries without an
// intervening Background) and re-arms the periodic pull timer.
func (l *Lifecycle) Foreground(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopNetwork == nil {
		l.stopNetwork = l.engine.startNetworkWatcher()
	}
	if l.stopRecovery == nil {
		l.stopRecovery = l.engine.startDatabaseRecoveryWatcher()
		if l.engine.store.WasRecovered() {
			// The database-recovered event fires synchronously inside
			// Open, before any engine or watcher exists to subscribe to
			// it — so catch it here too via the store's sticky flag.
			l.engine.TriggerPull()
		}
	}

	if l.periodicStop != nil {
		l.periodicStop()
	}
	periodicCtx, cancel := context.WithCancel(ctx)
	l.periodicStop = cancel
	go l.runPeriodicPull(periodicCtx)

	l.engine.TriggerSync()
}

// Background invalidates the periodic-pull timer, leaving the network and
// database-recovery watchers running so a reconnect or a fresh-DB signal
// can still be observed.
func (l *Lifecycle) Background() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.periodicStop != nil {
		l.periodicStop()
		l.periodicStop = nil
	}
}

// Shutdown tears down the network watcher, the database-recovery watcher,
// and the periodic timer.
func (l *Lifecycle) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.periodicStop != nil {
		l.periodicStop()
		l.periodicStop = nil
	}
	if l.stopNetwork != nil {
		l.stopNetwork()
		l.stopNetwork = nil
	}
	if l.stopRecovery != nil {
		l.stopRecovery()
		l.stopRecovery = nil
	}
}

// runPeriodicPull fires on every tick, per spec §4.4's "initial/periodic
// pull" responsibility: it calls TriggerSync (push-drain) and then
// TriggerPull, which re-fetches every collection from the remote store.
func (l *Lifecycle) runPeriodicPull(ctx context.Context) {
	ticker := time.NewTicker(periodicPullInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.engine.TriggerSync()
			l.engine.TriggerPull()
		}
	}
}
