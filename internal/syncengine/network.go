package syncengine

import (
	"context"
	"sync"
	"time"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/remote"
)

// networkWatcher absorbs connectivity flapping: on a disconnect→connect
// edge it waits networkReconnectDebounce before calling TriggerSync, and
// restarts the wait if another edge arrives within the window (spec
// §4.4.4). Each new edge cancels the in-flight timer rather than letting
// two debounce windows race, so at most one debounce timer is pending.
type networkWatcher struct {
	engine *Engine

	mu        sync.Mutex
	cancelCur context.CancelFunc
	unsub     func()
}

// startNetworkWatcher subscribes to the network monitor and begins
// debouncing reconnect edges. Call the returned func to tear it down.
func (e *Engine) startNetworkWatcher() func() {
	w := &networkWatcher{engine: e}
	events, unsub := e.network.Subscribe()
	w.unsub = unsub

	wasConnected := e.network.Connected()
	go func() {
		for evt := range events {
			w.handle(evt, wasConnected)
			wasConnected = evt.Connected
		}
	}()

	return func() {
		w.mu.Lock()
		if w.cancelCur != nil {
			w.cancelCur()
		}
		w.mu.Unlock()
		unsub()
	}
}

// startDatabaseRecoveryWatcher subscribes to the store's database-recovered
// event and triggers a full pull the next time the network is up, per spec
// §3's "the sync engine responds to that signal by initiating a full pull
// on next opportunity" (E6). Call the returned func to tear it down.
func (e *Engine) startDatabaseRecoveryWatcher() func() {
	events, unsub := e.store.Subscribe(localstore.EventDatabaseRecovered)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return
				}
				e.TriggerPull()
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		unsub()
	}
}

func (w *networkWatcher) handle(evt remote.ConnectivityEvent, wasConnected bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancelCur != nil {
		w.cancelCur()
		w.cancelCur = nil
	}

	if !evt.Connected || wasConnected {
		return // only a disconnect→connect edge arms the debounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancelCur = cancel
	go func() {
		t := time.NewTimer(networkReconnectDebounce)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.engine.TriggerSync()
		}
	}()
}
