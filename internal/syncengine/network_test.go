package syncengine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/remote"
)

// countingRemoteStore wraps fakeRemoteStore and counts ListCollection calls,
// so a test can observe that a pull actually ran without inspecting
// PullAllData's internals.
type countingRemoteStore struct {
	*fakeRemoteStore
	listCalls atomic.Int64
}

func newCountingRemoteStore() *countingRemoteStore {
	return &countingRemoteStore{fakeRemoteStore: newFakeRemoteStore()}
}

func (c *countingRemoteStore) ListCollection(ctx context.Context, collection string, since float64) ([]map[string]any, error) {
	c.listCalls.Add(1)
	return c.fakeRemoteStore.ListCollection(ctx, collection, since)
}

// controllableNetworkMonitor lets a test publish connectivity edges on
// demand, unlike fakeNetworkMonitor's dead channel.
type controllableNetworkMonitor struct {
	connected  bool
	events     chan remote.ConnectivityEvent
	subscribes atomic.Int64
}

func newControllableNetworkMonitor(connected bool) *controllableNetworkMonitor {
	return &controllableNetworkMonitor{connected: connected, events: make(chan remote.ConnectivityEvent, 4)}
}

func (m *controllableNetworkMonitor) Connected() bool { return m.connected }

func (m *controllableNetworkMonitor) Subscribe() (<-chan remote.ConnectivityEvent, func()) {
	m.subscribes.Add(1)
	return m.events, func() {}
}

func withShortDebounce(t *testing.T, d time.Duration) {
	orig := networkReconnectDebounce
	networkReconnectDebounce = d
	t.Cleanup(func() { networkReconnectDebounce = orig })
}

func (e *Engine) testLastAttempt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAttempt
}

func TestNetworkWatcher_ReconnectEdgeTriggersSyncAfterDebounce(t *testing.T) {
	withShortDebounce(t, 20*time.Millisecond)

	store := openTestStore(t)
	net := newControllableNetworkMonitor(false)
	e := New(store, newFakeRemoteStore(), &fakeAuthProvider{userID: "u1"}, net)

	stop := e.startNetworkWatcher()
	defer stop()

	net.connected = true
	net.events <- remote.ConnectivityEvent{Connected: true}

	require.Eventually(t, func() bool {
		return !e.testLastAttempt().IsZero()
	}, time.Second, 5*time.Millisecond, "reconnect edge should trigger a sync once the debounce elapses")
}

func TestNetworkWatcher_FlappingEdgesRestartDebounceWindow(t *testing.T) {
	withShortDebounce(t, 50*time.Millisecond)

	store := openTestStore(t)
	net := newControllableNetworkMonitor(false)
	e := New(store, newFakeRemoteStore(), &fakeAuthProvider{userID: "u1"}, net)

	stop := e.startNetworkWatcher()
	defer stop()

	net.connected = true
	net.events <- remote.ConnectivityEvent{Connected: true}
	time.Sleep(30 * time.Millisecond)
	net.events <- remote.ConnectivityEvent{Connected: false}
	net.events <- remote.ConnectivityEvent{Connected: true}

	assert.Never(t, func() bool {
		return !e.testLastAttempt().IsZero()
	}, 40*time.Millisecond, 5*time.Millisecond, "a disconnect before the debounce elapses should cancel the pending sync")

	require.Eventually(t, func() bool {
		return !e.testLastAttempt().IsZero()
	}, time.Second, 5*time.Millisecond)
}

func TestNetworkWatcher_DisconnectEdgeDoesNotArmDebounce(t *testing.T) {
	withShortDebounce(t, 20*time.Millisecond)

	store := openTestStore(t)
	net := newControllableNetworkMonitor(true)
	e := New(store, newFakeRemoteStore(), &fakeAuthProvider{userID: "u1"}, net)

	stop := e.startNetworkWatcher()
	defer stop()

	net.connected = false
	net.events <- remote.ConnectivityEvent{Connected: false}

	assert.Never(t, func() bool {
		return !e.testLastAttempt().IsZero()
	}, 60*time.Millisecond, 5*time.Millisecond)
}

func TestDatabaseRecoveryWatcher_TriggersPullOnEvent(t *testing.T) {
	store := openTestStore(t)
	net := newControllableNetworkMonitor(true)
	rs := newCountingRemoteStore()
	e := New(store, rs, &fakeAuthProvider{userID: "u1"}, net)

	stop := e.startDatabaseRecoveryWatcher()
	defer stop()

	store.Publish(localstore.EventDatabaseRecovered, nil)

	require.Eventually(t, func() bool {
		return rs.listCalls.Load() > 0
	}, time.Second, 5*time.Millisecond, "a database-recovered event should trigger a full pull")
}

func TestDatabaseRecoveryWatcher_TeardownStopsFurtherPulls(t *testing.T) {
	store := openTestStore(t)
	net := newControllableNetworkMonitor(true)
	rs := newCountingRemoteStore()
	e := New(store, rs, &fakeAuthProvider{userID: "u1"}, net)

	stop := e.startDatabaseRecoveryWatcher()
	stop()

	store.Publish(localstore.EventDatabaseRecovered, nil)

	assert.Never(t, func() bool {
		return rs.listCalls.Load() > 0
	}, 60*time.Millisecond, 5*time.Millisecond, "a torn-down watcher must not act on further events")
}

func TestNetworkWatcher_TeardownCancelsPendingDebounce(t *testing.T) {
	withShortDebounce(t, 30*time.Millisecond)

	store := openTestStore(t)
	net := newControllableNetworkMonitor(false)
	e := New(store, newFakeRemoteStore(), &fakeAuthProvider{userID: "u1"}, net)

	stop := e.startNetworkWatcher()

	net.connected = true
	net.events <- remote.ConnectivityEvent{Connected: true}
	time.Sleep(5 * time.Millisecond)
	stop()

	assert.Never(t, func() bool {
		return !e.testLastAttempt().IsZero()
	}, 60*time.Millisecond, 5*time.Millisecond, "tearing down the watcher should cancel its in-flight debounce timer")
}
