package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withShortPeriodicPull(t *testing.T, d time.Duration) {
	orig := periodicPullInterval
	periodicPullInterval = d
	t.Cleanup(func() { periodicPullInterval = orig })
}

func TestLifecycle_ForegroundTriggersImmediateSync(t *testing.T) {
	withShortPeriodicPull(t, time.Hour)

	store := openTestStore(t)
	net := newControllableNetworkMonitor(true)
	e := New(store, newFakeRemoteStore(), &fakeAuthProvider{userID: "u1"}, net)
	l := NewLifecycle(e)

	l.Foreground(context.Background())
	defer l.Shutdown()

	require.Eventually(t, func() bool {
		return !e.testLastAttempt().IsZero()
	}, time.Second, 5*time.Millisecond, "entering the foreground should trigger an immediate sync")
}

func TestLifecycle_PeriodicPullFiresOnTicker(t *testing.T) {
	withShortPeriodicPull(t, 20*time.Millisecond)

	store := openTestStore(t)
	net := newControllableNetworkMonitor(true)
	e := New(store, newFakeRemoteStore(), &fakeAuthProvider{userID: "u1"}, net)
	l := NewLifecycle(e)

	l.Foreground(context.Background())
	defer l.Shutdown()

	e.mu.Lock()
	e.lastAttempt = time.Now().Add(-time.Hour)
	e.mu.Unlock()

	require.Eventually(t, func() bool {
		return e.testLastAttempt().After(time.Now().Add(-time.Minute))
	}, time.Second, 5*time.Millisecond, "the periodic ticker should re-trigger a sync")
}

func TestLifecycle_PeriodicPullAlsoCallsPullAllData(t *testing.T) {
	withShortPeriodicPull(t, 20*time.Millisecond)

	store := openTestStore(t)
	net := newControllableNetworkMonitor(true)
	rs := newCountingRemoteStore()
	e := New(store, rs, &fakeAuthProvider{userID: "u1"}, net)
	l := NewLifecycle(e)

	before := rs.listCalls.Load()
	l.Foreground(context.Background())
	defer l.Shutdown()

	require.Eventually(t, func() bool {
		return rs.listCalls.Load() > before
	}, time.Second, 5*time.Millisecond, "the periodic timer must pull remote data, not just drain the push queue")
}

func TestLifecycle_ForegroundTriggersPullOnFreshDatabase(t *testing.T) {
	withShortPeriodicPull(t, time.Hour)

	store := openTestStore(t) // openTestStore always creates a fresh database
	require.True(t, store.WasRecovered())

	net := newControllableNetworkMonitor(true)
	rs := newCountingRemoteStore()
	e := New(store, rs, &fakeAuthProvider{userID: "u1"}, net)
	l := NewLifecycle(e)

	l.Foreground(context.Background())
	defer l.Shutdown()

	require.Eventually(t, func() bool {
		return rs.listCalls.Load() > 0
	}, time.Second, 5*time.Millisecond, "Foreground must rehydrate via WasRecovered even though the recovery event fired before any watcher subscribed")
}

func TestLifecycle_BackgroundStopsPeriodicPullButKeepsNetworkWatcher(t *testing.T) {
	withShortPeriodicPull(t, 15*time.Millisecond)

	store := openTestStore(t)
	net := newControllableNetworkMonitor(true)
	e := New(store, newFakeRemoteStore(), &fakeAuthProvider{userID: "u1"}, net)
	l := NewLifecycle(e)

	l.Foreground(context.Background())
	l.Background()
	defer l.Shutdown()

	e.mu.Lock()
	e.lastAttempt = time.Now().Add(-time.Hour)
	staleMark := e.lastAttempt
	e.mu.Unlock()

	assert.Never(t, func() bool {
		return e.testLastAttempt().After(staleMark)
	}, 80*time.Millisecond, 5*time.Millisecond, "backgrounding should stop the periodic ticker from re-arming")
}

func TestLifecycle_ForegroundIsIdempotentAcrossRepeatedCalls(t *testing.T) {
	withShortPeriodicPull(t, time.Hour)

	store := openTestStore(t)
	net := newControllableNetworkMonitor(true)
	e := New(store, newFakeRemoteStore(), &fakeAuthProvider{userID: "u1"}, net)
	l := NewLifecycle(e)

	ctx := context.Background()
	l.Foreground(ctx)
	firstStop := l.stopNetwork
	l.Foreground(ctx)
	defer l.Shutdown()

	assert.NotNil(t, l.stopNetwork)
	assert.NotNil(t, firstStop, "the first Foreground call must start the network watcher")
	assert.Equal(t, int64(1), net.subscribes.Load(), "a second Foreground call must not start a duplicate network watcher")
}

func TestLifecycle_ShutdownStopsEverything(t *testing.T) {
	withShortPeriodicPull(t, 15*time.Millisecond)

	store := openTestStore(t)
	net := newControllableNetworkMonitor(true)
	e := New(store, newFakeRemoteStore(), &fakeAuthProvider{userID: "u1"}, net)
	l := NewLifecycle(e)

	l.Foreground(context.Background())
	l.Shutdown()

	e.mu.Lock()
	e.lastAttempt = time.Now().Add(-time.Hour)
	staleMark := e.lastAttempt
	e.mu.Unlock()

	assert.Never(t, func() bool {
		return e.testLastAttempt().After(staleMark)
	}, 60*time.Millisecond, 5*time.Millisecond, "after Shutdown neither the ticker nor the network watcher should fire")
}
