package syncengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/remote"
)

type fakeAuthProvider struct {
	userID     string
	generation int64
}

func (f *fakeAuthProvider) CurrentUserID() (string, bool) { return f.userID, f.userID != "" }

func (f *fakeAuthProvider) CaptureAuthState() remote.AuthToken {
	return remote.AuthToken{UserID: f.userID, Generation: f.generation}
}

func (f *fakeAuthProvider) CheckUnchanged(tok remote.AuthToken) error {
	if tok.UserID != f.userID || tok.Generation != f.generation {
		return remote.ErrAuthChanged
	}
	return nil
}

func (f *fakeAuthProvider) Subscribe() (<-chan remote.AuthEvent, func()) {
	ch := make(chan remote.AuthEvent)
	return ch, func() {}
}

type fakeNetworkMonitor struct {
	connected bool
}

func (f *fakeNetworkMonitor) Connected() bool { return f.connected }

func (f *fakeNetworkMonitor) Subscribe() (<-chan remote.ConnectivityEvent, func()) {
	ch := make(chan remote.ConnectivityEvent)
	return ch, func() {}
}

// failingRemoteStore always fails DeleteDocument/SetDocument, for exercising
// the circuit breaker and dead-letter path through the engine.
type failingRemoteStore struct {
	*fakeRemoteStore
}

func (f *failingRemoteStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx remote.TxStore) error) error {
	return assert.AnError
}

func TestEngine_ForceSync_NoNetworkReturnsError(t *testing.T) {
	store := openTestStore(t)
	e := New(store, newFakeRemoteStore(), &fakeAuthProvider{userID: "u1"}, &fakeNetworkMonitor{connected: false})

	err := e.ForceSync(context.Background())
	assert.ErrorIs(t, err, ErrNoNetwork)
}

func TestEngine_ForceSync_DrainsQueueSuccessfully(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveFoodLogEntry(models.FoodLogEntry{ID: "f1", FoodName: "apple", ConsumedDate: "2026-01-01"}))

	rs := newFakeRemoteStore()
	e := New(store, rs, &fakeAuthProvider{userID: "u1"}, &fakeNetworkMonitor{connected: true})

	require.NoError(t, e.ForceSync(context.Background()))

	n, err := store.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a successful push should drain the queue")

	_, present, err := rs.GetDocument(context.Background(), docPath(string(models.CollectionFoodLog), "f1"))
	require.NoError(t, err)
	assert.True(t, present)
}

func TestEngine_ForceSync_FailingRemoteBumpsRetryNotDeadLetter(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveFoodLogEntry(models.FoodLogEntry{ID: "f1", FoodName: "apple", ConsumedDate: "2026-01-01"}))

	rs := &failingRemoteStore{fakeRemoteStore: newFakeRemoteStore()}
	e := New(store, rs, &fakeAuthProvider{userID: "u1"}, &fakeNetworkMonitor{connected: true})

	require.NoError(t, e.ForceSync(context.Background()))

	n, err := store.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a single failure should retry, not dead-letter (maxRetry=10)")

	failed, err := store.FailedOperations()
	require.NoError(t, err)
	assert.Empty(t, failed)
}

// authFlippingRemoteStore changes the signed-in auth generation as a side
// effect of its first ListCollection call, simulating a user switch that
// lands mid-pull.
type authFlippingRemoteStore struct {
	*fakeRemoteStore
	auth    *fakeAuthProvider
	flipped bool
}

func (f *authFlippingRemoteStore) ListCollection(ctx context.Context, collection string, since float64) ([]map[string]any, error) {
	if !f.flipped {
		f.flipped = true
		f.auth.generation++
	}
	return f.fakeRemoteStore.ListCollection(ctx, collection, since)
}

func TestEngine_PullAllData_AbortsOnAuthChangeMidPull(t *testing.T) {
	store := openTestStore(t)
	auth := &fakeAuthProvider{userID: "u1", generation: 1}
	rs := &authFlippingRemoteStore{fakeRemoteStore: newFakeRemoteStore(), auth: auth}
	e := New(store, rs, auth, &fakeNetworkMonitor{connected: true})

	err := e.PullAllData(context.Background())
	assert.ErrorIs(t, err, ErrAuthChanged)
}

func TestEngine_PullAllData_ImportsEveryCollection(t *testing.T) {
	store := openTestStore(t)
	auth := &fakeAuthProvider{userID: "u1", generation: 1}
	rs := newCountingRemoteStore()
	e := New(store, rs, auth, &fakeNetworkMonitor{connected: true})

	require.NoError(t, e.PullAllData(context.Background()))
	assert.Equal(t, int64(len(models.AllCollections())), rs.listCalls.Load(), "every collection should be fetched once")
}

func TestEngine_Drain_AlreadyRunningReturnsErrSyncAlreadyRunning(t *testing.T) {
	store := openTestStore(t)
	rs := newFakeRemoteStore()
	e := New(store, rs, &fakeAuthProvider{userID: "u1"}, &fakeNetworkMonitor{connected: true})

	// isSyncing.TryLock is exercised directly: drain should refuse to run
	// a second concurrent pass rather than racing on the queue.
	require.True(t, e.isSyncing.TryLock())
	defer e.isSyncing.Unlock()

	err := e.drain(context.Background())
	assert.ErrorIs(t, err, ErrSyncAlreadyRunning)
}

