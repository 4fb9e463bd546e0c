package syncengine

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/localstore"
	"github.com/akeen90/nutrasafe-beta-sub009/internal/remote"
)

// fakeTxStore is an in-memory remote.TxStore for exercising the conflict
// rule without a real HTTP endpoint.
type fakeTxStore struct {
	docs map[string]map[string]any
}

func (f *fakeTxStore) GetDocument(ctx context.Context, path string) (map[string]any, bool, error) {
	doc, ok := f.docs[path]
	return doc, ok, nil
}

func (f *fakeTxStore) SetDocument(ctx context.Context, path string, doc map[string]any) error {
	f.docs[path] = doc
	return nil
}

// fakeRemoteStore backs remote.Store for tests; only RunTransaction and
// ServerTimestamp are exercised by conflict.go.
type fakeRemoteStore struct {
	tx *fakeTxStore
	ts float64
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{tx: &fakeTxStore{docs: map[string]map[string]any{}}, ts: 1780000000}
}

func (f *fakeRemoteStore) GetDocument(ctx context.Context, path string) (map[string]any, bool, error) {
	return f.tx.GetDocument(ctx, path)
}

func (f *fakeRemoteStore) SetDocument(ctx context.Context, path string, doc map[string]any, merge bool) error {
	return f.tx.SetDocument(ctx, path, doc)
}

func (f *fakeRemoteStore) DeleteDocument(ctx context.Context, path string) error {
	delete(f.tx.docs, path)
	return nil
}

func (f *fakeRemoteStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx remote.TxStore) error) error {
	return fn(ctx, f.tx)
}

func (f *fakeRemoteStore) ServerTimestamp() float64 { return f.ts }

func (f *fakeRemoteStore) ListCollection(ctx context.Context, collection string, since float64) ([]map[string]any, error) {
	return nil, nil
}

func openTestStore(t *testing.T) *localstore.Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "nutrasafesync-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := localstore.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestApplyWithConflictRule_NoExistingDocument(t *testing.T) {
	store := openTestStore(t)
	rs := newFakeRemoteStore()

	newVersion, conflict, err := applyWithConflictRule(context.Background(), store, rs, "foodLogEntries", "doc-1", map[string]any{"foodName": "apple"}, 0)
	require.NoError(t, err)
	assert.False(t, conflict)
	assert.Equal(t, int64(1), newVersion)

	got, present, err := rs.GetDocument(context.Background(), docPath("foodLogEntries", "doc-1"))
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, "apple", got["foodName"])
}

func TestApplyWithConflictRule_ServerAheadRecordsConflict(t *testing.T) {
	store := openTestStore(t)
	rs := newFakeRemoteStore()
	rs.tx.docs[docPath("foodLogEntries", "doc-1")] = map[string]any{"foodName": "banana", "_version": float64(3)}

	newVersion, conflict, err := applyWithConflictRule(context.Background(), store, rs, "foodLogEntries", "doc-1", map[string]any{"foodName": "apple"}, 1)
	require.NoError(t, err)
	assert.True(t, conflict, "local write assumed version 1 but server is at 3")
	assert.Equal(t, int64(4), newVersion)

	conflicts, err := store.ListConflicts()
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "foodLogEntries", conflicts[0].Collection)
	assert.Equal(t, "doc-1", conflicts[0].DocumentID)
	assert.Equal(t, int64(1), conflicts[0].LocalVersion)
	assert.Equal(t, int64(3), conflicts[0].ServerVersion)

	got, _, err := rs.GetDocument(context.Background(), docPath("foodLogEntries", "doc-1"))
	require.NoError(t, err)
	assert.Equal(t, "apple", got["foodName"], "the local write still wins even after a conflict is recorded")
}

func TestApplyWithConflictRule_ServerCaughtUpNoConflict(t *testing.T) {
	store := openTestStore(t)
	rs := newFakeRemoteStore()
	rs.tx.docs[docPath("foodLogEntries", "doc-1")] = map[string]any{"foodName": "banana", "_version": float64(2)}

	newVersion, conflict, err := applyWithConflictRule(context.Background(), store, rs, "foodLogEntries", "doc-1", map[string]any{"foodName": "apple"}, 2)
	require.NoError(t, err)
	assert.False(t, conflict)
	assert.Equal(t, int64(3), newVersion)

	conflicts, err := store.ListConflicts()
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestVersionOf(t *testing.T) {
	assert.Equal(t, int64(0), versionOf(map[string]any{}))
	assert.Equal(t, int64(5), versionOf(map[string]any{"_version": float64(5)}))
	assert.Equal(t, int64(5), versionOf(map[string]any{"_version": int64(5)}))
}
