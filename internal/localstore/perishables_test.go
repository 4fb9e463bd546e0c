package localstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

func TestSavePerishableItem_RoundTrip(t *testing.T) {
	store, _ := openTestStore(t)

	item := models.PerishableItem{ID: "p1", Name: "milk", Quantity: 1, Unit: "carton", ExpiryDate: "2026-02-01", AddedDate: "2026-01-01"}
	require.NoError(t, store.SavePerishableItem(item))

	got, found, err := store.getPerishableItemTx(nil, "p1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "milk", got.Name)
	assert.Equal(t, models.StatusPending, got.SyncStatus)
}

func TestSavePerishableItem_UpdateCollapsesQueueRow(t *testing.T) {
	store, _ := openTestStore(t)

	item := models.PerishableItem{ID: "p1", Name: "milk", Quantity: 1, Unit: "carton", ExpiryDate: "2026-02-01", AddedDate: "2026-01-01"}
	require.NoError(t, store.SavePerishableItem(item))
	item.Quantity = 2
	require.NoError(t, store.SavePerishableItem(item))

	n, err := store.pendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListExpiringPerishables_ExcludesDeletedAndOrdersByExpiry(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.SavePerishableItem(models.PerishableItem{ID: "p1", Name: "milk", ExpiryDate: "2026-02-05", AddedDate: "2026-01-01"}))
	require.NoError(t, store.SavePerishableItem(models.PerishableItem{ID: "p2", Name: "eggs", ExpiryDate: "2026-02-01", AddedDate: "2026-01-01"}))
	require.NoError(t, store.SavePerishableItem(models.PerishableItem{ID: "p3", Name: "yogurt", ExpiryDate: "2026-02-02", AddedDate: "2026-01-01"}))
	require.NoError(t, store.DeletePerishableItem("p3"))

	items, err := store.ListExpiringPerishables("2026-02-10")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p2", items[0].ID)
	assert.Equal(t, "p1", items[1].ID)
}

func TestDeletePerishableItem_ResurrectionGuardBlocksLateWrite(t *testing.T) {
	store, _ := openTestStore(t)

	item := models.PerishableItem{ID: "p1", Name: "milk", ExpiryDate: "2026-02-01", AddedDate: "2026-01-01"}
	require.NoError(t, store.SavePerishableItem(item))
	require.NoError(t, store.DeletePerishableItem("p1"))

	require.NoError(t, store.SavePerishableItem(item))

	items, err := store.ListExpiringPerishables("2026-12-31")
	require.NoError(t, err)
	assert.Empty(t, items, "a save after tombstoning must not resurrect the item")
}

func TestDeletePerishableItem_NoOpOnUnknownID(t *testing.T) {
	store, _ := openTestStore(t)
	require.NoError(t, store.DeletePerishableItem("does-not-exist"))

	n, err := store.pendingCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
