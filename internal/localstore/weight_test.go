package localstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// TestSaveWeightEntry_NullableColumnsScanWithoutError guards against a
// regression where DressSize/PhotosJSON, NULL-able TEXT columns in the
// schema, were scanned directly into non-pointer Go strings and would
// fail Scan whenever a caller omitted them.
func TestSaveWeightEntry_NullableColumnsScanWithoutError(t *testing.T) {
	store, _ := openTestStore(t)

	entry := models.WeightEntry{ID: "w1", Weight: 180.5, Date: "2026-01-01"}
	require.NoError(t, store.SaveWeightEntry(entry))

	entries, err := store.ListWeightEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "", entries[0].DressSize)
	assert.Equal(t, "", entries[0].PhotosJSON)

	got, found, err := store.getWeightEntryTx(nil, "w1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "", got.DressSize)
}

func TestSaveWeightEntry_PreservesProvidedOptionalFields(t *testing.T) {
	store, _ := openTestStore(t)

	entry := models.WeightEntry{ID: "w1", Weight: 180.5, Date: "2026-01-01", DressSize: "10", PhotosJSON: `["a.jpg"]`}
	require.NoError(t, store.SaveWeightEntry(entry))

	entries, err := store.ListWeightEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "10", entries[0].DressSize)
	assert.JSONEq(t, `["a.jpg"]`, entries[0].PhotosJSON)
}

func TestDeleteWeightEntry_ExcludesFromList(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.SaveWeightEntry(models.WeightEntry{ID: "w1", Weight: 180, Date: "2026-01-01"}))
	require.NoError(t, store.DeleteWeightEntry("w1"))

	entries, err := store.ListWeightEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
