package localstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

func TestSaveFavoriteFood_RoundTrip(t *testing.T) {
	store, _ := openTestStore(t)

	rec := models.OpaqueRecord{ID: "fav1", IndexedKey: "apple", Payload: []byte(`{"servingSize":1}`)}
	require.NoError(t, store.SaveFavoriteFood(rec))

	favorites, err := store.ListFavoriteFoods()
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "apple", favorites[0].IndexedKey)
}

func TestDeleteFavoriteFood_ThenResurrectionGuardBlocksLateWrite(t *testing.T) {
	store, _ := openTestStore(t)

	rec := models.OpaqueRecord{ID: "fav1", IndexedKey: "apple"}
	require.NoError(t, store.SaveFavoriteFood(rec))
	require.NoError(t, store.DeleteFavoriteFood("fav1"))

	require.NoError(t, store.SaveFavoriteFood(rec))

	favorites, err := store.ListFavoriteFoods()
	require.NoError(t, err)
	assert.Empty(t, favorites, "a save after tombstoning a favorite must not resurrect it")
}
