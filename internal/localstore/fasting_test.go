package localstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

func TestSaveFastingPlan_RoundTrip(t *testing.T) {
	store, _ := openTestStore(t)

	plan := models.OpaqueRecord{ID: "plan1", IndexedKey: "16:8", Payload: []byte(`{"hours":16}`)}
	require.NoError(t, store.SaveFastingPlan(plan))

	n, err := store.pendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteFastingPlan_ResurrectionGuardBlocksLateWrite(t *testing.T) {
	store, _ := openTestStore(t)

	plan := models.OpaqueRecord{ID: "plan1", IndexedKey: "16:8"}
	require.NoError(t, store.SaveFastingPlan(plan))
	require.NoError(t, store.DeleteFastingPlan("plan1"))

	require.NoError(t, store.SaveFastingPlan(plan))

	var status string
	err := store.conn.QueryRow(`SELECT sync_status FROM fasting_plans WHERE id = ?`, "plan1").Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusDeleted), status, "a save after tombstoning a plan must not resurrect it")
}

func TestSaveFastingSession_RoundTripAndListSince(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.SaveFastingSession(models.OpaqueRecord{ID: "s1", IndexedKey: "plan1", Timestamp: 1000}))
	require.NoError(t, store.SaveFastingSession(models.OpaqueRecord{ID: "s2", IndexedKey: "plan1", Timestamp: 2000}))

	sessions, err := store.ListFastingSessionsSince(1500)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s2", sessions[0].ID)
}

func TestDeleteFastingSession_ExcludesFromListSince(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.SaveFastingSession(models.OpaqueRecord{ID: "s1", IndexedKey: "plan1", Timestamp: 1000}))
	require.NoError(t, store.DeleteFastingSession("s1"))

	sessions, err := store.ListFastingSessionsSince(0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
