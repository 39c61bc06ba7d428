package service

import (
	"context"
	"testing"

	"materials-viewer/internal/viewer/engine"
	"materials-viewer/internal/viewer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestModel(t *testing.T, eng engine.RenderEngine, binary []byte) *engine.LiveModel {
	t.Helper()
	live, err := eng.LoadModel(context.Background(), binary, nil)
	require.NoError(t, err)
	return live
}

func TestBridgeResolvesGroupsToLocalIDs(t *testing.T) {
	groups, binary := testWorld(t)
	eng := engine.NewHeadless()
	defer eng.Close()

	live := loadTestModel(t, eng, binary)
	bridge := BuildBridge(eng, live.ModelID, groups, 1, 1, 0)

	// Two concrete walls own three meshes between them.
	assert.Len(t, bridge.LocalIDsForGroup("Concrete"), 3)
	assert.Len(t, bridge.LocalIDsForGroup("Steel"), 1)

	// The door has no geometry: present in the table, empty in the bridge.
	assert.Empty(t, bridge.LocalIDsForGroup("IfcDoor"))

	assert.Empty(t, bridge.LocalIDsForGroup("Marble"))
}

func TestBridgeSmallBatchesResolveEverything(t *testing.T) {
	groups, binary := testWorld(t)
	eng := engine.NewHeadless()
	defer eng.Close()

	live := loadTestModel(t, eng, binary)

	whole := BuildBridge(eng, live.ModelID, groups, 1, 1, 0)
	chunked := BuildBridge(eng, live.ModelID, groups, 1, 1, 1)

	for _, g := range groups {
		assert.ElementsMatch(t, whole.LocalIDsForGroup(g.GroupKey), chunked.LocalIDsForGroup(g.GroupKey), g.GroupKey)
	}
}

func TestBridgeClickRoundTrip(t *testing.T) {
	groups, binary := testWorld(t)
	eng := engine.NewHeadless()
	defer eng.Close()

	live := loadTestModel(t, eng, binary)
	bridge := BuildBridge(eng, live.ModelID, groups, 1, 1, 0)

	// Every resolved mesh must click back to the group that owns it.
	for _, key := range []string{"Concrete", "Steel"} {
		for _, local := range bridge.LocalIDsForGroup(key) {
			got, ok := bridge.GroupForLocalClick(local)
			require.True(t, ok)
			assert.Equal(t, key, got)
		}
	}
}

func TestBridgeUnknownClickResolvesToNothing(t *testing.T) {
	groups, binary := testWorld(t)
	eng := engine.NewHeadless()
	defer eng.Close()

	live := loadTestModel(t, eng, binary)
	bridge := BuildBridge(eng, live.ModelID, groups, 1, 1, 0)

	_, ok := bridge.GroupForLocalClick(models.LocalID(1 << 30))
	assert.False(t, ok)
}

func TestBridgeReturnsCopies(t *testing.T) {
	groups, binary := testWorld(t)
	eng := engine.NewHeadless()
	defer eng.Close()

	live := loadTestModel(t, eng, binary)
	bridge := BuildBridge(eng, live.ModelID, groups, 1, 1, 0)

	first := bridge.LocalIDsForGroup("Concrete")
	require.NotEmpty(t, first)
	first[0] = models.LocalID(1 << 30)

	second := bridge.LocalIDsForGroup("Concrete")
	assert.NotEqual(t, first[0], second[0], "callers must not be able to mutate bridge state")
}

func TestBridgeVersionAccessors(t *testing.T) {
	groups, binary := testWorld(t)
	eng := engine.NewHeadless()
	defer eng.Close()

	live := loadTestModel(t, eng, binary)
	bridge := BuildBridge(eng, live.ModelID, groups, 7, 3, 0)

	assert.Equal(t, live.ModelID, bridge.ModelID())
	assert.Equal(t, uint64(7), bridge.Generation())
	assert.Equal(t, uint64(3), bridge.GroupsVersion())
}
