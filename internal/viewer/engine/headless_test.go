package engine

import (
	"context"
	"encoding/json"
	"testing"

	materials "materials-viewer/internal/materials/models"
	"materials-viewer/internal/viewer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadBytes(t *testing.T, modelID string, meshes ...materials.MeshEntry) []byte {
	t.Helper()
	data, err := json.Marshal(materials.ModelPayload{ModelID: modelID, Meshes: meshes})
	require.NoError(t, err)
	return data
}

func TestLoadModelAssignsLocalIDs(t *testing.T) {
	eng := NewHeadless()
	defer eng.Close()

	binary := payloadBytes(t, "f1",
		materials.MeshEntry{StableID: "a", MeshIndex: 0},
		materials.MeshEntry{StableID: "a", MeshIndex: 1},
		materials.MeshEntry{StableID: "b", MeshIndex: 2},
	)

	live, err := eng.LoadModel(context.Background(), binary, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, live.MeshCount)

	resolved := eng.ResolveStableToLocal(live.ModelID, []string{"a", "b", "ghost"})
	require.Len(t, resolved, 3)
	assert.Len(t, resolved[0], 2)
	assert.Len(t, resolved[1], 1)
	assert.Empty(t, resolved[2], "unknown stable id resolves to nothing")

	assert.Len(t, eng.AllLocalIDs(live.ModelID), 3)
}

func TestLocalIDsNotStableAcrossLoads(t *testing.T) {
	eng := NewHeadless()
	defer eng.Close()

	binary := payloadBytes(t, "f1", materials.MeshEntry{StableID: "a", MeshIndex: 0})

	first, err := eng.LoadModel(context.Background(), binary, nil)
	require.NoError(t, err)
	firstIDs := eng.ResolveStableToLocal(first.ModelID, []string{"a"})[0]

	eng.DisposeModel(first.ModelID)

	second, err := eng.LoadModel(context.Background(), binary, nil)
	require.NoError(t, err)
	secondIDs := eng.ResolveStableToLocal(second.ModelID, []string{"a"})[0]

	require.Len(t, firstIDs, 1)
	require.Len(t, secondIDs, 1)
	assert.NotEqual(t, firstIDs[0], secondIDs[0], "same bytes must not yield the same local id")
	assert.NotEqual(t, first.ModelID, second.ModelID)
}

func TestLoadModelRejectsGarbage(t *testing.T) {
	eng := NewHeadless()
	defer eng.Close()

	_, err := eng.LoadModel(context.Background(), []byte("not a payload"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDecodeFailure)
}

func TestHighlightTracking(t *testing.T) {
	eng := NewHeadless()
	defer eng.Close()

	binary := payloadBytes(t, "f1",
		materials.MeshEntry{StableID: "a", MeshIndex: 0},
		materials.MeshEntry{StableID: "b", MeshIndex: 1},
	)
	live, err := eng.LoadModel(context.Background(), binary, nil)
	require.NoError(t, err)

	ids := eng.AllLocalIDs(live.ModelID)
	require.NoError(t, eng.HighlightSet("highlight", live.ModelID, ids[:1], false))
	assert.Equal(t, ids[:1], eng.Painted("highlight", live.ModelID))

	// Exclusive replaces the whole style layer.
	require.NoError(t, eng.HighlightSet("highlight", live.ModelID, ids[1:], true))
	assert.Equal(t, ids[1:], eng.Painted("highlight", live.ModelID))

	require.NoError(t, eng.ClearHighlight("highlight"))
	assert.Empty(t, eng.Painted("highlight", live.ModelID))
}

func TestHighlightUnknownModelFails(t *testing.T) {
	eng := NewHeadless()
	defer eng.Close()

	err := eng.HighlightSet("highlight", "nope", []models.LocalID{1}, false)
	assert.Error(t, err)
}

func TestDisposeDropsHighlights(t *testing.T) {
	eng := NewHeadless()
	defer eng.Close()

	binary := payloadBytes(t, "f1", materials.MeshEntry{StableID: "a", MeshIndex: 0})
	live, err := eng.LoadModel(context.Background(), binary, nil)
	require.NoError(t, err)

	require.NoError(t, eng.HighlightSet("highlight", live.ModelID, eng.AllLocalIDs(live.ModelID), false))
	eng.DisposeModel(live.ModelID)

	assert.Empty(t, eng.Painted("highlight", live.ModelID))
	assert.Empty(t, eng.AllLocalIDs(live.ModelID))
	assert.Zero(t, eng.LoadedModels())
}

func TestProgressReporting(t *testing.T) {
	eng := NewHeadless()
	defer eng.Close()

	meshes := make([]materials.MeshEntry, 200)
	for i := range meshes {
		meshes[i] = materials.MeshEntry{StableID: "a", MeshIndex: i}
	}
	binary := payloadBytes(t, "f1", meshes...)

	var fractions []float64
	_, err := eng.LoadModel(context.Background(), binary, func(fraction float64) {
		fractions = append(fractions, fraction)
	})
	require.NoError(t, err)

	require.NotEmpty(t, fractions)
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
}

func TestWorkerRefCounting(t *testing.T) {
	before := WorkerRefs()

	a := NewHeadless()
	b := NewHeadless()
	assert.Equal(t, before+2, WorkerRefs())

	a.Close()
	assert.Equal(t, before+1, WorkerRefs())
	b.Close()
	assert.Equal(t, before, WorkerRefs())
}
