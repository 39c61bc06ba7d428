package geometry

import (
	"testing"

	"materials-viewer/internal/materials/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSkipsElementsWithoutGeometry(t *testing.T) {
	elements := []models.Element{
		{StableID: "a", Geometry: &models.GeometryRef{Meshes: 2}},
		{StableID: "b"},
		{StableID: "c", Geometry: &models.GeometryRef{Meshes: 1}},
	}

	payload, idMap := Build("file-1", elements)

	assert.Equal(t, "file-1", payload.ModelID)
	require.Len(t, payload.Meshes, 3)
	assert.Equal(t, []string{"b"}, idMap.SkippedIDs)

	assert.Equal(t, []int{0, 1}, idMap.StableIDToMesh["a"])
	assert.Equal(t, []int{2}, idMap.StableIDToMesh["c"])
	assert.Equal(t, "a", idMap.MeshToStableID[0])
	assert.Equal(t, "c", idMap.MeshToStableID[2])

	_, hasB := idMap.StableIDToMesh["b"]
	assert.False(t, hasB)
}

func TestBuildEmptyModel(t *testing.T) {
	payload, idMap := Build("file-2", nil)
	assert.Empty(t, payload.Meshes)
	assert.Empty(t, idMap.SkippedIDs)
	assert.Empty(t, idMap.MeshToStableID)
}

func TestBuildMeshIndicesAreContiguous(t *testing.T) {
	elements := []models.Element{
		{StableID: "a", Geometry: &models.GeometryRef{Meshes: 1}},
		{StableID: "b", Geometry: &models.GeometryRef{Meshes: 3}},
	}

	payload, _ := Build("file-3", elements)
	require.Len(t, payload.Meshes, 4)
	for i, mesh := range payload.Meshes {
		assert.Equal(t, i, mesh.MeshIndex)
	}
}
