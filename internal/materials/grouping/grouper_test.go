package grouping

import (
	"testing"

	"materials-viewer/internal/materials/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func directArea(v float64) models.PropertyBag {
	return models.PropertyBag{Direct: []models.DirectQuantity{{Kind: models.KindArea, Value: v}}}
}

func directBoth(area, volume float64) models.PropertyBag {
	return models.PropertyBag{Direct: []models.DirectQuantity{
		{Kind: models.KindArea, Value: area},
		{Kind: models.KindVolume, Value: volume},
	}}
}

func TestGroupEmptyInput(t *testing.T) {
	groups := Group(nil, 2400)
	assert.Empty(t, groups)
}

func TestGroupKeyFallback(t *testing.T) {
	elements := []models.Element{
		{StableID: "a", MaterialLabel: "Concrete", ClassLabel: "IfcWall"},
		{StableID: "b", ClassLabel: "IfcWall"},
		{StableID: "c"},
	}

	groups := Group(elements, 2400)
	require.Len(t, groups, 3)

	// Material-labelled groups sort first.
	assert.Equal(t, "Concrete", groups[0].GroupKey)
	assert.True(t, groups[0].HasMaterial)
	assert.Equal(t, "IfcWall", groups[1].GroupKey)
	assert.False(t, groups[1].HasMaterial)
	assert.Equal(t, UnassignedKey, groups[2].GroupKey)
}

func TestGroupPartition(t *testing.T) {
	elements := []models.Element{
		{StableID: "a", MaterialLabel: "Concrete"},
		{StableID: "b", MaterialLabel: "Concrete"},
		{StableID: "c", MaterialLabel: "Steel"},
		{StableID: "d", ClassLabel: "IfcDoor"},
		{StableID: "e"},
	}

	groups := Group(elements, 2400)

	seen := make(map[string]int)
	total := 0
	for _, g := range groups {
		assert.Equal(t, g.ElementCount, len(g.StableElementIDs))
		for _, id := range g.StableElementIDs {
			seen[id]++
			total++
		}
	}

	// Every element in exactly one group, no duplicates, no omissions.
	assert.Equal(t, len(elements), total)
	for _, el := range elements {
		assert.Equal(t, 1, seen[el.StableID], "element %s", el.StableID)
	}
}

func TestGroupPartialSums(t *testing.T) {
	elements := []models.Element{
		{StableID: "a", MaterialLabel: "Brick", Quantities: directArea(10)},
		{StableID: "b", MaterialLabel: "Brick"},
		{StableID: "c", MaterialLabel: "Brick", Quantities: directArea(20)},
	}

	groups := Group(elements, 2400)
	require.Len(t, groups, 1)

	g := groups[0]
	require.NotNil(t, g.TotalArea)
	assert.Equal(t, 30.0, *g.TotalArea)
	assert.Nil(t, g.TotalVolume)
	assert.Nil(t, g.TotalWeight)
	assert.True(t, g.HasMissingQuantities)
}

func TestGroupWeightDerivation(t *testing.T) {
	elements := []models.Element{
		{StableID: "a", MaterialLabel: "Concrete", Quantities: directBoth(5, 2)},
		{StableID: "b", MaterialLabel: "Concrete", Quantities: directBoth(5, 3)},
	}

	groups := Group(elements, 2400)
	require.Len(t, groups, 1)

	g := groups[0]
	require.NotNil(t, g.TotalVolume)
	require.NotNil(t, g.TotalWeight)
	assert.Equal(t, 5.0, *g.TotalVolume)
	assert.Equal(t, 5.0*2400, *g.TotalWeight)
	assert.False(t, g.HasMissingQuantities)
}

func TestGroupWeightAbsentWithoutVolume(t *testing.T) {
	elements := []models.Element{
		{StableID: "a", MaterialLabel: "Glass", Quantities: directArea(4)},
	}

	groups := Group(elements, 2400)
	require.Len(t, groups, 1)
	assert.Nil(t, groups[0].TotalVolume)
	assert.Nil(t, groups[0].TotalWeight)
}

func TestGroupZeroVolumeStillWeighs(t *testing.T) {
	// A present zero is a value: weight must be present (and zero) too.
	elements := []models.Element{
		{StableID: "a", MaterialLabel: "Air", Quantities: models.PropertyBag{
			Direct: []models.DirectQuantity{{Kind: models.KindVolume, Value: 0}},
		}},
	}

	groups := Group(elements, 2400)
	require.Len(t, groups, 1)
	require.NotNil(t, groups[0].TotalVolume)
	require.NotNil(t, groups[0].TotalWeight)
	assert.Equal(t, 0.0, *groups[0].TotalWeight)
}

func TestGroupDefaultDensity(t *testing.T) {
	elements := []models.Element{
		{StableID: "a", MaterialLabel: "Concrete", Quantities: directBoth(1, 1)},
	}

	groups := Group(elements, 0)
	require.Len(t, groups, 1)
	assert.Equal(t, DefaultDensity, groups[0].Density)
	require.NotNil(t, groups[0].TotalWeight)
	assert.Equal(t, DefaultDensity, *groups[0].TotalWeight)
}

func TestGroupDeterministicOrder(t *testing.T) {
	elements := []models.Element{
		{StableID: "1", ClassLabel: "IfcWindow"},
		{StableID: "2", MaterialLabel: "Steel"},
		{StableID: "3", MaterialLabel: "Concrete"},
		{StableID: "4", ClassLabel: "IfcDoor"},
	}

	first := Group(elements, 2400)
	for i := 0; i < 5; i++ {
		again := Group(elements, 2400)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].GroupKey, again[j].GroupKey)
		}
	}

	assert.Equal(t, "Concrete", first[0].GroupKey)
	assert.Equal(t, "Steel", first[1].GroupKey)
	assert.Equal(t, "IfcDoor", first[2].GroupKey)
	assert.Equal(t, "IfcWindow", first[3].GroupKey)
}
