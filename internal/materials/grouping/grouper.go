package grouping

import (
	"sort"

	"materials-viewer/internal/materials/models"
	"materials-viewer/internal/materials/quantity"
)

// ============================================================
// Material Grouper
// ============================================================

// UnassignedKey is the sentinel group for elements with neither a material
// label nor a class label.
const UnassignedKey = "Unassigned"

// DefaultDensity is the fallback density in kg/m³ used for weight
// derivation when the caller supplies none.
const DefaultDensity = 2400.0

type accumulator struct {
	hasMaterial  bool
	elementClass string
	count        int
	area         float64
	areaPresent  bool
	volume       float64
	volPresent   bool
	missing      bool
	ids          []string
}

// groupKey derives the bucket for one element: material label first,
// class label second, sentinel last.
func groupKey(el models.Element) (key string, hasMaterial bool) {
	if el.MaterialLabel != "" {
		return el.MaterialLabel, true
	}
	if el.ClassLabel != "" {
		return el.ClassLabel, false
	}
	return UnassignedKey, false
}

// Group assigns every element to exactly one material group and aggregates
// quantities. Sums are partial: members without a value contribute nothing
// and flip HasMissingQuantities instead of zeroing the total. An empty
// element list yields an empty table.
func Group(elements []models.Element, density float64) []models.MaterialGroup {
	if density <= 0 {
		density = DefaultDensity
	}

	buckets := make(map[string]*accumulator)

	for _, el := range elements {
		key, hasMaterial := groupKey(el)

		acc, ok := buckets[key]
		if !ok {
			acc = &accumulator{hasMaterial: hasMaterial}
			buckets[key] = acc
		}
		if acc.elementClass == "" {
			acc.elementClass = el.ClassLabel
		}

		acc.count++
		acc.ids = append(acc.ids, el.StableID)

		area, volume := quantity.Resolve(el.Quantities)
		if area != nil {
			acc.area += *area
			acc.areaPresent = true
		} else {
			acc.missing = true
		}
		if volume != nil {
			acc.volume += *volume
			acc.volPresent = true
		} else {
			acc.missing = true
		}
	}

	groups := make([]models.MaterialGroup, 0, len(buckets))
	for key, acc := range buckets {
		g := models.MaterialGroup{
			GroupKey:             key,
			HasMaterial:          acc.hasMaterial,
			ElementClass:         acc.elementClass,
			ElementCount:         acc.count,
			Density:              density,
			StableElementIDs:     acc.ids,
			HasMissingQuantities: acc.missing,
		}
		if acc.areaPresent {
			area := acc.area
			g.TotalArea = &area
		}
		if acc.volPresent {
			volume := acc.volume
			g.TotalVolume = &volume
			weight := volume * density
			g.TotalWeight = &weight
		}
		groups = append(groups, g)
	}

	// Material-labelled groups first, then by key. Deterministic order is
	// part of the contract (tests and CSV export depend on it).
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].HasMaterial != groups[j].HasMaterial {
			return groups[i].HasMaterial
		}
		if groups[i].GroupKey != groups[j].GroupKey {
			return groups[i].GroupKey < groups[j].GroupKey
		}
		return groups[i].ElementClass < groups[j].ElementClass
	})

	return groups
}
