package service

import (
	materials "materials-viewer/internal/materials/models"
	"materials-viewer/internal/viewer/engine"
	"materials-viewer/internal/viewer/models"
)

// ============================================================
// Identifier Bridge
// ============================================================

// DefaultResolveBatchSize caps how many stable ids go into one engine
// resolution call. Tunable, not contractual.
const DefaultResolveBatchSize = 512

// Bridge maps between the stable element ids of the material group table
// and the local mesh ids of one loaded model. It is valid for exactly one
// (model generation, group table version) pair and must be rebuilt after
// either changes: local ids do not survive a reload, even of identical
// bytes.
type Bridge struct {
	engine        engine.RenderEngine
	modelID       string
	generation    uint64
	groupsVersion uint64
	byGroup       map[string][]models.LocalID
	groupByStable map[string]string
}

// BuildBridge resolves every group member through the engine in batches,
// silently dropping stable ids with no geometry. The reverse map is
// precomputed so click resolution stays O(1).
func BuildBridge(eng engine.RenderEngine, modelID string, groups []materials.MaterialGroup, generation, groupsVersion uint64, batchSize int) *Bridge {
	if batchSize <= 0 {
		batchSize = DefaultResolveBatchSize
	}

	b := &Bridge{
		engine:        eng,
		modelID:       modelID,
		generation:    generation,
		groupsVersion: groupsVersion,
		byGroup:       make(map[string][]models.LocalID, len(groups)),
		groupByStable: make(map[string]string),
	}

	for _, g := range groups {
		var locals []models.LocalID
		ids := g.StableElementIDs
		for start := 0; start < len(ids); start += batchSize {
			end := start + batchSize
			if end > len(ids) {
				end = len(ids)
			}
			for _, resolved := range eng.ResolveStableToLocal(modelID, ids[start:end]) {
				locals = append(locals, resolved...)
			}
		}
		b.byGroup[g.GroupKey] = locals

		for _, stable := range ids {
			b.groupByStable[stable] = g.GroupKey
		}
	}

	return b
}

// LocalIDsForGroup returns the resolved local ids of one group. Empty for
// unknown groups or groups whose members all lack geometry.
func (b *Bridge) LocalIDsForGroup(groupKey string) []models.LocalID {
	locals := b.byGroup[groupKey]
	out := make([]models.LocalID, len(locals))
	copy(out, locals)
	return out
}

// GroupForLocalClick resolves a clicked mesh back to its group via the
// engine's per-element metadata.
func (b *Bridge) GroupForLocalClick(localID models.LocalID) (string, bool) {
	stable, ok := b.engine.StableIDForLocal(b.modelID, localID)
	if !ok {
		return "", false
	}
	group, ok := b.groupByStable[stable]
	return group, ok
}

// ModelID reports the engine model this bridge was built against.
func (b *Bridge) ModelID() string { return b.modelID }

// Generation reports the lifecycle generation this bridge was built
// against.
func (b *Bridge) Generation() uint64 { return b.generation }

// GroupsVersion reports the group table version this bridge was built
// against.
func (b *Bridge) GroupsVersion() uint64 { return b.groupsVersion }
