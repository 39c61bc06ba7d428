package geometry

import "materials-viewer/internal/materials/models"

// ============================================================
// Geometry Payload Builder
// ============================================================

// Build produces the renderable payload for one uploaded model plus the
// identifier map the viewer uses for highlighting. Elements without
// geometry are skipped and recorded, so the materials table and the mesh
// table stay aligned (a stable id may legitimately resolve to no mesh).
func Build(fileID string, elements []models.Element) (models.ModelPayload, models.IdentifierMap) {
	payload := models.ModelPayload{ModelID: fileID}
	idMap := models.IdentifierMap{
		MeshToStableID: make(map[int]string),
		StableIDToMesh: make(map[string][]int),
		SkippedIDs:     []string{},
	}

	meshIndex := 0
	for _, el := range elements {
		if el.Geometry == nil || el.Geometry.Meshes <= 0 {
			idMap.SkippedIDs = append(idMap.SkippedIDs, el.StableID)
			continue
		}
		for i := 0; i < el.Geometry.Meshes; i++ {
			payload.Meshes = append(payload.Meshes, models.MeshEntry{
				StableID:  el.StableID,
				MeshIndex: meshIndex,
			})
			idMap.MeshToStableID[meshIndex] = el.StableID
			idMap.StableIDToMesh[el.StableID] = append(idMap.StableIDToMesh[el.StableID], meshIndex)
			meshIndex++
		}
	}

	return payload, idMap
}
