package models

// ============================================================
// Element manifest
// ============================================================

// QuantityKind tags a direct quantity entry.
type QuantityKind string

const (
	KindArea   QuantityKind = "area"
	KindVolume QuantityKind = "volume"
)

// DirectQuantity is one explicitly typed quantity attached to an element,
// the analogue of an IfcElementQuantity entry.
type DirectQuantity struct {
	Kind  QuantityKind `json:"kind"`
	Value float64      `json:"value"`
}

// QuantitySet is a named bag of quantity fields (Qto_* property set).
type QuantitySet struct {
	Name   string             `json:"name"`
	Fields map[string]float64 `json:"fields"`
}

// PropertyBag carries every quantity source known for one element.
// Direct entries take priority over set fields during resolution.
type PropertyBag struct {
	Direct []DirectQuantity `json:"direct,omitempty"`
	Sets   []QuantitySet    `json:"sets,omitempty"`
}

// GeometryRef describes the renderable geometry of an element. Elements
// without one exist in the semantic graph only (resolution gap).
type GeometryRef struct {
	Meshes int        `json:"meshes"`
	Bounds [6]float64 `json:"bounds,omitempty"`
}

// Element is one building-model entity as produced by the upstream
// parser. Immutable after parsing.
type Element struct {
	StableID      string       `json:"guid"`
	ClassLabel    string       `json:"class,omitempty"`
	MaterialLabel string       `json:"material,omitempty"`
	Quantities    PropertyBag  `json:"quantities"`
	Geometry      *GeometryRef `json:"geometry,omitempty"`
}

// Manifest is the batch output of the upstream parsing collaborator.
type Manifest struct {
	Schema   string    `json:"schema"`
	Unit     string    `json:"unit,omitempty"`
	Elements []Element `json:"elements"`
}

// ============================================================
// Material groups
// ============================================================

// MaterialGroup is the aggregation bucket for elements sharing a grouping
// key. Created once per upload, replaced wholesale on re-upload, never
// mutated in place.
type MaterialGroup struct {
	GroupKey             string   `json:"materialGroup"`
	HasMaterial          bool     `json:"hasMaterial"`
	ElementClass         string   `json:"elementClass,omitempty"`
	ElementCount         int      `json:"elementCount"`
	TotalArea            *float64 `json:"totalArea"`
	TotalVolume          *float64 `json:"totalVolume"`
	Density              float64  `json:"density"`
	TotalWeight          *float64 `json:"totalWeight"`
	StableElementIDs     []string `json:"elementIds"`
	HasMissingQuantities bool     `json:"missingQuantities"`
}

// ============================================================
// API payloads
// ============================================================

type UploadResponse struct {
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

type SummaryResponse struct {
	FileID         string          `json:"fileId"`
	Density        float64         `json:"density"`
	MaterialGroups []MaterialGroup `json:"materialGroups"`
}

// MeshEntry binds one mesh of the geometry payload to the stable id of
// the element it was generated from.
type MeshEntry struct {
	StableID  string `json:"stableId"`
	MeshIndex int    `json:"meshIndex"`
}

// ModelPayload is the renderable model served to the viewer. Mesh indices
// are payload-scoped; the rendering engine assigns its own local ids.
type ModelPayload struct {
	ModelID string      `json:"modelId"`
	Meshes  []MeshEntry `json:"meshes"`
}

// IdentifierMap exposes the stable-id/mesh-index correspondence plus the
// stable ids that produced no geometry.
type IdentifierMap struct {
	MeshToStableID map[int]string   `json:"meshToStableId"`
	StableIDToMesh map[string][]int `json:"stableIdToMesh"`
	SkippedIDs     []string         `json:"skippedIds"`
}
