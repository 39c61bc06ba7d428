package engine

import (
	"context"

	"materials-viewer/internal/viewer/models"
)

// ============================================================
// Render Engine Capability
// ============================================================

// ProgressFunc receives fractional load progress in [0, 1].
type ProgressFunc func(fraction float64)

// ClickHandler receives the local ids touched by a pointer event, in the
// engine's reported order.
type ClickHandler func(modelID string, localIDs []models.LocalID)

// LiveModel is the handle to the currently loaded 3D representation.
// Destroyed on reload, reset, or teardown; at most one per viewer.
type LiveModel struct {
	ModelID   string
	MeshCount int
}

// RenderEngine is the opaque rendering capability consumed by the viewer
// core. Implementations own mesh construction and local id assignment;
// the core never assumes local ids survive a reload.
type RenderEngine interface {
	// LoadModel decodes a geometry payload and constructs meshes,
	// reporting fractional progress along the way.
	LoadModel(ctx context.Context, binary []byte, progress ProgressFunc) (*LiveModel, error)

	// ResolveStableToLocal maps stable element ids to the local mesh ids
	// of one loaded model. The result is positional: entry i belongs to
	// stableIDs[i] and is empty for a resolution gap.
	ResolveStableToLocal(modelID string, stableIDs []string) [][]models.LocalID

	// StableIDForLocal recovers the stable id recorded in a mesh's
	// per-element metadata.
	StableIDForLocal(modelID string, localID models.LocalID) (string, bool)

	// AllLocalIDs lists every mesh id of one loaded model.
	AllLocalIDs(modelID string) []models.LocalID

	// HighlightSet paints the given local ids with a named style. With
	// exclusive set, previously painted ids outside the set lose the
	// style.
	HighlightSet(style, modelID string, localIDs []models.LocalID, exclusive bool) error

	// ClearHighlight removes all paint of a named style.
	ClearHighlight(style string) error

	// OnElementClicked registers the pointer event handler.
	OnElementClicked(handler ClickHandler)

	// DisposeModel frees the model's geometry and removes it from the
	// scene. Safe to call with an unknown id.
	DisposeModel(modelID string)
}
