package service

import (
	"log"
	"sync"

	"materials-viewer/internal/viewer/engine"
	"materials-viewer/internal/viewer/models"
)

// ============================================================
// Highlight Controller
// ============================================================

// Engine style names for the two paint layers.
const (
	StyleEmphasis = "highlight"
	StyleXray     = "xray"
)

// HighlightController turns a selection plus display mode into engine
// paint operations. Engine failures here are swallowed after logging:
// losing highlight fidelity is non-fatal, losing viewer interactivity is
// not.
type HighlightController struct {
	mu          sync.Mutex
	engine      engine.RenderEngine
	lastApplied *models.HighlightSelection
	cleared     bool
	logf        func(format string, args ...any)
}

func NewHighlightController(eng engine.RenderEngine, logf func(format string, args ...any)) *HighlightController {
	if logf == nil {
		logf = log.Printf
	}
	return &HighlightController{engine: eng, logf: logf}
}

// Apply repaints the model for the given selection. The bridge must match
// the live model's generation; a stale bridge is rejected so paint never
// lands on disposed geometry. Both layers are cleared before repainting
// to keep a previous selection from leaking through when a group resolves
// to an empty set.
func (h *HighlightController) Apply(sel models.HighlightSelection, bridge *Bridge, live *engine.LiveModel, generation uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if bridge == nil || live == nil {
		return nil
	}
	if bridge.Generation() != generation || bridge.ModelID() != live.ModelID {
		return models.ErrStaleBridge
	}

	if sel.GroupKey == "" && sel.Mode == models.ModeSolid && h.cleared {
		// Already blank; repeat clears issue no engine calls.
		return nil
	}

	if err := h.engine.ClearHighlight(StyleEmphasis); err != nil {
		h.logf("[HIGHLIGHT] clear emphasis: %v", err)
		return nil
	}
	if err := h.engine.ClearHighlight(StyleXray); err != nil {
		h.logf("[HIGHLIGHT] clear xray: %v", err)
		return nil
	}

	var err error
	switch {
	case sel.GroupKey == "" && sel.Mode == models.ModeSolid:
		// Blank canvas.

	case sel.GroupKey == "" && sel.Mode == models.ModeXray:
		err = h.engine.HighlightSet(StyleXray, live.ModelID, h.engine.AllLocalIDs(live.ModelID), false)

	case sel.Mode == models.ModeSolid:
		err = h.engine.HighlightSet(StyleEmphasis, live.ModelID, bridge.LocalIDsForGroup(sel.GroupKey), true)

	case sel.Mode == models.ModeXray:
		err = h.engine.HighlightSet(StyleXray, live.ModelID, h.engine.AllLocalIDs(live.ModelID), false)
		if err == nil {
			err = h.engine.HighlightSet(StyleEmphasis, live.ModelID, bridge.LocalIDsForGroup(sel.GroupKey), false)
		}
	}

	if err != nil {
		// Best effort: report and leave the last applied state in place.
		h.logf("[HIGHLIGHT] apply %q/%s: %v", sel.GroupKey, sel.Mode, err)
		return nil
	}

	applied := sel
	h.lastApplied = &applied
	h.cleared = sel.GroupKey == "" && sel.Mode == models.ModeSolid
	return nil
}

// ResolveClick reduces an engine click event to a group selection. Batch
// clicks collapse to their first reported member. Unresolvable clicks
// return false and must leave the current selection untouched.
func (h *HighlightController) ResolveClick(bridge *Bridge, localIDs []models.LocalID) (string, bool) {
	if bridge == nil || len(localIDs) == 0 {
		return "", false
	}
	return bridge.GroupForLocalClick(localIDs[0])
}

// LastApplied reports the most recent selection that reached the engine.
func (h *HighlightController) LastApplied() *models.HighlightSelection {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.lastApplied == nil {
		return nil
	}
	out := *h.lastApplied
	return &out
}
