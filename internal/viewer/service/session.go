package service

import (
	"context"
	"errors"
	"log"
	"sync"

	materials "materials-viewer/internal/materials/models"
	"materials-viewer/internal/viewer/engine"
	"materials-viewer/internal/viewer/models"

	"github.com/google/uuid"
)

// ============================================================
// Viewer Session
// ============================================================

// GroupFetcher retrieves the material group table for a file id.
type GroupFetcher func(ctx context.Context, fileID string, density float64) ([]materials.MaterialGroup, error)

// eventBuffer sizes the outgoing event channel. Slow consumers lose
// intermediate progress events, never the connection.
const eventBuffer = 64

// Session owns one viewer: its lifecycle, its identifier bridge, its
// highlight state and its group table. The group table is replaced
// wholesale on every load; the bridge is rebuilt whenever the table or
// the live model changes, and highlight requests built against an older
// pair are dropped.
type Session struct {
	ID string

	engine      engine.RenderEngine
	lifecycle   *Lifecycle
	highlight   *HighlightController
	fetchGroups GroupFetcher

	mu            sync.Mutex
	density       float64
	groups        []materials.MaterialGroup
	groupsVersion uint64
	bridge        *Bridge
	selection     models.HighlightSelection
	batchSize     int

	// evMu guards the event channel independently of mu: push may run
	// from inside lifecycle notifications and must never wait on mu.
	evMu   sync.Mutex
	closed bool
	events chan models.Event
}

// NewSession wires a session around a rendering engine and the two
// materials-service fetchers.
func NewSession(eng engine.RenderEngine, fetchModel FetchFunc, fetchGroups GroupFetcher, density float64) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		engine:      eng,
		fetchGroups: fetchGroups,
		density:     density,
		selection:   models.HighlightSelection{Mode: models.ModeSolid},
		batchSize:   DefaultResolveBatchSize,
		events:      make(chan models.Event, eventBuffer),
	}

	s.lifecycle = NewLifecycle(eng, fetchModel, func(snap models.Snapshot) {
		s.push(models.Event{Type: "state", State: &snap, Progress: snap.Progress})
	})
	s.highlight = NewHighlightController(eng, nil)

	eng.OnElementClicked(func(modelID string, localIDs []models.LocalID) {
		s.Click(localIDs)
	})

	return s
}

// Events is the outgoing event stream consumed by the transport layer.
func (s *Session) Events() <-chan models.Event { return s.events }

// LoadFile derives the group table and loads the geometry. Group table
// replacement happens first, so any highlight still in flight against the
// old table is invalidated before the new model appears.
func (s *Session) LoadFile(ctx context.Context, fileID string, density float64) error {
	s.mu.Lock()
	if density > 0 {
		s.density = density
	}
	d := s.density
	s.mu.Unlock()

	groups, err := s.fetchGroups(ctx, fileID, d)
	if err != nil {
		s.push(models.Event{Type: "error", Message: "failed to load material groups: " + err.Error()})
		return err
	}

	s.mu.Lock()
	s.groups = groups
	s.groupsVersion++
	s.bridge = nil
	s.selection = models.HighlightSelection{Mode: s.selection.Mode}
	s.mu.Unlock()

	s.push(models.Event{Type: "groups", Groups: groups})

	if err := s.lifecycle.Load(ctx, fileID); err != nil {
		if errors.Is(err, models.ErrStaleCompletion) {
			return nil
		}
		s.push(models.Event{Type: "error", Message: err.Error()})
		return err
	}

	s.rebuildBridge()
	return nil
}

// Reload re-loads the current file, superseding any load in flight.
func (s *Session) Reload(ctx context.Context) error {
	err := s.lifecycle.Reload(ctx)
	if err != nil {
		if errors.Is(err, models.ErrStaleCompletion) {
			return nil
		}
		s.push(models.Event{Type: "error", Message: err.Error()})
		return err
	}

	s.rebuildBridge()
	return nil
}

// Reset discards the live model and selection but keeps the group table;
// the next load rebuilds everything.
func (s *Session) Reset() {
	s.lifecycle.Reset()

	s.mu.Lock()
	s.bridge = nil
	s.selection = models.HighlightSelection{Mode: s.selection.Mode}
	sel := s.selection
	s.mu.Unlock()

	s.push(models.Event{Type: "selection", Selection: &sel})
}

// SelectGroup selects a group, with toggle semantics: selecting the
// already-selected group clears the selection. Empty key clears.
func (s *Session) SelectGroup(groupKey string) {
	s.mu.Lock()
	if groupKey != "" && s.selection.GroupKey == groupKey {
		groupKey = ""
	}
	s.selection.GroupKey = groupKey
	sel := s.selection
	s.mu.Unlock()

	s.push(models.Event{Type: "selection", Selection: &sel})
	s.applyHighlight()
}

// SetMode switches between solid and x-ray display.
func (s *Session) SetMode(mode models.Mode) {
	if mode != models.ModeSolid && mode != models.ModeXray {
		return
	}

	s.mu.Lock()
	s.selection.Mode = mode
	sel := s.selection
	s.mu.Unlock()

	s.push(models.Event{Type: "selection", Selection: &sel})
	s.applyHighlight()
}

// Click translates an engine click event into a group selection.
// Unresolvable clicks are ignored and leave the selection untouched.
func (s *Session) Click(localIDs []models.LocalID) {
	s.mu.Lock()
	bridge := s.bridge
	s.mu.Unlock()

	groupKey, ok := s.highlight.ResolveClick(bridge, localIDs)
	if !ok {
		return
	}
	s.SelectGroup(groupKey)
}

// Snapshot exposes the lifecycle observables (isLoading, loadProgress,
// lastError) in one read.
func (s *Session) Snapshot() models.Snapshot {
	return s.lifecycle.Snapshot()
}

// Selection reports the current highlight selection.
func (s *Session) Selection() models.HighlightSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Groups reports the current group table.
func (s *Session) Groups() []materials.MaterialGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups
}

// Bridge exposes the current identifier bridge (nil while no model is
// installed).
func (s *Session) Bridge() *Bridge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bridge
}

// Close tears the session down and disposes the live model.
func (s *Session) Close() {
	s.evMu.Lock()
	if s.closed {
		s.evMu.Unlock()
		return
	}
	s.closed = true
	s.evMu.Unlock()

	s.lifecycle.Dispose()

	s.evMu.Lock()
	close(s.events)
	s.evMu.Unlock()
}

// ============================================================
// Internal
// ============================================================

// rebuildBridge builds a fresh bridge for the current (model, table) pair
// and reapplies the selection. The rebuild must complete before any
// highlight referencing the new model runs; installing under the lock
// with a generation recheck guarantees a racing newer load wins.
func (s *Session) rebuildBridge() {
	live, generation := s.lifecycle.Live()
	if live == nil {
		return
	}

	s.mu.Lock()
	groups := s.groups
	groupsVersion := s.groupsVersion
	batchSize := s.batchSize
	s.mu.Unlock()

	bridge := BuildBridge(s.engine, live.ModelID, groups, generation, groupsVersion, batchSize)

	s.mu.Lock()
	current, gen := s.lifecycle.Live()
	if current == nil || gen != generation || s.groupsVersion != groupsVersion {
		// A newer load or table replacement raced us; our bridge is
		// already stale. Drop it.
		s.mu.Unlock()
		return
	}
	s.bridge = bridge
	s.mu.Unlock()

	s.applyHighlight()
}

// applyHighlight pushes the current selection to the engine, dropping the
// request when the bridge no longer matches the live model or table.
func (s *Session) applyHighlight() {
	s.mu.Lock()
	bridge := s.bridge
	sel := s.selection
	groupsVersion := s.groupsVersion
	s.mu.Unlock()

	live, generation := s.lifecycle.Live()
	if live == nil || bridge == nil {
		return
	}
	if bridge.GroupsVersion() != groupsVersion {
		// The table was replaced while this request was in flight.
		return
	}

	if err := s.highlight.Apply(sel, bridge, live, generation); err != nil {
		if errors.Is(err, models.ErrStaleBridge) {
			return
		}
		log.Printf("[SESSION %s] apply highlight: %v", s.ID, err)
		return
	}

	emphasis := []models.LocalID{}
	dim := []models.LocalID{}
	if sel.GroupKey != "" {
		emphasis = bridge.LocalIDsForGroup(sel.GroupKey)
	}
	if sel.Mode == models.ModeXray {
		dim = s.engine.AllLocalIDs(live.ModelID)
	}
	s.push(models.Event{Type: "highlight", Selection: &sel, Emphasis: emphasis, Dim: dim})
}

// push delivers an event without ever blocking the core; a full buffer
// drops the event.
func (s *Session) push(ev models.Event) {
	s.evMu.Lock()
	defer s.evMu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}
