package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"materials-viewer/internal/materials/geometry"
	"materials-viewer/internal/materials/grouping"
	materials "materials-viewer/internal/materials/models"
	"materials-viewer/internal/viewer/engine"
	"materials-viewer/internal/viewer/models"

	"github.com/stretchr/testify/require"
)

// testElements is a small model: two Concrete walls (3 meshes total), one
// Steel beam (1 mesh) and a door with no renderable geometry.
func testElements() []materials.Element {
	return []materials.Element{
		{StableID: "wall-1", ClassLabel: "IfcWall", MaterialLabel: "Concrete",
			Geometry: &materials.GeometryRef{Meshes: 2}},
		{StableID: "wall-2", ClassLabel: "IfcWall", MaterialLabel: "Concrete",
			Geometry: &materials.GeometryRef{Meshes: 1}},
		{StableID: "beam-1", ClassLabel: "IfcBeam", MaterialLabel: "Steel",
			Geometry: &materials.GeometryRef{Meshes: 1}},
		{StableID: "door-1", ClassLabel: "IfcDoor"},
	}
}

func testWorld(t *testing.T) ([]materials.MaterialGroup, []byte) {
	t.Helper()

	elements := testElements()
	groups := grouping.Group(elements, 2400)

	payload, _ := geometry.Build("file-1", elements)
	binary, err := json.Marshal(payload)
	require.NoError(t, err)

	return groups, binary
}

func staticFetch(binary []byte) FetchFunc {
	return func(ctx context.Context, fileID string) ([]byte, error) {
		return binary, nil
	}
}

// ============================================================
// Instrumented engines
// ============================================================

// countingEngine records engine traffic on top of the headless engine.
type countingEngine struct {
	*engine.Headless

	mu             sync.Mutex
	loadCalls      int
	clearCalls     int
	highlightCalls int
	failHighlight  bool
}

func newCountingEngine() *countingEngine {
	return &countingEngine{Headless: engine.NewHeadless()}
}

func (e *countingEngine) LoadModel(ctx context.Context, binary []byte, progress engine.ProgressFunc) (*engine.LiveModel, error) {
	e.mu.Lock()
	e.loadCalls++
	e.mu.Unlock()
	return e.Headless.LoadModel(ctx, binary, progress)
}

func (e *countingEngine) ClearHighlight(style string) error {
	e.mu.Lock()
	e.clearCalls++
	e.mu.Unlock()
	return e.Headless.ClearHighlight(style)
}

func (e *countingEngine) HighlightSet(style, modelID string, localIDs []models.LocalID, exclusive bool) error {
	e.mu.Lock()
	e.highlightCalls++
	fail := e.failHighlight
	e.mu.Unlock()

	if fail {
		return context.Canceled
	}
	return e.Headless.HighlightSet(style, modelID, localIDs, exclusive)
}

func (e *countingEngine) setFailHighlight(fail bool) {
	e.mu.Lock()
	e.failHighlight = fail
	e.mu.Unlock()
}

func (e *countingEngine) calls() (load, clear, highlight int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadCalls, e.clearCalls, e.highlightCalls
}

// gatedEngine blocks one LoadModel call until released, to stage
// reload-while-loading races deterministically.
type gatedEngine struct {
	*engine.Headless

	mu        sync.Mutex
	blockNext bool
	started   chan struct{}
	gate      chan struct{}
}

func newGatedEngine() *gatedEngine {
	return &gatedEngine{
		Headless: engine.NewHeadless(),
		started:  make(chan struct{}, 1),
		gate:     make(chan struct{}),
	}
}

func (e *gatedEngine) blockNextLoad() {
	e.mu.Lock()
	e.blockNext = true
	e.mu.Unlock()
}

func (e *gatedEngine) LoadModel(ctx context.Context, binary []byte, progress engine.ProgressFunc) (*engine.LiveModel, error) {
	e.mu.Lock()
	block := e.blockNext
	e.blockNext = false
	e.mu.Unlock()

	if block {
		e.started <- struct{}{}
		<-e.gate
	}
	return e.Headless.LoadModel(ctx, binary, progress)
}
