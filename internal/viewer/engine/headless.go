package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"materials-viewer/internal/viewer/models"
)

// ============================================================
// Headless Engine
// ============================================================

// progressChunk is the mesh batch size between progress reports.
const progressChunk = 64

type modelState struct {
	localByStable map[string][]models.LocalID
	stableByLocal map[models.LocalID]string
	all           []models.LocalID
}

// Headless is the in-process RenderEngine. It constructs no pixels; it
// decodes geometry payloads, assigns per-load local ids and tracks
// highlight styles so the websocket layer and tests can observe them.
// Local ids are deliberately offset per load: reloading the same file
// yields different ids, exactly like a real mesh engine.
type Headless struct {
	mu           sync.Mutex
	worker       *DecoderWorker
	models       map[string]*modelState
	styles       map[string]map[string]map[models.LocalID]struct{}
	clickHandler ClickHandler
	nextBase     models.LocalID
	loadSeq      int
}

func NewHeadless() *Headless {
	return &Headless{
		worker: AcquireWorker(),
		models: make(map[string]*modelState),
		styles: make(map[string]map[string]map[models.LocalID]struct{}),
	}
}

// Close disposes every model and releases the shared decoder worker.
func (e *Headless) Close() {
	e.mu.Lock()
	e.models = make(map[string]*modelState)
	e.styles = make(map[string]map[string]map[models.LocalID]struct{})
	e.mu.Unlock()
	ReleaseWorker()
}

func (e *Headless) LoadModel(ctx context.Context, binary []byte, progress ProgressFunc) (*LiveModel, error) {
	payload, err := e.worker.Decode(ctx, binary)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.loadSeq++
	modelID := fmt.Sprintf("%s#%d", payload.ModelID, e.loadSeq)
	base := e.nextBase
	e.nextBase += models.LocalID(len(payload.Meshes)) + 1
	e.mu.Unlock()

	state := &modelState{
		localByStable: make(map[string][]models.LocalID),
		stableByLocal: make(map[models.LocalID]string),
	}

	total := len(payload.Meshes)
	for i, mesh := range payload.Meshes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		localID := base + models.LocalID(mesh.MeshIndex)
		state.localByStable[mesh.StableID] = append(state.localByStable[mesh.StableID], localID)
		state.stableByLocal[localID] = mesh.StableID
		state.all = append(state.all, localID)

		if progress != nil && (i+1)%progressChunk == 0 {
			progress(float64(i+1) / float64(total))
		}
	}
	if progress != nil {
		progress(1)
	}

	e.mu.Lock()
	e.models[modelID] = state
	e.mu.Unlock()

	return &LiveModel{ModelID: modelID, MeshCount: total}, nil
}

func (e *Headless) ResolveStableToLocal(modelID string, stableIDs []string) [][]models.LocalID {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make([][]models.LocalID, len(stableIDs))
	state, ok := e.models[modelID]
	if !ok {
		return result
	}
	for i, id := range stableIDs {
		result[i] = state.localByStable[id]
	}
	return result
}

func (e *Headless) StableIDForLocal(modelID string, localID models.LocalID) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.models[modelID]
	if !ok {
		return "", false
	}
	stable, ok := state.stableByLocal[localID]
	return stable, ok
}

func (e *Headless) AllLocalIDs(modelID string) []models.LocalID {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.models[modelID]
	if !ok {
		return nil
	}
	out := make([]models.LocalID, len(state.all))
	copy(out, state.all)
	return out
}

func (e *Headless) HighlightSet(style, modelID string, localIDs []models.LocalID, exclusive bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.models[modelID]; !ok {
		return fmt.Errorf("highlight %s: model %s not loaded", style, modelID)
	}

	perModel, ok := e.styles[style]
	if !ok || exclusive {
		perModel = make(map[string]map[models.LocalID]struct{})
		e.styles[style] = perModel
	}

	set, ok := perModel[modelID]
	if !ok {
		set = make(map[models.LocalID]struct{})
		perModel[modelID] = set
	}
	for _, id := range localIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (e *Headless) ClearHighlight(style string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.styles, style)
	return nil
}

func (e *Headless) OnElementClicked(handler ClickHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clickHandler = handler
}

func (e *Headless) DisposeModel(modelID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.models, modelID)
	for _, perModel := range e.styles {
		delete(perModel, modelID)
	}
}

// SimulateClick feeds a pointer event through the registered handler.
func (e *Headless) SimulateClick(modelID string, localIDs []models.LocalID) {
	e.mu.Lock()
	handler := e.clickHandler
	e.mu.Unlock()

	if handler != nil {
		handler(modelID, localIDs)
	}
}

// Painted reports the local ids currently carrying a style on one model,
// sorted for deterministic output.
func (e *Headless) Painted(style, modelID string) []models.LocalID {
	e.mu.Lock()
	defer e.mu.Unlock()

	perModel, ok := e.styles[style]
	if !ok {
		return nil
	}
	set, ok := perModel[modelID]
	if !ok {
		return nil
	}
	out := make([]models.LocalID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadedModels reports how many models are currently live.
func (e *Headless) LoadedModels() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.models)
}
