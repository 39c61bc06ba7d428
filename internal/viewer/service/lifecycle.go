package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"materials-viewer/internal/viewer/engine"
	"materials-viewer/internal/viewer/models"
)

// ============================================================
// Viewer Lifecycle
// ============================================================

// FetchFunc retrieves the geometry payload for a file id.
type FetchFunc func(ctx context.Context, fileID string) ([]byte, error)

// Lifecycle is the state machine governing model load, ready, reload and
// dispose transitions for one viewer. Every load attempt carries a
// monotonically increasing token; a completion whose token no longer
// matches the current attempt is discarded instead of installed, which is
// what keeps exactly one model live across reload races.
type Lifecycle struct {
	mu       sync.Mutex
	engine   engine.RenderEngine
	fetch    FetchFunc
	observer func(models.Snapshot)

	state      models.State
	fileID     string
	live       *engine.LiveModel
	attempt    uint64
	generation uint64
	progress   int
	lastErr    string
	initFailed bool
}

// NewLifecycle constructs the state machine around an already-built
// engine. A nil engine or fetch leaves it in the error state.
func NewLifecycle(eng engine.RenderEngine, fetch FetchFunc, observer func(models.Snapshot)) *Lifecycle {
	l := &Lifecycle{
		engine:   eng,
		fetch:    fetch,
		observer: observer,
		state:    models.StateInitializing,
	}

	if eng == nil || fetch == nil {
		l.state = models.StateError
		l.lastErr = "viewer initialization failed"
		l.initFailed = true
	} else {
		l.state = models.StateReadyNoModel
	}
	l.notify()
	return l
}

// Load fetches and installs the model for fileID. A duplicate request for
// the file already loading or loaded is a no-op.
func (l *Lifecycle) Load(ctx context.Context, fileID string) error {
	return l.load(ctx, fileID, false)
}

// Reload disposes the current model and loads the same file again,
// superseding any load still in flight.
func (l *Lifecycle) Reload(ctx context.Context) error {
	l.mu.Lock()
	fileID := l.fileID
	l.mu.Unlock()

	if fileID == "" {
		return fmt.Errorf("no file to reload")
	}
	return l.load(ctx, fileID, true)
}

func (l *Lifecycle) load(ctx context.Context, fileID string, force bool) error {
	l.mu.Lock()

	switch l.state {
	case models.StateUninitialized, models.StateDisposing, models.StateInitializing:
		l.mu.Unlock()
		return fmt.Errorf("viewer is not ready to load")
	}
	if l.initFailed {
		l.mu.Unlock()
		return fmt.Errorf("viewer is not ready to load")
	}

	if !force && l.fileID == fileID {
		// Idempotent by file identifier: in flight or already installed.
		if l.state == models.StateLoading || l.state == models.StateReadyModel {
			l.mu.Unlock()
			return nil
		}
	}

	l.attempt++
	token := l.attempt

	// Dispose-before-load: the previous model must be fully torn down
	// before the new fetch begins, so a stale highlight request can never
	// touch freed geometry.
	if l.live != nil {
		prev := l.live
		l.live = nil
		l.engine.DisposeModel(prev.ModelID)
	}

	l.fileID = fileID
	l.state = models.StateLoading
	l.progress = 0
	l.lastErr = ""
	l.notifyLocked()
	l.mu.Unlock()

	binary, err := l.fetch(ctx, fileID)
	if err != nil {
		return l.fail(token, fmt.Errorf("%w: %v", models.ErrFetchFailure, err))
	}

	live, err := l.engine.LoadModel(ctx, binary, func(fraction float64) {
		l.publishProgress(token, fraction)
	})
	if err != nil {
		if !errors.Is(err, models.ErrDecodeFailure) {
			err = fmt.Errorf("%w: %v", models.ErrDecodeFailure, err)
		}
		return l.fail(token, err)
	}

	l.mu.Lock()
	if token != l.attempt {
		l.mu.Unlock()
		// Superseded while decoding: discard, never install.
		l.engine.DisposeModel(live.ModelID)
		return models.ErrStaleCompletion
	}

	l.live = live
	l.generation++
	l.state = models.StateReadyModel
	l.progress = 100
	l.notifyLocked()
	l.mu.Unlock()
	return nil
}

// fail records a load failure unless a newer attempt superseded it.
func (l *Lifecycle) fail(token uint64, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if token != l.attempt {
		return models.ErrStaleCompletion
	}
	l.state = models.StateError
	l.lastErr = err.Error()
	l.notifyLocked()
	return err
}

func (l *Lifecycle) publishProgress(token uint64, fraction float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if token != l.attempt || l.state != models.StateLoading {
		return
	}
	p := int(fraction * 100)
	if p > 99 {
		p = 99
	}
	if p > l.progress {
		l.progress = p
		l.notifyLocked()
	}
}

// Reset disposes the current model and returns to ready(no-model). Any
// in-flight load becomes stale.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == models.StateUninitialized || l.state == models.StateDisposing {
		return
	}

	l.attempt++
	if l.live != nil {
		prev := l.live
		l.live = nil
		l.engine.DisposeModel(prev.ModelID)
	}
	l.fileID = ""
	l.state = models.StateReadyNoModel
	l.progress = 0
	l.lastErr = ""
	l.notifyLocked()
}

// Dispose tears the viewer down. Terminal: only a new Lifecycle recovers.
func (l *Lifecycle) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.attempt++
	l.state = models.StateDisposing
	l.notifyLocked()

	if l.live != nil {
		prev := l.live
		l.live = nil
		l.engine.DisposeModel(prev.ModelID)
	}
	l.fileID = ""
	l.progress = 0
	l.state = models.StateUninitialized
	l.notifyLocked()
}

// Live returns the current model handle and the generation it belongs
// to. The generation increments on every installed model, so holders can
// detect that a handle went stale.
func (l *Lifecycle) Live() (*engine.LiveModel, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live, l.generation
}

func (l *Lifecycle) Snapshot() models.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Lifecycle) IsLoading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == models.StateLoading
}

func (l *Lifecycle) Progress() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.progress
}

func (l *Lifecycle) LastError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Lifecycle) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		State:      l.state,
		FileID:     l.fileID,
		Progress:   l.progress,
		LastError:  l.lastErr,
		Generation: l.generation,
	}
}

// notifyLocked hands the observer a snapshot. Observers must not call
// back into the lifecycle.
func (l *Lifecycle) notifyLocked() {
	if l.observer != nil {
		l.observer(l.snapshotLocked())
	}
}

func (l *Lifecycle) notify() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifyLocked()
}
