package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	materials "materials-viewer/internal/materials/models"
	"materials-viewer/internal/viewer/models"
)

// ============================================================
// Shared Decoder Worker
// ============================================================

// DecoderWorker decodes geometry payloads. One instance is shared
// process-wide and reference-counted: it is created lazily on the first
// Acquire and revoked only when the last holder releases it, so a session
// teardown never pulls the worker out from under another live session.
type DecoderWorker struct{}

var (
	workerMu   sync.Mutex
	worker     *DecoderWorker
	workerRefs int
)

// AcquireWorker returns the shared decoder, creating it when needed.
// Every Acquire must be paired with a ReleaseWorker.
func AcquireWorker() *DecoderWorker {
	workerMu.Lock()
	defer workerMu.Unlock()

	if worker == nil {
		worker = &DecoderWorker{}
	}
	workerRefs++
	return worker
}

// ReleaseWorker drops one reference and revokes the worker once no holder
// remains.
func ReleaseWorker() {
	workerMu.Lock()
	defer workerMu.Unlock()

	if workerRefs > 0 {
		workerRefs--
	}
	if workerRefs == 0 {
		worker = nil
	}
}

// WorkerRefs reports the current reference count.
func WorkerRefs() int {
	workerMu.Lock()
	defer workerMu.Unlock()
	return workerRefs
}

// Decode unpacks a geometry payload, honoring context cancellation.
func (w *DecoderWorker) Decode(ctx context.Context, binary []byte) (*materials.ModelPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payload materials.ModelPayload
	if err := json.Unmarshal(binary, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecodeFailure, err)
	}
	if payload.ModelID == "" {
		return nil, fmt.Errorf("%w: payload missing model id", models.ErrDecodeFailure)
	}
	return &payload, nil
}
