package models

import "errors"

// ============================================================
// Error Taxonomy
// ============================================================

var (
	// ErrFetchFailure: binary retrieval for the viewer failed. Surfaced;
	// retry permitted by re-issuing the load.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrDecodeFailure: the geometry engine rejected the binary. Surfaced;
	// a different file can be tried afterwards.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrStaleCompletion: a load result arrived after being superseded.
	// Discarded, never surfaced to the user.
	ErrStaleCompletion = errors.New("stale completion")

	// ErrStaleBridge: a highlight request referenced an identifier bridge
	// built against a previous model generation.
	ErrStaleBridge = errors.New("stale identifier bridge")
)
