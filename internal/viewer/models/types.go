package models

// ============================================================
// Viewer Core Types
// ============================================================

// LocalID is an engine-assigned, per-load-session identifier for a
// renderable mesh. Not stable across reloads, even of the same file.
type LocalID uint32

// Mode is the highlight display policy.
type Mode string

const (
	// ModeSolid paints only the selection.
	ModeSolid Mode = "solid"
	// ModeXray dims everything and paints the selection on top.
	ModeXray Mode = "xray"
)

// State is the viewer lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReadyNoModel  State = "ready"
	StateLoading       State = "loading"
	StateReadyModel    State = "ready-model"
	StateDisposing     State = "disposing"
	StateError         State = "error"
)

// HighlightSelection is the transient UI selection state. An empty
// GroupKey means no selection.
type HighlightSelection struct {
	GroupKey string `json:"groupKey,omitempty"`
	Mode     Mode   `json:"mode"`
}

// Snapshot is a point-in-time view of the lifecycle, safe to hand to
// observers outside the lock.
type Snapshot struct {
	State      State  `json:"state"`
	FileID     string `json:"fileId,omitempty"`
	Progress   int    `json:"progress"`
	LastError  string `json:"lastError,omitempty"`
	Generation uint64 `json:"-"`
}
