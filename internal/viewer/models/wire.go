package models

import (
	"encoding/json"

	materials "materials-viewer/internal/materials/models"
)

// ============================================================
// Websocket Wire Messages
// ============================================================

// Command is a client-to-server message driving one viewer session.
type Command struct {
	Type     string    `json:"type"` // load | select | mode | click | reload | reset
	FileID   string    `json:"fileId,omitempty"`
	GroupKey string    `json:"groupKey,omitempty"`
	Mode     Mode      `json:"mode,omitempty"`
	LocalIDs []LocalID `json:"localIds,omitempty"`
	Density  float64   `json:"density,omitempty"`
}

// Event is a server-to-client message.
type Event struct {
	Type      string                    `json:"type"` // state | progress | groups | selection | highlight | error
	State     *Snapshot                 `json:"state,omitempty"`
	Progress  int                       `json:"progress,omitempty"`
	Groups    []materials.MaterialGroup `json:"groups,omitempty"`
	Selection *HighlightSelection       `json:"selection,omitempty"`
	Emphasis  []LocalID                 `json:"emphasis,omitempty"`
	Dim       []LocalID                 `json:"dim,omitempty"`
	Message   string                    `json:"message,omitempty"`
}

// Encode marshals the event for the socket writer.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
