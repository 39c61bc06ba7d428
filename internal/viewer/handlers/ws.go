package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"materials-viewer/internal/viewer/engine"
	"materials-viewer/internal/viewer/models"
	"materials-viewer/internal/viewer/service"

	"github.com/gorilla/websocket"
)

// ============================================================
// Viewer Websocket Handler
// ============================================================

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is handled at the gateway; the socket is open in dev
	},
}

// WSHandler upgrades connections and binds each one to a fresh viewer
// session with its own rendering engine.
type WSHandler struct {
	manager *service.SessionManager
	client  *MaterialsClient
	density float64
}

func NewWSHandler(manager *service.SessionManager, client *MaterialsClient, density float64) *WSHandler {
	return &WSHandler{
		manager: manager,
		client:  client,
		density: density,
	}
}

// Handle runs one viewer connection: an event writer goroutine plus the
// command read loop. Loads and reloads run asynchronously so a later
// command can supersede one still in flight.
func (h *WSHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[VIEWER] upgrade: %v", err)
		return
	}

	eng := engine.NewHeadless()
	sess := service.NewSession(eng, h.client.FetchModel, h.client.FetchGroups, h.density)
	h.manager.Add(sess)
	log.Printf("[VIEWER] session %s connected", sess.ID)

	defer func() {
		h.manager.Remove(sess.ID)
		eng.Close()
		conn.Close()
		log.Printf("[VIEWER] session %s closed", sess.ID)
	}()

	// Event writer: drains the session stream until Close.
	go func() {
		for ev := range sess.Events() {
			data, err := ev.Encode()
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd models.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Printf("[VIEWER] session %s: bad command: %v", sess.ID, err)
			continue
		}

		h.dispatch(ctx, sess, cmd)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, sess *service.Session, cmd models.Command) {
	switch cmd.Type {
	case "load":
		if cmd.FileID == "" {
			return
		}
		go func() {
			if err := sess.LoadFile(ctx, cmd.FileID, cmd.Density); err != nil {
				log.Printf("[VIEWER] session %s: load %s: %v", sess.ID, cmd.FileID, err)
			}
		}()
	case "select":
		sess.SelectGroup(cmd.GroupKey)
	case "mode":
		sess.SetMode(cmd.Mode)
	case "click":
		sess.Click(cmd.LocalIDs)
	case "reload":
		go func() {
			if err := sess.Reload(ctx); err != nil {
				log.Printf("[VIEWER] session %s: reload: %v", sess.ID, err)
			}
		}()
	case "reset":
		sess.Reset()
	default:
		log.Printf("[VIEWER] session %s: unknown command %q", sess.ID, cmd.Type)
	}
}
