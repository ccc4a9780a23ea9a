// Package canvas exposes the real-time canvas: the WebSocket endpoint that
// attaches participants to the broadcast hub, and the presence query.
package canvas

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fauxi/consensus-backend/internal/session"
	"github.com/fauxi/consensus-backend/internal/ws"
)

// Handler holds the dependencies for the canvas routes.
type Handler struct {
	Hub      *ws.Hub
	Registry *session.Registry
	Log      zerolog.Logger
}

// The canvas is open to any origin; there is no authentication model.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and runs the connection's read and write
// pumps. Each connection gets a fresh id; ids are never reused.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	connID := uuid.NewString()
	h.Log.Info().Str("user_id", connID).Str("remote", r.RemoteAddr).Msg("websocket connected")

	client := h.Hub.NewClient(connID, conn)
	h.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// ConnectedUsers answers a presence query with the registry snapshot:
// participant list plus the derived total.
func (h *Handler) ConnectedUsers(w http.ResponseWriter, r *http.Request) {
	snapshot := h.Registry.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.Log.Error().Err(err).Msg("encoding presence snapshot")
	}
}
