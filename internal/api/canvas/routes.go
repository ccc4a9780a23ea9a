package canvas

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers the canvas routes with the provided router.
func RegisterRoutes(r *mux.Router, h *Handler) {
	// WebSocket endpoint for the real-time canvas session.
	r.HandleFunc("/ws", h.ServeWS)

	// Presence query: currently connected participants.
	r.HandleFunc("/api/connected-users", h.ConnectedUsers).Methods(http.MethodGet, http.MethodOptions)
}
