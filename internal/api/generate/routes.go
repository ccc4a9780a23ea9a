package generate

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers the generation routes with the provided router.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/api/process", h.Process).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/available_models", h.AvailableModels).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/engine/health", h.EngineHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/history/{id}", h.History).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/proxy-image", h.ProxyImage).Methods(http.MethodGet, http.MethodOptions)
}
