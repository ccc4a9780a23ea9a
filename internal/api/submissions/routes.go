package submissions

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers the submission and vote routes with the
// provided router.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/api/save-submission", h.Save).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/submissions", h.List).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/download-csv", h.DownloadCSV).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/save-votes", h.SaveVotes).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/vote-data", h.VoteData).Methods(http.MethodGet, http.MethodOptions)
}
