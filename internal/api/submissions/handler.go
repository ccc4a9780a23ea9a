// Package submissions exposes the submission archive and the vote tally:
// CSV-backed submission records and valkey-backed vote counts.
package submissions

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/fauxi/consensus-backend/internal/models"
	"github.com/fauxi/consensus-backend/internal/storage/csvstore"
	"github.com/fauxi/consensus-backend/internal/storage/valkeystore"
)

// Handler holds the dependencies for the submission and vote routes.
type Handler struct {
	Store *csvstore.SubmissionStore
	Votes *valkeystore.VoteStore
	Log   zerolog.Logger
}

// Save appends one submission record to the archive.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var sub models.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "No data provided"})
		return
	}

	if err := h.Store.Append(sub); err != nil {
		h.Log.Error().Err(err).Msg("saving submission")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// List returns all archived submissions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Store.List()
	if err != nil {
		h.Log.Error().Err(err).Msg("listing submissions")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, subs)
}

// DownloadCSV serves the raw submission archive as an attachment. The
// bytes come through the store's locked read so a concurrent append is
// never observed mid-row.
func (h *Handler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.Store.ReadAll()
	if err != nil {
		if os.IsNotExist(err) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "No submissions found"})
			return
		}
		h.Log.Error().Err(err).Msg("reading submissions archive")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="submissions.csv"`)
	_, _ = w.Write(data)
}

type saveVotesRequest struct {
	Votes models.Votes `json:"votes"`
}

// SaveVotes replaces the vote tally.
func (h *Handler) SaveVotes(w http.ResponseWriter, r *http.Request) {
	var req saveVotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Votes == nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "No vote data provided"})
		return
	}

	if err := h.Votes.Save(r.Context(), req.Votes); err != nil {
		h.Log.Error().Err(err).Msg("saving votes")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save votes"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Votes saved successfully"})
}

// VoteData returns the current vote tally.
func (h *Handler) VoteData(w http.ResponseWriter, r *http.Request) {
	votes, err := h.Votes.Load(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("loading votes")
		respondJSON(w, http.StatusInternalServerError, map[string]any{"votes": models.Votes{}})
		return
	}
	if votes == nil {
		votes = models.Votes{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"votes": votes})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
