package submissions

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fauxi/consensus-backend/internal/logging"
	"github.com/fauxi/consensus-backend/internal/models"
	"github.com/fauxi/consensus-backend/internal/storage/csvstore"
	"github.com/fauxi/consensus-backend/internal/storage/valkeystore"
)

func newTestRouter(t *testing.T) (*mux.Router, *Handler) {
	t.Helper()
	dir := t.TempDir()
	store, err := csvstore.NewSubmissionStore(dir, logging.Discard())
	require.NoError(t, err)
	votes := valkeystore.NewVoteStore("", dir, logging.Discard())
	t.Cleanup(votes.Close)

	h := &Handler{Store: store, Votes: votes, Log: logging.Discard()}
	r := mux.NewRouter()
	RegisterRoutes(r, h)
	return r, h
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSaveThenList(t *testing.T) {
	router, _ := newTestRouter(t)

	sub := models.Submission{
		Timestamp: "2026-03-01T12:00:00Z",
		Location:  models.LatLng{Lat: 52.37, Lng: 4.9},
		ImageURL:  "https://store/img.png",
		Prompts:   models.Prompts{MainSubject: "a park"},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/save-submission", sub)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/submissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var subs []models.Submission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, sub, subs[0])
}

func TestListEmptyArchive(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/submissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSaveRejectsBadBody(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/save-submission", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadCSV(t *testing.T) {
	router, _ := newTestRouter(t)

	// Empty archive: nothing to download yet.
	rec := doJSON(t, router, http.MethodGet, "/api/download-csv", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doJSON(t, router, http.MethodPost, "/api/save-submission", models.Submission{Timestamp: "t"})

	rec = doJSON(t, router, http.MethodGet, "/api/download-csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "submissions.csv")
	assert.Contains(t, rec.Body.String(), "Timestamp,Latitude")
}

func TestVotesRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t)

	votes := models.Votes{"sub-1": {Upvotes: 2, Downvotes: 1}}
	rec := doJSON(t, router, http.MethodPost, "/api/save-votes", map[string]any{"votes": votes})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/vote-data", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Votes models.Votes `json:"votes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, votes, resp.Votes)
}

func TestVoteDataEmptyStore(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/vote-data", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"votes": {}}`, rec.Body.String())
}

func TestSaveVotesRequiresPayload(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/save-votes", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
