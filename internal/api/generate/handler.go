// Package generate exposes the image-generation HTTP surface: job
// submission, engine introspection, and job progress queries.
package generate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fauxi/consensus-backend/internal/engine"
	"github.com/fauxi/consensus-backend/internal/generate"
)

// JobRunner runs one generation job end to end.
type JobRunner interface {
	Run(ctx context.Context, image, mask []byte, prompt, negativePrompt string) (*generate.Result, error)
}

// Handler holds the dependencies for the generation routes.
type Handler struct {
	Runner JobRunner
	Engine *engine.Client
	Log    zerolog.Logger

	// proxy fetches external images for the CORS passthrough route.
	proxy *http.Client
}

// NewHandler wires the generation routes' dependencies.
func NewHandler(runner JobRunner, eng *engine.Client, log zerolog.Logger) *Handler {
	return &Handler{
		Runner: runner,
		Engine: eng,
		Log:    log,
		proxy:  &http.Client{Timeout: 30 * time.Second},
	}
}

type processRequest struct {
	Image          string `json:"image"`
	Mask           string `json:"mask"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
}

// Process accepts a base64 image and mask, runs the generation job, and
// answers with either a public artifact URL or the raw image bytes when
// publishing failed.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Image == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing image"})
		return
	}
	if req.Mask == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing mask"})
		return
	}

	image, err := decodeImage(req.Image)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "image is not valid base64"})
		return
	}
	mask, err := decodeImage(req.Mask)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "mask is not valid base64"})
		return
	}

	result, err := h.Runner.Run(r.Context(), image, mask, req.Prompt, req.NegativePrompt)
	if err != nil {
		ce := generate.Classify(err)
		h.Log.Error().Str("kind", string(ce.Kind)).Str("message", ce.Message).Msg("generation job failed")
		respondJSON(w, statusFor(ce.Kind), map[string]any{
			"error":   ce.Message,
			"kind":    ce.Kind,
			"details": ce.Nodes,
		})
		return
	}

	if result.ImageURL != "" {
		respondJSON(w, http.StatusOK, map[string]any{
			"image_url": result.ImageURL,
			"success":   true,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"image":         base64.StdEncoding.EncodeToString(result.Image),
		"success":       true,
		"publish_error": result.PublishError,
	})
}

// AvailableModels lists the model files the engine can load.
func (h *Handler) AvailableModels(w http.ResponseWriter, r *http.Request) {
	info, err := h.Engine.ObjectInfo(r.Context())
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get model info"})
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{
		"checkpoints": orEmpty(info.Choices("CheckpointLoaderSimple", "ckpt_name")),
		"vae":         orEmpty(info.Choices("VAELoader", "vae_name")),
		"clip":        orEmpty(info.Choices("CLIPLoader", "clip_name")),
	})
}

// EngineHealth reports whether the rendering engine is reachable.
func (h *Handler) EngineHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Health(r.Context()); err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Failed to connect to rendering engine",
			"error":   err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Rendering engine is running and accessible",
	})
}

// History proxies the engine's job record into the shape the canvas polls:
// completed with images, an error with node detail, or a progress report.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	promptID := mux.Vars(r)["id"]

	entry, found, err := h.Engine.History(r.Context(), promptID)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get history from engine"})
		return
	}
	if !found {
		respondJSON(w, http.StatusOK, map[string]any{
			"completed": false,
			"progress":  0,
			"executing": false,
		})
		return
	}

	if entry.Failed() {
		var details []generate.NodeError
		for _, ee := range entry.ExecutionErrors() {
			details = append(details, generate.NodeError{
				NodeID:    ee.NodeID,
				NodeType:  ee.NodeType,
				ErrorType: ee.ExceptionType,
				Message:   ee.ExceptionMessage,
				Traceback: ee.Traceback,
			})
		}
		if len(details) > 0 {
			respondJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "Workflow execution failed",
				"details": details,
				"status":  entry.Status.StatusStr,
			})
			return
		}
	}

	var images []engine.OutputImage
	for _, out := range entry.Outputs {
		images = append(images, out.Images...)
	}
	if len(images) > 0 {
		respondJSON(w, http.StatusOK, map[string]any{
			"completed": true,
			"images":    images,
		})
		return
	}

	executing := false
	for _, msg := range entry.Status.Messages {
		switch msg.Type {
		case "execution_start":
			executing = true
		case "execution_cached", "execution_error":
			executing = false
		}
	}
	progress := 0
	if entry.Progress != nil {
		progress = int(math.Round(entry.Progress.Value * 100))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"completed": false,
		"progress":  progress,
		"executing": executing,
		"status":    entry.Status.StatusStr,
	})
}

// ProxyImage streams an external image through the backend so the canvas
// can draw cross-origin sources onto itself.
func (h *Handler) ProxyImage(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "No URL provided"})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid URL"})
		return
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := h.proxy.Do(req)
	if err != nil {
		h.Log.Error().Err(err).Str("url", imageURL).Msg("proxying image")
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to fetch image"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respondJSON(w, resp.StatusCode, map[string]string{"error": "Failed to fetch image"})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.Log.Debug().Err(err).Msg("image proxy stream interrupted")
	}
}

// decodeImage accepts either bare base64 or a data URL.
func decodeImage(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}

func statusFor(kind generate.ErrorKind) int {
	switch kind {
	case generate.KindSubmission:
		return http.StatusBadGateway
	case generate.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
