// Package engine is the HTTP client for the external ComfyUI-compatible
// rendering engine: capability introspection, job-graph submission, and
// history polling.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to one rendering engine instance. The engine manages its own
// queueing and concurrency; this client just issues requests.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a client for the engine at baseURL (no trailing slash).
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// Health checks connectivity by hitting the capability endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "/object_info")
	return err
}

// ObjectInfo fetches and parses the engine's capability listing.
func (c *Client) ObjectInfo(ctx context.Context) (ObjectInfo, error) {
	body, err := c.get(ctx, "/object_info")
	if err != nil {
		return nil, err
	}
	var info ObjectInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decoding object_info: %w", err)
	}
	return info, nil
}

// SubmitPrompt posts a workflow graph and returns the engine-assigned
// prompt id. A non-2xx response or a response without a prompt id is an
// error; the caller classifies it as a submission failure.
func (c *Client) SubmitPrompt(ctx context.Context, wf Workflow) (string, error) {
	payload, err := json.Marshal(map[string]any{"prompt": wf})
	if err != nil {
		return "", fmt.Errorf("encoding workflow: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submitting workflow: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("engine rejected workflow: status %d: %s", resp.StatusCode, truncate(body, 512))
	}

	var out struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding submit response: %w", err)
	}
	if out.PromptID == "" {
		return "", fmt.Errorf("engine returned no prompt id")
	}
	return out.PromptID, nil
}

// History fetches the job record for one prompt id. The second return is
// false while the engine has not yet recorded the job.
func (c *Client) History(ctx context.Context, promptID string) (HistoryEntry, bool, error) {
	body, err := c.get(ctx, "/history/"+promptID)
	if err != nil {
		return HistoryEntry{}, false, err
	}
	var all map[string]HistoryEntry
	if err := json.Unmarshal(body, &all); err != nil {
		return HistoryEntry{}, false, fmt.Errorf("decoding history: %w", err)
	}
	entry, ok := all[promptID]
	return entry, ok, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading engine response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine %s: status %d: %s", path, resp.StatusCode, truncate(body, 512))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
