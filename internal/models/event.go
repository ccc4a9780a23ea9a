package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Canvas event kinds. Inbound kinds arrive from clients over the WebSocket;
// the hub stamps the sender and re-emits them (sometimes under a different
// outbound name, matching what clients listen for).
const (
	EventBrushStroke     = "brush_stroke"
	EventUpdateBrushSize = "update_brush_size"
	EventImageUpload     = "image_upload"
	EventImageGenerated  = "image_generated"
	EventLocationUpdated = "location_updated"
	EventStartDrawing    = "start_drawing"
	EventStopDrawing     = "stop_drawing"
	EventClearMask       = "clear_mask"
	EventDebugPing       = "debug_ping"
	EventRequestState    = "request_current_state"
	EventGetSubmissions  = "get_submissions"

	// Server-emitted kinds.
	EventUserConnected    = "user_connected"
	EventUsersList        = "users_list"
	EventBrushSizeUpdated = "brush_size_updated"
	EventImageUploaded    = "image_uploaded"
	EventUserDrawing      = "user_drawing"
	EventMaskCleared      = "mask_cleared"
	EventSubmissionsList  = "submissions_list"
	EventError            = "error"
)

// Envelope is the wire framing for every canvas event: a kind tag plus a
// kind-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an Envelope. Marshal failures are
// programming errors (all payload types here are plain structs), so they
// surface as an error rather than a panic.
func NewEnvelope(event string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// BrushStroke carries one drawing segment. Coordinates are in the sender's
// canvas space; recipients rescale by CanvasWidth/CanvasHeight. UserID,
// Color and Timestamp are stamped server-side and never trusted from the
// client.
type BrushStroke struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	LastX        float64 `json:"lastX"`
	LastY        float64 `json:"lastY"`
	BrushSize    float64 `json:"brushSize"`
	Tool         string  `json:"tool,omitempty"`
	CanvasWidth  int     `json:"canvasWidth,omitempty"`
	CanvasHeight int     `json:"canvasHeight,omitempty"`
	IsFromModal  bool    `json:"isFromModal,omitempty"`
	UserID       string  `json:"user_id,omitempty"`
	Color        string  `json:"color,omitempty"`
	Timestamp    int64   `json:"timestamp,omitempty"`
}

// BrushSizeUpdate is the inbound update_brush_size payload.
type BrushSizeUpdate struct {
	Size int `json:"size"`
}

// BrushSizeUpdated is broadcast to everyone, sender included.
type BrushSizeUpdated struct {
	UserID string `json:"user_id"`
	Size   int    `json:"size"`
}

// ImageUpload announces a background image chosen by one participant.
type ImageUpload struct {
	ImageURL  string `json:"imageUrl"`
	UserID    string `json:"user_id,omitempty"`
	UserColor string `json:"user_color,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Validate checks the required fields of an inbound image_upload.
func (p ImageUpload) Validate() error {
	if p.ImageURL == "" {
		return errors.New("missing imageUrl")
	}
	return nil
}

// ImageGenerated announces a finished generation result to every
// participant, the requester included.
type ImageGenerated struct {
	ImageURL string `json:"image_url"`
	UserID   string `json:"user_id,omitempty"`
}

// Validate checks the required fields of an inbound image_generated.
func (p ImageGenerated) Validate() error {
	if p.ImageURL == "" {
		return errors.New("missing image_url")
	}
	return nil
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationUpdate moves the shared street-view anchor. Location, PanoramaID
// and Heading are all required; an update missing any of them is rejected
// before broadcast.
type LocationUpdate struct {
	Location   *LatLng  `json:"location"`
	PanoramaID string   `json:"panorama_id"`
	Heading    *float64 `json:"heading"`
	ImageURL   string   `json:"image_url,omitempty"`
	UserID     string   `json:"user_id,omitempty"`
}

// Validate enforces the required sub-fields of a location update.
func (p LocationUpdate) Validate() error {
	if p.Location == nil {
		return errors.New("missing location")
	}
	if p.PanoramaID == "" {
		return errors.New("missing panorama_id")
	}
	if p.Heading == nil {
		return errors.New("missing heading")
	}
	return nil
}

// UserDrawing signals that a participant started or stopped drawing.
type UserDrawing struct {
	UserID    string `json:"user_id"`
	Color     string `json:"color"`
	IsDrawing bool   `json:"is_drawing"`
}

// MaskCleared signals that a participant wiped the shared mask layer.
type MaskCleared struct {
	UserID string `json:"user_id"`
	Color  string `json:"color"`
}

// UserConnected is broadcast when a participant joins.
type UserConnected struct {
	UserID     string `json:"user_id"`
	Color      string `json:"color"`
	BrushSize  int    `json:"brush_size"`
	TotalUsers int    `json:"total_users"`
}

// ErrorPayload is sent back to a sender whose event was rejected.
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
