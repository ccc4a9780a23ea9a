package ws

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/fauxi/consensus-backend/internal/models"
	"github.com/fauxi/consensus-backend/internal/session"
)

// SubmissionLister is the slice of the submission store the hub needs to
// answer get_submissions requests over the socket.
type SubmissionLister interface {
	List() ([]models.Submission, error)
}

// Hub owns the live client set and fans canvas events out to it. All
// membership changes and event dispatch run on the single Run goroutine, so
// every broadcast observes one consistent registry state and events from a
// single sender reach all recipients in the order they were produced. No
// ordering is guaranteed across senders.
type Hub struct {
	registry    *session.Registry
	submissions SubmissionLister
	log         zerolog.Logger

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent
}

type inboundEvent struct {
	sender   *Client
	envelope models.Envelope
}

// NewHub creates a hub over the given registry. submissions may be nil, in
// which case get_submissions answers with an empty list.
func NewHub(registry *session.Registry, submissions SubmissionLister, log zerolog.Logger) *Hub {
	return &Hub{
		registry:    registry,
		submissions: submissions,
		log:         log,
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inbound:     make(chan inboundEvent, 64),
	}
}

// Run processes registrations, departures and inbound events until the
// process exits. It must run exactly once, on its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleJoin(client)
		case client := <-h.unregister:
			h.handleLeave(client)
		case ev := <-h.inbound:
			h.dispatch(ev.sender, ev.envelope)
		}
	}
}

func (h *Hub) handleJoin(client *Client) {
	h.clients[client.ID] = client
	p := h.registry.Join(client.ID)

	h.log.Info().Str("user_id", client.ID).Str("color", p.Color).
		Int("total_users", h.registry.Count()).Msg("participant joined")

	// Everyone, the new joiner included, learns about the join first; the
	// joiner then gets the full snapshot separately.
	h.broadcast(models.EventUserConnected, models.UserConnected{
		UserID:     p.ID,
		Color:      p.Color,
		BrushSize:  p.BrushSize,
		TotalUsers: h.registry.Count(),
	}, "")
	h.sendTo(client, models.EventUsersList, h.registry.Snapshot())
}

func (h *Hub) handleLeave(client *Client) {
	if _, ok := h.clients[client.ID]; !ok {
		// Duplicate disconnect delivery; Leave is idempotent too.
		return
	}
	delete(h.clients, client.ID)
	close(client.send)
	h.registry.Leave(client.ID)

	h.log.Info().Str("user_id", client.ID).
		Int("total_users", h.registry.Count()).Msg("participant left")

	h.broadcast(models.EventUsersList, h.registry.Snapshot(), "")
}

// dispatch applies the per-kind inclusion rules. The sender is resolved
// against the registry first: events from connections that are no longer
// registered are dropped, never broadcast.
func (h *Hub) dispatch(sender *Client, env models.Envelope) {
	p, ok := h.registry.Get(sender.ID)
	if !ok {
		h.log.Warn().Str("user_id", sender.ID).Str("event", env.Event).
			Msg("event from unregistered sender dropped")
		return
	}

	switch env.Event {
	case models.EventBrushStroke:
		var stroke models.BrushStroke
		if err := json.Unmarshal(env.Data, &stroke); err != nil {
			h.reject(sender, env.Event, "malformed brush stroke")
			return
		}
		stroke.UserID = p.ID
		stroke.Color = p.Color
		stroke.Timestamp = time.Now().UnixMilli()
		h.broadcast(models.EventBrushStroke, stroke, p.ID)

	case models.EventUpdateBrushSize:
		var upd models.BrushSizeUpdate
		if err := json.Unmarshal(env.Data, &upd); err != nil {
			h.reject(sender, env.Event, "malformed brush size update")
			return
		}
		if !h.registry.UpdateBrushSize(p.ID, upd.Size) {
			h.reject(sender, env.Event, "brush size out of range")
			return
		}
		h.broadcast(models.EventBrushSizeUpdated, models.BrushSizeUpdated{
			UserID: p.ID,
			Size:   upd.Size,
		}, "")

	case models.EventImageUpload:
		var up models.ImageUpload
		if err := json.Unmarshal(env.Data, &up); err != nil {
			h.reject(sender, env.Event, "malformed image upload")
			return
		}
		if err := up.Validate(); err != nil {
			h.reject(sender, env.Event, err.Error())
			return
		}
		up.UserID = p.ID
		up.UserColor = p.Color
		if up.Timestamp == 0 {
			up.Timestamp = time.Now().UnixMilli()
		}
		h.broadcast(models.EventImageUploaded, up, p.ID)

	case models.EventImageGenerated:
		var gen models.ImageGenerated
		if err := json.Unmarshal(env.Data, &gen); err != nil {
			h.reject(sender, env.Event, "malformed image generated event")
			return
		}
		if err := gen.Validate(); err != nil {
			h.reject(sender, env.Event, err.Error())
			return
		}
		gen.UserID = p.ID
		h.broadcast(models.EventImageGenerated, gen, "")

	case models.EventLocationUpdated:
		var loc models.LocationUpdate
		if err := json.Unmarshal(env.Data, &loc); err != nil {
			h.reject(sender, env.Event, "malformed location update")
			return
		}
		if err := loc.Validate(); err != nil {
			h.log.Warn().Str("user_id", p.ID).Err(err).Msg("location update rejected")
			h.reject(sender, env.Event, err.Error())
			return
		}
		loc.UserID = p.ID
		h.broadcast(models.EventLocationUpdated, loc, p.ID)

	case models.EventStartDrawing, models.EventStopDrawing:
		h.broadcast(models.EventUserDrawing, models.UserDrawing{
			UserID:    p.ID,
			Color:     p.Color,
			IsDrawing: env.Event == models.EventStartDrawing,
		}, p.ID)

	case models.EventClearMask:
		h.broadcast(models.EventMaskCleared, models.MaskCleared{
			UserID: p.ID,
			Color:  p.Color,
		}, p.ID)

	case models.EventDebugPing:
		// Payload is freeform; stamp the sender id into whatever arrived.
		payload := map[string]any{}
		if len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, &payload)
		}
		payload["user_id"] = p.ID
		h.broadcast(models.EventDebugPing, payload, "")

	case models.EventRequestState:
		h.sendTo(sender, models.EventUsersList, h.registry.Snapshot())

	case models.EventGetSubmissions:
		h.sendTo(sender, models.EventSubmissionsList, map[string]any{
			"submissions": h.listSubmissions(),
		})

	default:
		h.log.Warn().Str("user_id", p.ID).Str("event", env.Event).Msg("unknown event dropped")
	}
}

func (h *Hub) listSubmissions() []models.Submission {
	if h.submissions == nil {
		return []models.Submission{}
	}
	subs, err := h.submissions.List()
	if err != nil {
		h.log.Error().Err(err).Msg("loading submissions for socket request")
		return []models.Submission{}
	}
	return subs
}

// broadcast marshals the event once and delivers it to every client except
// excludeID (empty string excludes nobody). A client whose send buffer is
// full is dropped rather than allowed to stall the rest; any such drop is a
// membership change, so the survivors get a fresh roster afterwards.
func (h *Hub) broadcast(event string, payload any, excludeID string) {
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}
	evicted := false
	for id, client := range h.clients {
		if id == excludeID {
			continue
		}
		if !h.deliver(client, data, event) {
			evicted = true
		}
	}
	if evicted {
		h.announceEviction()
	}
}

// sendTo delivers one event to a single client.
func (h *Hub) sendTo(client *Client, event string, payload any) {
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}
	if !h.deliver(client, data, event) {
		h.announceEviction()
	}
}

// announceEviction rebroadcasts the roster after a slow-client drop. The
// transport-level disconnect that follows finds the client already removed
// and is a no-op, so this is the only leave announcement the survivors get.
// Each nested eviction shrinks the client set, so the recursion is bounded.
func (h *Hub) announceEviction() {
	h.broadcast(models.EventUsersList, h.registry.Snapshot(), "")
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	env, err := models.NewEnvelope(event, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("encoding event")
		return nil, false
	}
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("encoding event")
		return nil, false
	}
	return data, true
}

// deliver writes to one client's send buffer and reports whether the
// client survived. A full buffer means the client cannot keep up; it is
// dropped so one slow recipient never stalls the rest of the fan-out.
func (h *Hub) deliver(client *Client, data []byte, event string) bool {
	select {
	case client.send <- data:
		return true
	default:
		h.log.Warn().Str("user_id", client.ID).Str("event", event).
			Msg("send buffer full, dropping client")
		if _, ok := h.clients[client.ID]; ok {
			delete(h.clients, client.ID)
			close(client.send)
			h.registry.Leave(client.ID)
		}
		return false
	}
}

// reject answers the sender with an error event instead of broadcasting.
func (h *Hub) reject(sender *Client, event, message string) {
	h.sendTo(sender, models.EventError, models.ErrorPayload{
		Event:   event,
		Message: message,
	})
}
