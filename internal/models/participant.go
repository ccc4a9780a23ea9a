package models

import "time"

// Participant represents one live connected session with its presence
// metadata. The connection ID is assigned by the transport layer and is
// never reused for a later connection.
type Participant struct {
	ID          string    `json:"id"`
	Color       string    `json:"color"`
	BrushSize   int       `json:"brush_size"`
	ConnectedAt time.Time `json:"connected_at"`
}

// PresenceSnapshot is the answer to a "who is here" query: the participant
// list plus the derived total, taken under one lock so the two never
// disagree.
type PresenceSnapshot struct {
	Users      []Participant `json:"users"`
	TotalUsers int           `json:"total_users"`
}
