package session

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/fauxi/consensus-backend/internal/models"
)

// palette is the fixed set of cursor colors. Colors are cosmetic, not
// identity keys: two participants may draw with the same color.
var palette = []string{"#FF0000", "#00FF00", "#0000FF", "#FFFF00", "#FF00FF", "#00FFFF"}

const (
	defaultBrushSize = 5

	// Brush sizes outside this range are ignored. The bound is a server
	// decision; clients clamp their own sliders but the value still
	// arrives over the wire.
	minBrushSize = 1
	maxBrushSize = 200
)

// Registry maps live connection IDs to participant presence metadata. All
// mutation and reads go through one RWMutex so the participant list and the
// derived total can never disagree. The raw map is never exposed.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]models.Participant
	now          func() time.Time
	pick         func(n int) int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]models.Participant),
		now:          time.Now,
		pick:         rand.Intn,
	}
}

// Join registers a new connection, assigning a random palette color, the
// default brush size and the current time, and returns the stored record.
func (r *Registry) Join(connID string) models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := models.Participant{
		ID:          connID,
		Color:       palette[r.pick(len(palette))],
		BrushSize:   defaultBrushSize,
		ConnectedAt: r.now(),
	}
	r.participants[connID] = p
	return p
}

// Leave removes the connection if present. A second Leave for the same ID
// is a no-op; transports may deliver disconnect notifications more than
// once.
func (r *Registry) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants, connID)
}

// Get looks up one participant. The second return reports presence;
// absence is a valid state, not an error.
func (r *Registry) Get(connID string) (models.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[connID]
	return p, ok
}

// UpdateBrushSize mutates the stored brush size and reports whether the
// value was accepted. Unknown connections and out-of-range sizes are
// ignored; callers must not announce a rejected update.
func (r *Registry) UpdateBrushSize(connID string, size int) bool {
	if size < minBrushSize || size > maxBrushSize {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[connID]
	if !ok {
		return false
	}
	p.BrushSize = size
	r.participants[connID] = p
	return true
}

// Snapshot returns a consistent point-in-time view of the registry, ordered
// by join time (connection ID breaks ties) so the ordering is stable within
// one call. The total is derived from the same view.
func (r *Registry) Snapshot() models.PresenceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		users = append(users, p)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].ConnectedAt.Equal(users[j].ConnectedAt) {
			return users[i].ConnectedAt.Before(users[j].ConnectedAt)
		}
		return users[i].ID < users[j].ID
	})
	return models.PresenceSnapshot{Users: users, TotalUsers: len(users)}
}

// Count reports the number of live participants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}
