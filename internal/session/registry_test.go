package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRegistry returns a registry with a deterministic clock and color pick
// so tests can assert on the stored records.
func fixedRegistry() (*Registry, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry()
	r.pick = func(n int) int { return 0 }
	r.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return r, &now
}

func TestJoinAssignsDefaults(t *testing.T) {
	r, _ := fixedRegistry()

	p := r.Join("conn-1")

	assert.Equal(t, "conn-1", p.ID)
	assert.Equal(t, "#FF0000", p.Color)
	assert.Equal(t, 5, p.BrushSize)
	assert.False(t, p.ConnectedAt.IsZero())

	got, ok := r.Get("conn-1")
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestJoinColorsComeFromPalette(t *testing.T) {
	r := NewRegistry()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		p := r.Join("conn")
		seen[p.Color] = true
	}
	for color := range seen {
		assert.Contains(t, palette, color)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	r, _ := fixedRegistry()
	r.Join("a")
	r.Join("b")

	r.Leave("a")
	assert.Equal(t, 1, r.Count())

	// A repeated disconnect notification must not disturb the count.
	r.Leave("a")
	assert.Equal(t, 1, r.Count())

	r.Leave("never-joined")
	assert.Equal(t, 1, r.Count())
}

func TestUpdateBrushSize(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		accepted bool
		want     int
	}{
		{"valid", 42, true, 42},
		{"lower bound", 1, true, 1},
		{"upper bound", 200, true, 200},
		{"zero ignored", 0, false, 5},
		{"negative ignored", -3, false, 5},
		{"too large ignored", 201, false, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := fixedRegistry()
			r.Join("a")

			accepted := r.UpdateBrushSize("a", tt.size)

			assert.Equal(t, tt.accepted, accepted)
			p, ok := r.Get("a")
			require.True(t, ok)
			assert.Equal(t, tt.want, p.BrushSize)
		})
	}
}

func TestUpdateBrushSizeUnknownConnection(t *testing.T) {
	r, _ := fixedRegistry()
	assert.False(t, r.UpdateBrushSize("ghost", 10))
	assert.Equal(t, 0, r.Count())
}

func TestSnapshotOrderAndTotal(t *testing.T) {
	r, _ := fixedRegistry()
	r.Join("c")
	r.Join("a")
	r.Join("b")

	snap := r.Snapshot()

	require.Len(t, snap.Users, 3)
	assert.Equal(t, 3, snap.TotalUsers)
	// Join order, not lexical order: the fixed clock ticks per join.
	assert.Equal(t, "c", snap.Users[0].ID)
	assert.Equal(t, "a", snap.Users[1].ID)
	assert.Equal(t, "b", snap.Users[2].ID)
}

func TestSnapshotTiesBreakOnID(t *testing.T) {
	r := NewRegistry()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	r.pick = func(n int) int { return 0 }

	r.Join("b")
	r.Join("a")

	snap := r.Snapshot()
	require.Len(t, snap.Users, 2)
	assert.Equal(t, "a", snap.Users[0].ID)
	assert.Equal(t, "b", snap.Users[1].ID)
}
