package targets

import (
	"math"
	"time"
)

type State string

const (
	StateSpawned = State("spawned")
	StateDowned  = State("downed")
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Target is one live instance. A new ID means the view must discard the old
// instance and restart its shrink animation.
type Target struct {
	ID        int       `json:"id"`
	Top       float64   `json:"top"`
	Left      float64   `json:"left"`
	Diameter  float64   `json:"diameter"`
	State     State     `json:"state"`
	SpawnedAt time.Time `json:"spawned_at"`
	DownedAt  time.Time `json:"downed_at,omitzero"`
	// HitPoint is where the "+1" marker is drawn once downed.
	HitPoint *Point `json:"hit_point,omitempty"`
}

func (t *Target) Downed() bool {
	return t.State == StateDowned
}

// Contains reports whether p falls inside the target's circle.
func (t *Target) Contains(p Point) bool {
	r := t.Diameter / 2
	cx := t.Left + r
	cy := t.Top + r
	return math.Hypot(p.X-cx, p.Y-cy) <= r
}
