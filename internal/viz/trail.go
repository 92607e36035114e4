package viz

import "github.com/mhaeusl/pendel/internal/analysis"

// DefaultTrailCapacity bounds trail memory for long-running sessions.
const DefaultTrailCapacity = 300

// Trail is a bounded history of bob positions, owned by the host (the
// engine never touches it). Oldest points are dropped first.
type Trail struct {
	points   []analysis.Point
	capacity int
}

func NewTrail(capacity int) *Trail {
	if capacity <= 0 {
		capacity = DefaultTrailCapacity
	}
	return &Trail{
		points:   make([]analysis.Point, 0, capacity),
		capacity: capacity,
	}
}

func (t *Trail) Append(x, y float64) {
	t.points = append(t.points, analysis.Point{X: x, Y: y})
	if len(t.points) > t.capacity {
		t.points = t.points[1:]
	}
}

// Points returns the live backing slice, oldest first.
func (t *Trail) Points() []analysis.Point {
	return t.points
}

func (t *Trail) Len() int { return len(t.points) }

func (t *Trail) Reset() {
	t.points = t.points[:0]
}
