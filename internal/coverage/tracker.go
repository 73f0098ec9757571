package coverage

import (
	"math"
	"sync"

	"github.com/i474232898/pitchside/internal/geo"
)

// boundarySamples is the number of points sampled on the viewport edge, one every 45°.
const boundarySamples = 8

// Circle is one completed area search.
type Circle struct {
	Center       geo.Point `json:"center"`
	RadiusMeters float64   `json:"radiusMeters"`
}

// Contains reports whether p lies inside the circle (boundary inclusive).
func (c Circle) Contains(p geo.Point) bool {
	return geo.DistanceMeters(p, c.Center) <= c.RadiusMeters
}

// Viewport is the visible map area approximated as a circle.
type Viewport struct {
	Center              geo.Point `json:"center"`
	VisibleRadiusMeters float64   `json:"visibleRadiusMeters"`
}

// Tracker records searched circles for a session. Circles are never removed.
type Tracker struct {
	mu      sync.RWMutex
	circles []Circle
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordSearch appends a circle. Callers record before the search resolves so an
// overlapping request issued while the first is in flight is already suppressed.
func (t *Tracker) RecordSearch(center geo.Point, radiusMeters float64) Circle {
	c := Circle{Center: center, RadiusMeters: radiusMeters}

	t.mu.Lock()
	t.circles = append(t.circles, c)
	t.mu.Unlock()

	return c
}

// IsCovered samples the viewport center and 8 boundary points and reports true only
// if every sample falls inside at least one recorded circle.
//
// This is an approximation: it may report an already searched area as uncovered,
// which only costs a redundant search.
func (t *Tracker) IsCovered(v Viewport) bool {
	if v.VisibleRadiusMeters <= 0 || math.IsNaN(v.VisibleRadiusMeters) {
		return false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.circles) == 0 {
		return false
	}

	for _, p := range SamplePoints(v) {
		if !t.coveredLocked(p) {
			return false
		}
	}
	return true
}

func (t *Tracker) coveredLocked(p geo.Point) bool {
	for _, c := range t.circles {
		if c.Contains(p) {
			return true
		}
	}
	return false
}

// Circles returns a copy of the recorded circles in insertion order.
func (t *Tracker) Circles() []Circle {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Circle, len(t.circles))
	copy(out, t.circles)
	return out
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.circles)
}

// SamplePoints returns the viewport center followed by 8 points on its boundary.
func SamplePoints(v Viewport) []geo.Point {
	points := make([]geo.Point, 0, boundarySamples+1)
	points = append(points, v.Center)
	for i := 0; i < boundarySamples; i++ {
		bearing := float64(i) * math.Pi / 4
		points = append(points, geo.Offset(v.Center, v.VisibleRadiusMeters, bearing))
	}
	return points
}
