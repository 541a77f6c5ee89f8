// Package workspace models the bounded 2D planning domain and its circular
// obstacles. A Workspace is immutable once built and answers the validity
// queries the tree search relies on.
package workspace

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"rrt-planner/internal/geometry"
)

// DefaultObstacleRadius is the radius shared by all obstacles unless configured otherwise.
const DefaultObstacleRadius = 5.0

// DefaultResolutionFraction sets the motion-check sub-step as a fraction of the bounds diagonal.
const DefaultResolutionFraction = 0.01

// MinResolutionFraction is the smallest allowed sub-step as a fraction of the
// bounds diagonal. It caps MotionValid at 10000 point checks per segment.
const MinResolutionFraction = 1e-4

// ErrDegenerateGeometry is returned for zero-size bounds, non-positive radii or non-finite coordinates.
var ErrDegenerateGeometry = errors.New("workspace: degenerate geometry")

// Bounds is an axis-aligned box given by per-axis [low, high] pairs
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// DefaultBounds returns the [0,100] x [0,100] square.
func DefaultBounds() Bounds {
	return Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
}

// Orb converts the bounds into an orb.Bound.
func (b Bounds) Orb() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinX, b.MinY},
		Max: orb.Point{b.MaxX, b.MaxY},
	}
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p geometry.Point) bool {
	return b.Orb().Contains(orb.Point{p.X, p.Y})
}

// Width returns the extent along x
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the extent along y
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Diagonal returns the length of the box diagonal, the maximum extent of the space.
func (b Bounds) Diagonal() float64 {
	return math.Hypot(b.Width(), b.Height())
}

func (b Bounds) validate() error {
	for _, v := range []float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bounds %+v", ErrDegenerateGeometry, b)
		}
	}
	if b.MinX >= b.MaxX || b.MinY >= b.MaxY {
		return fmt.Errorf("%w: bounds must have low < high on each axis, got %+v", ErrDegenerateGeometry, b)
	}
	return nil
}

// Obstacle is a circle that the planned path must not touch
type Obstacle struct {
	Center geometry.Point `json:"center"`
	Radius float64        `json:"radius"`
}

// Contains reports whether p lies inside or on the obstacle boundary.
func (o Obstacle) Contains(p geometry.Point) bool {
	return geometry.InsideCircle(p, o.Center, o.Radius)
}

// Circles builds obstacles that all share one radius.
func Circles(centers []geometry.Point, radius float64) []Obstacle {
	obstacles := make([]Obstacle, 0, len(centers))
	for _, c := range centers {
		obstacles = append(obstacles, Obstacle{Center: c, Radius: radius})
	}
	return obstacles
}

// Workspace owns the bounds and the ordered obstacle set.
type Workspace struct {
	bounds     Bounds
	obstacles  []Obstacle
	index      *spatialIndex
	resolution float64
}

// Option customizes a Workspace at construction.
type Option func(*Workspace)

// WithResolution sets the sub-step length used by MotionValid.
// Non-positive values keep the default; values below MinResolutionFraction
// of the bounds diagonal are raised to that floor.
func WithResolution(step float64) Option {
	return func(w *Workspace) {
		if step > 0 {
			w.resolution = step
		}
	}
}

// New validates the geometry and builds a Workspace.
// The obstacle slice is copied; its order is preserved.
func New(bounds Bounds, obstacles []Obstacle, opts ...Option) (*Workspace, error) {
	if err := bounds.validate(); err != nil {
		return nil, err
	}

	for i, o := range obstacles {
		if !o.Center.IsFinite() {
			return nil, fmt.Errorf("%w: obstacle %d has non-finite center", ErrDegenerateGeometry, i)
		}
		if !(o.Radius > 0) || math.IsInf(o.Radius, 0) {
			return nil, fmt.Errorf("%w: obstacle %d has radius %g", ErrDegenerateGeometry, i, o.Radius)
		}
	}

	owned := make([]Obstacle, len(obstacles))
	copy(owned, obstacles)

	index, err := newSpatialIndex(owned)
	if err != nil {
		return nil, fmt.Errorf("failed to index obstacles: %w", err)
	}

	w := &Workspace{
		bounds:     bounds,
		obstacles:  owned,
		index:      index,
		resolution: bounds.Diagonal() * DefaultResolutionFraction,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.resolution = max(w.resolution, bounds.Diagonal()*MinResolutionFraction)

	return w, nil
}

// Bounds returns the workspace box.
func (w *Workspace) Bounds() Bounds { return w.bounds }

// Obstacles returns a copy of the obstacle list in insertion order.
func (w *Workspace) Obstacles() []Obstacle {
	out := make([]Obstacle, len(w.obstacles))
	copy(out, w.obstacles)
	return out
}

// NumObstacles returns the obstacle count.
func (w *Workspace) NumObstacles() int { return len(w.obstacles) }

// Resolution returns the motion-check sub-step length.
func (w *Workspace) Resolution() float64 { return w.resolution }

// InBounds reports whether p lies within the workspace bounds.
// It is independent of IsValid.
func (w *Workspace) InBounds(p geometry.Point) bool {
	return w.bounds.Contains(p)
}

// IsValid returns false iff p lies inside or on any obstacle circle.
// Bounds are not checked here.
func (w *Workspace) IsValid(p geometry.Point) bool {
	for _, i := range w.index.queryRegion(p.X, p.Y, p.X, p.Y) {
		if w.obstacles[i].Contains(p) {
			return false
		}
	}
	return true
}

// MotionValid checks the straight segment a→b. Sub-step points spaced at the
// workspace resolution must all be valid, and the exact closest-point test
// must clear every nearby circle.
func (w *Workspace) MotionValid(a, b geometry.Point) bool {
	if !w.IsValid(a) || !w.IsValid(b) {
		return false
	}

	d := a.Distance(b)
	if steps := int(math.Ceil(d / w.resolution)); steps > 1 {
		for i := 1; i < steps; i++ {
			if !w.IsValid(geometry.Lerp(a, b, float64(i)/float64(steps))) {
				return false
			}
		}
	}

	seg := geometry.LineSegment{P1: a, P2: b}
	minX, minY, maxX, maxY := segmentBox(a, b)
	for _, i := range w.index.queryRegion(minX, minY, maxX, maxY) {
		o := w.obstacles[i]
		if geometry.SegmentIntersectsCircle(seg, o.Center, o.Radius) {
			return false
		}
	}
	return true
}

func segmentBox(a, b geometry.Point) (minX, minY, maxX, maxY float64) {
	return math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Max(a.X, b.X), math.Max(a.Y, b.Y)
}
