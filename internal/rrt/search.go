package rrt

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/workspace"
)

// Classic RRT defaults: the step is a fifth of the bounds diagonal and 5% of
// samples are the goal itself.
const (
	DefaultRangeFraction = 0.2
	DefaultGoalBias      = 0.05
	DefaultGoalTolerance = 1.0
	DefaultMaxIterations = 100000
	DefaultTimeBudget    = 10 * time.Second
)

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("rrt: invalid options")

// Space is the validity oracle the search grows the tree against.
// *workspace.Workspace satisfies it.
type Space interface {
	Bounds() workspace.Bounds
	InBounds(p geometry.Point) bool
	IsValid(p geometry.Point) bool
	MotionValid(a, b geometry.Point) bool
}

// Options configures one tree search.
//   - StepSize: maximum extension per iteration.
//   - GoalTolerance: a node this close to the goal ends the search.
//   - GoalBias: probability of sampling the goal instead of a uniform point.
//   - MaxIterations, TimeBudget: whichever runs out first stops the search.
//
// A zero field means "use the default", so GoalTolerance 0 and GoalBias 0
// cannot be asked for directly. Pass a tiny positive value such as 1e-12
// for an effectively exact goal hit or purely uniform sampling.
type Options struct {
	StepSize      float64       `json:"stepSize"`
	GoalTolerance float64       `json:"goalTolerance"`
	GoalBias      float64       `json:"goalBias"`
	MaxIterations int           `json:"maxIterations"`
	TimeBudget    time.Duration `json:"timeBudget"`
}

// DefaultOptions returns the defaults for a space with the given bounds.
func DefaultOptions(b workspace.Bounds) Options {
	return Options{}.WithDefaults(b)
}

// WithDefaults fills zero-valued fields.
func (o Options) WithDefaults(b workspace.Bounds) Options {
	if o.StepSize == 0 {
		o.StepSize = b.Diagonal() * DefaultRangeFraction
	}
	if o.GoalTolerance == 0 {
		o.GoalTolerance = DefaultGoalTolerance
	}
	if o.GoalBias == 0 {
		o.GoalBias = DefaultGoalBias
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.TimeBudget == 0 {
		o.TimeBudget = DefaultTimeBudget
	}
	return o
}

// Validate rejects options that cannot bound or drive a search.
func (o Options) Validate() error {
	switch {
	case !(o.StepSize > 0) || math.IsInf(o.StepSize, 0):
		return fmt.Errorf("%w: step size must be positive, got %g", ErrInvalidOptions, o.StepSize)
	case !(o.GoalTolerance >= 0) || math.IsInf(o.GoalTolerance, 0):
		return fmt.Errorf("%w: goal tolerance must be non-negative, got %g", ErrInvalidOptions, o.GoalTolerance)
	case !(o.GoalBias >= 0 && o.GoalBias <= 1):
		return fmt.Errorf("%w: goal bias must be in [0,1], got %g", ErrInvalidOptions, o.GoalBias)
	case o.MaxIterations <= 0:
		return fmt.Errorf("%w: iteration budget must be positive, got %d", ErrInvalidOptions, o.MaxIterations)
	case o.TimeBudget <= 0:
		return fmt.Errorf("%w: time budget must be positive, got %v", ErrInvalidOptions, o.TimeBudget)
	}
	return nil
}

// Budget names the limit that ended an unsuccessful search.
type Budget string

const (
	BudgetNone       Budget = ""
	BudgetIterations Budget = "iterations"
	BudgetTime       Budget = "time"
)

// Outcome is what a search leaves behind.
type Outcome struct {
	Tree       *Tree
	GoalNode   int // index of the node that reached the goal region, -1 if none
	Iterations int
	Rejected   int
	Elapsed    time.Duration
	Exhausted  Budget
}

// Reached reports whether the goal region was reached.
func (o Outcome) Reached() bool { return o.GoalNode >= 0 }

// Sample draws a point uniformly within b.
func Sample(b workspace.Bounds, rng *rand.Rand) geometry.Point {
	return geometry.Point{
		X: b.MinX + rng.Float64()*b.Width(),
		Y: b.MinY + rng.Float64()*b.Height(),
	}
}

// Steer moves from toward target by at most step.
func Steer(from, target geometry.Point, step float64) geometry.Point {
	d := from.Distance(target)
	if d <= step {
		return target
	}
	return geometry.Lerp(from, target, step/d)
}

// Search grows a tree from start until a node lands within GoalTolerance of
// goal or a budget runs out. Options are used as given; callers apply
// WithDefaults and Validate first. rng is owned by this search for its
// duration.
func Search(space Space, start, goal geometry.Point, opts Options, rng *rand.Rand) Outcome {
	began := time.Now()
	tree := NewTree(start)
	out := Outcome{Tree: tree, GoalNode: -1}

	if start.Distance(goal) <= opts.GoalTolerance {
		out.GoalNode = 0
		out.Elapsed = time.Since(began)
		return out
	}

	bounds := space.Bounds()
	for {
		if out.Iterations >= opts.MaxIterations {
			out.Exhausted = BudgetIterations
			break
		}
		if time.Since(began) >= opts.TimeBudget {
			out.Exhausted = BudgetTime
			break
		}
		out.Iterations++

		sample := goal
		if rng.Float64() >= opts.GoalBias {
			sample = Sample(bounds, rng)
		}

		nearest, dist := tree.Nearest(sample)
		if dist == 0 {
			out.Rejected++
			continue
		}

		from := tree.Nodes[nearest].State
		candidate := Steer(from, sample, opts.StepSize)
		if !space.InBounds(candidate) || !space.IsValid(candidate) || !space.MotionValid(from, candidate) {
			out.Rejected++
			continue
		}

		id := tree.Add(candidate, nearest)
		if candidate.Distance(goal) <= opts.GoalTolerance {
			out.GoalNode = id
			break
		}
	}

	out.Elapsed = time.Since(began)
	return out
}
