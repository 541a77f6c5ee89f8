// Package planner runs planning sessions: it validates the request, grows an
// RRT against a workspace within the configured budgets and turns the goal
// branch into a dense start→goal path.
package planner

import (
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/path"
	"rrt-planner/internal/rrt"
	"rrt-planner/internal/workspace"
)

// DefaultInterpolationFraction sets the densified waypoint spacing as a
// fraction of the bounds diagonal.
const DefaultInterpolationFraction = 0.01

// MinInterpolationFraction is the smallest allowed waypoint spacing as a
// fraction of the bounds diagonal.
const MinInterpolationFraction = 1e-4

// Options configures a Session.
//   - Seed: pseudo-random seed; 0 derives one from the clock. The seed used is
//     always reported in the Result.
//   - Interval: maximum spacing between consecutive output waypoints, no
//     smaller than MinInterpolationFraction of the diagonal.
//   - Simplify: shortcut the raw branch before densifying.
//   - SimplifyEpsilon: Douglas-Peucker tolerance (defaults to Interval).
//   - RecordTree: copy the tree's edges into the Result.
//   - Attempts: independent searches run by PlanBest.
type Options struct {
	rrt.Options

	Seed            int64   `json:"seed"`
	Interval        float64 `json:"interval"`
	Simplify        bool    `json:"simplify"`
	SimplifyEpsilon float64 `json:"simplifyEpsilon"`
	RecordTree      bool    `json:"recordTree"`
	Attempts        int     `json:"attempts"`
}

// WithDefaults fills zero-valued fields for a workspace with bounds b.
func (o Options) WithDefaults(b workspace.Bounds) Options {
	o.Options = o.Options.WithDefaults(b)
	if o.Interval == 0 {
		o.Interval = b.Diagonal() * DefaultInterpolationFraction
	}
	if o.SimplifyEpsilon == 0 {
		o.SimplifyEpsilon = o.Interval
	}
	if o.Attempts == 0 {
		o.Attempts = 1
	}
	return o
}

// Validate checks the search options and the output spacing.
func (o Options) Validate() error {
	if err := o.Options.Validate(); err != nil {
		return err
	}
	if !(o.Interval > 0) {
		return fmt.Errorf("%w: interpolation interval must be positive, got %g", rrt.ErrInvalidOptions, o.Interval)
	}
	if o.SimplifyEpsilon < 0 {
		return fmt.Errorf("%w: simplify epsilon must be non-negative, got %g", rrt.ErrInvalidOptions, o.SimplifyEpsilon)
	}
	if o.Attempts < 1 {
		return fmt.Errorf("%w: attempts must be at least 1, got %d", rrt.ErrInvalidOptions, o.Attempts)
	}
	return nil
}

// ValidateFor runs Validate and also rejects an Interval below
// MinInterpolationFraction of the diagonal of b.
func (o Options) ValidateFor(b workspace.Bounds) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if floor := b.Diagonal() * MinInterpolationFraction; o.Interval < floor {
		return fmt.Errorf("%w: interpolation interval %g below minimum %g", rrt.ErrInvalidOptions, o.Interval, floor)
	}
	return nil
}

// Session owns a workspace snapshot and the budgets for planning on it.
// A Session holds no per-plan state, so Plan may be called repeatedly.
type Session struct {
	ws   *workspace.Workspace
	opts Options
}

// NewSession applies defaults to opts and validates them.
func NewSession(ws *workspace.Workspace, opts Options) (*Session, error) {
	if ws == nil {
		return nil, ErrNoWorkspace
	}
	opts = opts.WithDefaults(ws.Bounds())
	if err := opts.ValidateFor(ws.Bounds()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return &Session{ws: ws, opts: opts}, nil
}

// Plan runs a single planning attempt with the session's options.
func Plan(ws *workspace.Workspace, start, goal geometry.Point, opts Options) (Result, error) {
	s, err := NewSession(ws, opts)
	if err != nil {
		return Result{}, err
	}
	return s.Plan(start, goal)
}

// Options returns the effective options.
func (s *Session) Options() Options { return s.opts }

// Workspace returns the session's workspace.
func (s *Session) Workspace() *workspace.Workspace { return s.ws }

// Plan grows one tree from start toward goal. A non-nil error is always an
// ErrInvalidConfiguration and means no iteration ran. Running out of budget
// is reported as a NotFound Result with a nil error.
func (s *Session) Plan(start, goal geometry.Point) (Result, error) {
	if err := s.checkEndpoints(start, goal); err != nil {
		return Result{}, err
	}

	res := s.attempt(start, goal, s.seed(), 0)
	s.logResult(res)
	return res, nil
}

// PlanBest runs Options.Attempts independent searches in parallel and keeps
// the shortest found path. Attempt i uses seed Seed+i and its own tree.
func (s *Session) PlanBest(start, goal geometry.Point) (Result, error) {
	if err := s.checkEndpoints(start, goal); err != nil {
		return Result{}, err
	}

	base := s.seed()
	results := make([]Result, s.opts.Attempts)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range results {
		g.Go(func() error {
			results[i] = s.attempt(start, goal, base+int64(i), i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	best := -1
	iterations := 0
	for i, r := range results {
		iterations += r.Iterations
		if r.Found() && (best < 0 || r.Length < results[best].Length) {
			best = i
		}
	}

	var res Result
	if best >= 0 {
		res = results[best]
	} else {
		res = results[0]
		res.Iterations = iterations
	}
	Logger().Debug("best-of-n finished",
		"attempts", len(results), "best", best, "totalIterations", iterations)
	s.logResult(res)
	return res, nil
}

func (s *Session) seed() int64 {
	if s.opts.Seed != 0 {
		return s.opts.Seed
	}
	return time.Now().UnixNano()
}

func (s *Session) checkEndpoints(start, goal geometry.Point) error {
	var err error
	switch {
	case !start.IsFinite() || !s.ws.InBounds(start):
		err = ErrStartOutOfBounds
	case !goal.IsFinite() || !s.ws.InBounds(goal):
		err = ErrGoalOutOfBounds
	case !s.ws.IsValid(start):
		err = ErrStartInCollision
	case !s.ws.IsValid(goal):
		err = ErrGoalInCollision
	}
	if err != nil {
		Logger().Warn("planning request rejected",
			"start", start, "goal", goal, "err", err)
	}
	return err
}

// attempt runs one search with its own random source and extracts the path.
func (s *Session) attempt(start, goal geometry.Point, seed int64, index int) Result {
	rng := rand.New(rand.NewSource(seed))
	out := rrt.Search(s.ws, start, goal, s.opts.Options, rng)

	res := Result{
		Seed:       seed,
		Attempt:    index,
		Iterations: out.Iterations,
		TreeSize:   out.Tree.Len(),
		Elapsed:    out.Elapsed,
		Exhausted:  out.Exhausted,
	}
	if s.opts.RecordTree {
		res.TreeEdges = out.Tree.Edges()
	}

	Logger().Debug("search finished",
		"attempt", index, "seed", seed, "iterations", out.Iterations,
		"rejected", out.Rejected, "nodes", out.Tree.Len(), "reached", out.Reached())

	if !out.Reached() {
		res.Status = NotFound
		res.Reason = ReasonBudgetExhausted
		return res
	}

	waypoints := out.Tree.Branch(out.GoalNode)
	if s.opts.Simplify {
		waypoints = path.Simplify(waypoints, s.opts.SimplifyEpsilon, s.ws.MotionValid)
	}

	res.Status = Found
	res.Path = path.Densify(waypoints, s.opts.Interval)
	res.Length = path.Length(res.Path)
	return res
}

func (s *Session) logResult(res Result) {
	if res.Found() {
		Logger().Info("path found",
			"waypoints", len(res.Path), "length", res.Length,
			"iterations", res.Iterations, "treeSize", res.TreeSize, "seed", res.Seed)
		return
	}
	Logger().Info("no path found",
		"reason", res.Reason, "exhausted", string(res.Exhausted),
		"iterations", res.Iterations, "seed", res.Seed)
}
