package workspace_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/workspace"
)

func mustWorkspace(t *testing.T, centers ...geometry.Point) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(workspace.DefaultBounds(), workspace.Circles(centers, workspace.DefaultObstacleRadius))
	require.NoError(t, err)
	return ws
}

// TestNew_DegenerateGeometry verifies that New rejects zero-size bounds and bad obstacles.
func TestNew_DegenerateGeometry(t *testing.T) {
	center := geometry.Point{X: 10, Y: 10}
	cases := []struct {
		name      string
		bounds    workspace.Bounds
		obstacles []workspace.Obstacle
	}{
		{"ZeroWidth", workspace.Bounds{MinX: 5, MinY: 0, MaxX: 5, MaxY: 10}, nil},
		{"InvertedY", workspace.Bounds{MinX: 0, MinY: 10, MaxX: 10, MaxY: 0}, nil},
		{"NaNBound", workspace.Bounds{MinX: math.NaN(), MinY: 0, MaxX: 10, MaxY: 10}, nil},
		{"ZeroRadius", workspace.DefaultBounds(), []workspace.Obstacle{{Center: center, Radius: 0}}},
		{"NegativeRadius", workspace.DefaultBounds(), []workspace.Obstacle{{Center: center, Radius: -1}}},
		{"NaNRadius", workspace.DefaultBounds(), []workspace.Obstacle{{Center: center, Radius: math.NaN()}}},
		{"InfCenter", workspace.DefaultBounds(), []workspace.Obstacle{{Center: geometry.Point{X: math.Inf(1)}, Radius: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := workspace.New(tc.bounds, tc.obstacles)
			require.True(t, errors.Is(err, workspace.ErrDegenerateGeometry), "got %v", err)
		})
	}
}

func TestNew_CopiesObstacles(t *testing.T) {
	obstacles := workspace.Circles([]geometry.Point{{X: 10, Y: 10}, {X: 20, Y: 20}}, 5)
	ws, err := workspace.New(workspace.DefaultBounds(), obstacles)
	require.NoError(t, err)

	obstacles[0].Center = geometry.Point{X: 90, Y: 90}
	got := ws.Obstacles()
	require.Equal(t, geometry.Point{X: 10, Y: 10}, got[0].Center)
	require.Equal(t, 2, ws.NumObstacles())
	require.InDelta(t, math.Sqrt(2)*100*workspace.DefaultResolutionFraction, ws.Resolution(), 1e-12)
}

// TestIsValid_Invariant samples points around each obstacle and checks that
// every point strictly inside a circle is rejected.
func TestIsValid_Invariant(t *testing.T) {
	centers := []geometry.Point{{X: 20, Y: 20}, {X: 50, Y: 50}, {X: 52, Y: 58}, {X: 90, Y: 10}}
	ws := mustWorkspace(t, centers...)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 5000; i++ {
		p := geometry.Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
		inside := false
		for _, c := range centers {
			if p.Distance(c) < workspace.DefaultObstacleRadius {
				inside = true
			}
		}
		if inside {
			require.False(t, ws.IsValid(p), "point %+v lies inside an obstacle", p)
		}
	}
}

func TestIsValid_Boundary(t *testing.T) {
	ws := mustWorkspace(t, geometry.Point{X: 50, Y: 50})

	require.False(t, ws.IsValid(geometry.Point{X: 55, Y: 50}), "boundary counts as collision")
	require.False(t, ws.IsValid(geometry.Point{X: 50, Y: 45}))
	require.True(t, ws.IsValid(geometry.Point{X: 55.001, Y: 50}))
	require.True(t, ws.IsValid(geometry.Point{X: 0, Y: 0}))
}

// TestIsValid_IgnoresBounds verifies validity and boundedness stay orthogonal.
func TestIsValid_IgnoresBounds(t *testing.T) {
	ws := mustWorkspace(t)
	outside := geometry.Point{X: -10, Y: 200}
	require.True(t, ws.IsValid(outside))
	require.False(t, ws.InBounds(outside))
	require.True(t, ws.InBounds(geometry.Point{X: 0, Y: 100}))
	require.True(t, ws.InBounds(geometry.Point{X: 100, Y: 0}))
}

func TestMotionValid(t *testing.T) {
	ws := mustWorkspace(t, geometry.Point{X: 50, Y: 50})

	// endpoints clear, segment tunnels through the circle
	require.False(t, ws.MotionValid(geometry.Point{X: 40, Y: 50}, geometry.Point{X: 60, Y: 50}))
	require.False(t, ws.MotionValid(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 100, Y: 100}))
	// grazing the boundary is a collision
	require.False(t, ws.MotionValid(geometry.Point{X: 0, Y: 55}, geometry.Point{X: 100, Y: 55}))

	require.True(t, ws.MotionValid(geometry.Point{X: 0, Y: 60}, geometry.Point{X: 100, Y: 60}))
	require.True(t, ws.MotionValid(geometry.Point{X: 10, Y: 10}, geometry.Point{X: 10, Y: 10}))
	require.False(t, ws.MotionValid(geometry.Point{X: 50, Y: 50}, geometry.Point{X: 50, Y: 50}))
}

// TestMotionValid_CoarseResolution checks that a thin crossing is caught even
// when the sub-step is much larger than the obstacle.
func TestMotionValid_CoarseResolution(t *testing.T) {
	obstacles := []workspace.Obstacle{{Center: geometry.Point{X: 50, Y: 50}, Radius: 0.1}}
	ws, err := workspace.New(workspace.DefaultBounds(), obstacles, workspace.WithResolution(40))
	require.NoError(t, err)
	require.Equal(t, 40.0, ws.Resolution())

	require.False(t, ws.MotionValid(geometry.Point{X: 0, Y: 50}, geometry.Point{X: 100, Y: 50}))
	require.True(t, ws.MotionValid(geometry.Point{X: 0, Y: 51}, geometry.Point{X: 100, Y: 51}))
}

// TestResolutionFloor checks that tiny sub-steps are raised to the floor so a
// single motion check stays bounded.
func TestResolutionFloor(t *testing.T) {
	b := workspace.DefaultBounds()
	floor := b.Diagonal() * workspace.MinResolutionFraction

	for _, step := range []float64{1e-8, 1e-6, floor / 2} {
		ws, err := workspace.New(b, nil, workspace.WithResolution(step))
		require.NoError(t, err)
		require.Equal(t, floor, ws.Resolution(), "step %g", step)
	}

	ws, err := workspace.New(b, nil, workspace.WithResolution(floor*3))
	require.NoError(t, err)
	require.Equal(t, floor*3, ws.Resolution())

	require.True(t, ws.MotionValid(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 100, Y: 100}))
}

// TestIndexMatchesLinearScan compares indexed validity against a brute-force scan.
func TestIndexMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	centers := make([]geometry.Point, 0, 200)
	for i := 0; i < 200; i++ {
		centers = append(centers, geometry.Point{X: rng.Float64() * 100, Y: rng.Float64() * 100})
	}
	ws := mustWorkspace(t, centers...)

	for i := 0; i < 2000; i++ {
		p := geometry.Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
		want := true
		for _, c := range centers {
			if geometry.InsideCircle(p, c, workspace.DefaultObstacleRadius) {
				want = false
				break
			}
		}
		require.Equal(t, want, ws.IsValid(p), "point %+v", p)
	}
}

func TestBounds(t *testing.T) {
	b := workspace.Bounds{MinX: 0, MinY: 0, MaxX: 30, MaxY: 40}
	require.Equal(t, 30.0, b.Width())
	require.Equal(t, 40.0, b.Height())
	require.Equal(t, 50.0, b.Diagonal())
	require.True(t, b.Contains(geometry.Point{X: 30, Y: 40}))
	require.False(t, b.Contains(geometry.Point{X: 30.1, Y: 40}))
}
