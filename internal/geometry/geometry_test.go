package geometry_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"rrt-planner/internal/geometry"
)

func TestDistance(t *testing.T) {
	a := geometry.Point{X: 0, Y: 0}
	b := geometry.Point{X: 3, Y: 4}
	require.InDelta(t, 5.0, geometry.Distance(a, b), 1e-12)
	require.InDelta(t, 5.0, b.Distance(a), 1e-12)
	require.InDelta(t, 25.0, geometry.DistanceSquared(a, b), 1e-12)
	require.Zero(t, a.Distance(a))
}

// TestInsideCircle covers interior, boundary and exterior points.
func TestInsideCircle(t *testing.T) {
	center := geometry.Point{X: 50, Y: 50}
	cases := []struct {
		name string
		p    geometry.Point
		want bool
	}{
		{"Center", center, true},
		{"Interior", geometry.Point{X: 52, Y: 53}, true},
		{"Boundary", geometry.Point{X: 55, Y: 50}, true},
		{"JustOutside", geometry.Point{X: 55.0001, Y: 50}, false},
		{"Far", geometry.Point{X: 0, Y: 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, geometry.InsideCircle(tc.p, center, 5))
		})
	}
}

func TestLerp(t *testing.T) {
	a := geometry.Point{X: 0, Y: 10}
	b := geometry.Point{X: 10, Y: 20}
	require.Equal(t, a, geometry.Lerp(a, b, 0))
	require.Equal(t, b, geometry.Lerp(a, b, 1))
	require.Equal(t, geometry.Point{X: 5, Y: 15}, geometry.Lerp(a, b, 0.5))
}

// TestSegmentDistance checks projection inside the segment and clamping at both ends.
func TestSegmentDistance(t *testing.T) {
	a := geometry.Point{X: 0, Y: 0}
	b := geometry.Point{X: 10, Y: 0}

	require.InDelta(t, 3.0, geometry.SegmentDistance(geometry.Point{X: 5, Y: 3}, a, b), 1e-12)
	require.InDelta(t, 5.0, geometry.SegmentDistance(geometry.Point{X: -3, Y: 4}, a, b), 1e-12)
	require.InDelta(t, 5.0, geometry.SegmentDistance(geometry.Point{X: 13, Y: -4}, a, b), 1e-12)
	// degenerate segment collapses to point distance
	require.InDelta(t, 5.0, geometry.SegmentDistance(geometry.Point{X: 3, Y: 4}, a, a), 1e-12)
}

func TestSegmentIntersectsCircle(t *testing.T) {
	center := geometry.Point{X: 50, Y: 50}
	diagonal := geometry.LineSegment{P1: geometry.Point{X: 0, Y: 0}, P2: geometry.Point{X: 100, Y: 100}}
	require.True(t, geometry.SegmentIntersectsCircle(diagonal, center, 5))

	// both endpoints are outside but the segment crosses the circle
	crossing := geometry.LineSegment{P1: geometry.Point{X: 40, Y: 50}, P2: geometry.Point{X: 60, Y: 50}}
	require.True(t, geometry.SegmentIntersectsCircle(crossing, center, 5))

	clear := geometry.LineSegment{P1: geometry.Point{X: 0, Y: 60}, P2: geometry.Point{X: 100, Y: 60}}
	require.False(t, geometry.SegmentIntersectsCircle(clear, center, 5))

	tangent := geometry.LineSegment{P1: geometry.Point{X: 0, Y: 55}, P2: geometry.Point{X: 100, Y: 55}}
	require.True(t, geometry.SegmentIntersectsCircle(tangent, center, 5))
}

func TestPathLength(t *testing.T) {
	require.Zero(t, geometry.PathLength(nil))
	require.Zero(t, geometry.PathLength([]geometry.Point{{X: 1, Y: 1}}))

	pts := []geometry.Point{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 10}}
	require.InDelta(t, 11.0, geometry.PathLength(pts), 1e-12)
}

func TestIsFinite(t *testing.T) {
	require.True(t, geometry.Point{X: 1, Y: -1}.IsFinite())
	require.False(t, geometry.Point{X: math.NaN(), Y: 0}.IsFinite())
	require.False(t, geometry.Point{X: 0, Y: math.Inf(1)}.IsFinite())
}
