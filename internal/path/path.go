// Package path turns a tree branch into a waypoint sequence a renderer or
// controller can consume.
package path

import (
	"math"

	"rrt-planner/internal/geometry"
)

// Densify inserts evenly spaced intermediate points so that no two
// consecutive points are farther apart than maxInterval. Input waypoints
// are kept as-is. Validity is not re-checked.
func Densify(points []geometry.Point, maxInterval float64) []geometry.Point {
	if len(points) < 2 || !(maxInterval > 0) {
		return append([]geometry.Point(nil), points...)
	}

	out := make([]geometry.Point, 0, len(points))
	out = append(out, points[0])
	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		n := max(1, int(math.Ceil(a.Distance(b)/maxInterval)))
		// rounding in Lerp can leave a gap an ulp over the limit; split finer until none is
		for {
			mark := len(out)
			out = split(out, a, b, n)
			if gapsWithin(a, out[mark:], maxInterval) {
				break
			}
			out = out[:mark]
			n++
		}
	}
	return out
}

// split appends the n-1 interior points of a→b followed by b.
func split(dst []geometry.Point, a, b geometry.Point, n int) []geometry.Point {
	for k := 1; k < n; k++ {
		dst = append(dst, geometry.Lerp(a, b, float64(k)/float64(n)))
	}
	return append(dst, b)
}

func gapsWithin(prev geometry.Point, pts []geometry.Point, limit float64) bool {
	for _, p := range pts {
		if prev.Distance(p) > limit {
			return false
		}
		prev = p
	}
	return true
}

// Length returns the total length of the path
func Length(points []geometry.Point) float64 {
	return geometry.PathLength(points)
}

// MaxGap returns the largest distance between consecutive points
func MaxGap(points []geometry.Point) float64 {
	gap := 0.0
	for i := 0; i < len(points)-1; i++ {
		gap = math.Max(gap, points[i].Distance(points[i+1]))
	}
	return gap
}
