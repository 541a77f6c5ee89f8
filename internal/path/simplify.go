package path

import "rrt-planner/internal/geometry"

// MotionChecker reports whether the straight motion a→b is collision-free
type MotionChecker func(a, b geometry.Point) bool

// Simplify reduces waypoint count using Douglas-Peucker, but only collapses a
// run of points into a single segment when valid accepts that shortcut.
// Endpoints are always kept, so the result starts and ends where the input does.
func Simplify(points []geometry.Point, epsilon float64, valid MotionChecker) []geometry.Point {
	if len(points) <= 2 {
		return append([]geometry.Point(nil), points...)
	}
	return douglasPeucker(points, epsilon, valid)
}

// douglasPeucker implements the Douglas-Peucker line simplification algorithm
func douglasPeucker(points []geometry.Point, epsilon float64, valid MotionChecker) []geometry.Point {
	end := len(points) - 1
	if end <= 1 {
		return append([]geometry.Point(nil), points...)
	}

	// Find the point with maximum distance from line between first and last
	dmax := 0.0
	index := 0
	for i := 1; i < end; i++ {
		d := geometry.SegmentDistance(points[i], points[0], points[end])
		if d > dmax {
			index = i
			dmax = d
		}
	}

	// All points in between can be discarded if the shortcut is clear
	if dmax <= epsilon && valid(points[0], points[end]) {
		return []geometry.Point{points[0], points[end]}
	}

	// Collinear runs blocked by an obstacle still need a split point
	if index == 0 {
		index = end / 2
	}

	left := douglasPeucker(points[0:index+1], epsilon, valid)
	right := douglasPeucker(points[index:], epsilon, valid)

	// Combine results (removing duplicate point at index)
	result := make([]geometry.Point, 0, len(left)+len(right)-1)
	result = append(result, left[:len(left)-1]...)
	result = append(result, right...)
	return result
}
