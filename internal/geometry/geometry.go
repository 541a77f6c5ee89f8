package geometry

import "math"

// Point is a position in the 2D workspace
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LineSegment represents a line segment between two points
type LineSegment struct {
	P1, P2 Point
}

// Distance calculates Euclidean distance between two points
func (p Point) Distance(other Point) float64 {
	return Distance(p, other)
}

// Distance calculates Euclidean distance between a and b
func Distance(a, b Point) float64 {
	return math.Sqrt(DistanceSquared(a, b))
}

// DistanceSquared skips the square root for comparisons on hot paths
func DistanceSquared(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// InsideCircle reports whether p lies inside or on the circle (center, radius)
func InsideCircle(p, center Point, radius float64) bool {
	return DistanceSquared(p, center) <= radius*radius
}

// Lerp returns the point at fraction t along a→b
func Lerp(a, b Point, t float64) Point {
	return Point{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}

// SegmentDistance calculates the distance from point to the closest point of the segment
func SegmentDistance(point, lineStart, lineEnd Point) float64 {
	dx := lineEnd.X - lineStart.X
	dy := lineEnd.Y - lineStart.Y

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(point, lineStart)
	}

	// Project onto the segment and clamp to its endpoints
	t := ((point.X-lineStart.X)*dx + (point.Y-lineStart.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))

	return Distance(point, Lerp(lineStart, lineEnd, t))
}

// SegmentIntersectsCircle checks if any point of the segment lies inside or on the circle
func SegmentIntersectsCircle(seg LineSegment, center Point, radius float64) bool {
	return SegmentDistance(center, seg.P1, seg.P2) <= radius
}

// PathLength sums the lengths of consecutive segments
func PathLength(points []Point) float64 {
	total := 0.0
	for i := 0; i < len(points)-1; i++ {
		total += points[i].Distance(points[i+1])
	}
	return total
}

// IsFinite reports whether both coordinates are finite numbers
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}
