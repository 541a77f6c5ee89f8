package path

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/workspace"
)

// ToGeoJSON builds a FeatureCollection with the path as a LineString and
// every obstacle as a Point carrying its radius. An empty path is omitted.
func ToGeoJSON(points []geometry.Point, obstacles []workspace.Obstacle) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	if len(points) > 0 {
		line := make(orb.LineString, 0, len(points))
		for _, p := range points {
			line = append(line, orb.Point{p.X, p.Y})
		}
		pathFeature := geojson.NewFeature(line)
		pathFeature.Properties["kind"] = "path"
		pathFeature.Properties["length"] = Length(points)
		pathFeature.Properties["waypoints"] = len(points)
		fc.Append(pathFeature)
	}

	for i, o := range obstacles {
		f := geojson.NewFeature(orb.Point{o.Center.X, o.Center.Y})
		f.Properties["kind"] = "obstacle"
		f.Properties["index"] = i
		f.Properties["radius"] = o.Radius
		fc.Append(f)
	}

	return fc
}

// FromGeoJSON extracts the first path LineString from a collection written by ToGeoJSON.
func FromGeoJSON(fc *geojson.FeatureCollection) ([]geometry.Point, bool) {
	for _, f := range fc.Features {
		line, ok := f.Geometry.(orb.LineString)
		if !ok {
			continue
		}
		points := make([]geometry.Point, 0, len(line))
		for _, p := range line {
			points = append(points, geometry.Point{X: p.X(), Y: p.Y()})
		}
		return points, true
	}
	return nil, false
}
