package workspace

import (
	"sort"

	"github.com/dhconnelly/rtreego"
)

// queryPad widens query boxes so degenerate (point or axis-aligned) queries
// still form a valid rectangle and touching boxes still intersect.
const queryPad = 1e-9

// obstacleEntry wraps an obstacle's bounding box for R-tree storage
type obstacleEntry struct {
	index int
	bbox  rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *obstacleEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// spatialIndex answers "which obstacles could touch this box" queries
type spatialIndex struct {
	tree *rtreego.Rtree
}

func newSpatialIndex(obstacles []Obstacle) (*spatialIndex, error) {
	tree := rtreego.NewTree(2, 25, 50) // 2D, min 25, max 50 entries per node

	for i, o := range obstacles {
		bbox, err := rtreego.NewRect(
			rtreego.Point{o.Center.X - o.Radius, o.Center.Y - o.Radius},
			[]float64{2 * o.Radius, 2 * o.Radius},
		)
		if err != nil {
			return nil, err
		}
		tree.Insert(&obstacleEntry{index: i, bbox: bbox})
	}

	return &spatialIndex{tree: tree}, nil
}

// queryRegion returns indices of obstacles whose bounding box meets the given box,
// in ascending order so callers see obstacles in insertion order.
func (si *spatialIndex) queryRegion(minX, minY, maxX, maxY float64) []int {
	if si.tree.Size() == 0 {
		return nil
	}

	bbox, err := rtreego.NewRect(
		rtreego.Point{minX - queryPad, minY - queryPad},
		[]float64{maxX - minX + 2*queryPad, maxY - minY + 2*queryPad},
	)
	if err != nil {
		// fall back to every obstacle rather than report a false "clear"
		all := make([]int, si.tree.Size())
		for i := range all {
			all[i] = i
		}
		return all
	}

	results := si.tree.SearchIntersect(bbox)
	indices := make([]int, 0, len(results))
	for _, item := range results {
		indices = append(indices, item.(*obstacleEntry).index)
	}
	sort.Ints(indices)

	return indices
}
