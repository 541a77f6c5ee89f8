package rrt

import (
	"fmt"
	"math"

	"rrt-planner/internal/geometry"
)

// Node is a tree vertex: a state plus the arena index of its parent (-1 for the root)
type Node struct {
	State  geometry.Point `json:"state"`
	Parent int            `json:"parent"`
}

// Tree is an insertion-ordered arena of nodes rooted at the start state.
// Nodes are never removed; the whole tree is dropped at once.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// NewTree creates a tree holding only the root.
func NewTree(root geometry.Point) *Tree {
	return &Tree{Nodes: []Node{{State: root, Parent: -1}}}
}

// Len returns the number of nodes
func (t *Tree) Len() int { return len(t.Nodes) }

// Root returns the root state
func (t *Tree) Root() geometry.Point { return t.Nodes[0].State }

// Node returns the node at index i
func (t *Tree) Node(i int) Node { return t.Nodes[i] }

// Add appends state as a child of parent and returns its index.
func (t *Tree) Add(state geometry.Point, parent int) int {
	if parent < 0 || parent >= len(t.Nodes) {
		panic(fmt.Sprintf("rrt: parent %d out of range [0,%d)", parent, len(t.Nodes)))
	}
	t.Nodes = append(t.Nodes, Node{State: state, Parent: parent})
	return len(t.Nodes) - 1
}

// Nearest finds the closest node to a given point.
// Ties go to the earliest inserted node.
func (t *Tree) Nearest(point geometry.Point) (int, float64) {
	nearestID := 0
	minDist := geometry.DistanceSquared(point, t.Nodes[0].State)

	for i := 1; i < len(t.Nodes); i++ {
		dist := geometry.DistanceSquared(point, t.Nodes[i].State)
		if dist < minDist {
			minDist = dist
			nearestID = i
		}
	}

	return nearestID, math.Sqrt(minDist)
}

// Branch walks parent links from node i to the root and returns the states
// in root→i order.
func (t *Tree) Branch(i int) []geometry.Point {
	depth := 0
	for n := i; n != -1; n = t.Nodes[n].Parent {
		depth++
	}

	branch := make([]geometry.Point, depth)
	for n := i; n != -1; n = t.Nodes[n].Parent {
		depth--
		branch[depth] = t.Nodes[n].State
	}
	return branch
}

// Edges returns every parent→child motion as a line segment for visualization
func (t *Tree) Edges() [][2]geometry.Point {
	lines := make([][2]geometry.Point, 0, len(t.Nodes)-1)
	for _, n := range t.Nodes[1:] {
		lines = append(lines, [2]geometry.Point{t.Nodes[n.Parent].State, n.State})
	}
	return lines
}

// Validate checks that the structure is a rooted tree: exactly one root at
// index 0 and every other node's parent inserted before it.
func (t *Tree) Validate() error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("rrt: tree has no root")
	}
	if t.Nodes[0].Parent != -1 {
		return fmt.Errorf("rrt: root has parent %d", t.Nodes[0].Parent)
	}
	for i, n := range t.Nodes[1:] {
		idx := i + 1
		if n.Parent < 0 || n.Parent >= idx {
			return fmt.Errorf("rrt: node %d has parent %d not inserted before it", idx, n.Parent)
		}
	}
	return nil
}
