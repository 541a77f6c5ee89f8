package planner

import (
	"time"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/rrt"
)

// ReasonBudgetExhausted is the NotFound reason when the search ran out of
// iterations or time before reaching the goal region.
const ReasonBudgetExhausted = "budget exhausted"

// Status distinguishes the two planning outcomes.
type Status int

const (
	NotFound Status = iota
	Found
)

func (s Status) String() string {
	if s == Found {
		return "found"
	}
	return "not_found"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the terminal artifact of one planning invocation.
// Path is set only when Status is Found; Reason only when it is NotFound.
type Result struct {
	Status     Status           `json:"status"`
	Path       []geometry.Point `json:"path,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Seed       int64            `json:"seed"`
	Attempt    int              `json:"attempt"`
	Iterations int              `json:"iterations"`
	TreeSize   int              `json:"treeSize"`
	Length     float64          `json:"length"`
	Elapsed    time.Duration    `json:"elapsed"`
	Exhausted  rrt.Budget       `json:"exhausted,omitempty"`

	// TreeEdges is filled when Options.RecordTree is set.
	TreeEdges [][2]geometry.Point `json:"-"`
}

// Found reports whether a path was produced.
func (r Result) Found() bool { return r.Status == Found }
