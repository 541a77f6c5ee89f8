package planner

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration marks inputs rejected before any search iteration runs.
var ErrInvalidConfiguration = errors.New("planner: invalid configuration")

var (
	// ErrStartOutOfBounds indicates the start lies outside the workspace bounds.
	ErrStartOutOfBounds = fmt.Errorf("%w: start outside workspace bounds", ErrInvalidConfiguration)
	// ErrGoalOutOfBounds indicates the goal lies outside the workspace bounds.
	ErrGoalOutOfBounds = fmt.Errorf("%w: goal outside workspace bounds", ErrInvalidConfiguration)
	// ErrStartInCollision indicates the start lies inside an obstacle.
	ErrStartInCollision = fmt.Errorf("%w: start inside an obstacle", ErrInvalidConfiguration)
	// ErrGoalInCollision indicates the goal lies inside an obstacle.
	ErrGoalInCollision = fmt.Errorf("%w: goal inside an obstacle", ErrInvalidConfiguration)
	// ErrNoWorkspace indicates a session was created without a workspace.
	ErrNoWorkspace = fmt.Errorf("%w: no workspace", ErrInvalidConfiguration)
)
