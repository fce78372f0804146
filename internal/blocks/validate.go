package blocks

import (
	"errors"
	"fmt"
)

// ErrPreconditionFailed is wrapped by PlanError.
var ErrPreconditionFailed = errors.New("operator precondition failed")

// PlanError reports the first operator of a plan whose precondition failed.
type PlanError struct {
	Index int
	Op    Operator
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("blocks.Replay: step %d %s: %v", e.Index, e.Op, ErrPreconditionFailed)
}

func (e *PlanError) Unwrap() error { return ErrPreconditionFailed }

// Replay applies plan to a clone of start.
//
// Postcondition: start is unchanged; returns the final state, or nil and a
// *PlanError naming the first operator that could not be applied.
func Replay(start *State, plan []Operator) (*State, error) {
	s := start.Clone()
	for i, op := range plan {
		if !op.Attempt(s) {
			return nil, &PlanError{Index: i, Op: op}
		}
	}
	return s, nil
}

// IsValid reports whether plan can be replayed from start and ends in a state
// goal accepts.
func IsValid(plan []Operator, start *State, goal *Goal) bool {
	final, err := Replay(start, plan)
	return err == nil && goal.Accepts(final)
}
