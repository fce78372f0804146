package blocks

import "fmt"

// StatusKind is the classification of one block.
type StatusKind int

const (
	// StatusDone: the block and everything under it are where the goal wants.
	StatusDone StatusKind = iota
	// StatusInaccessible: something rests on the block.
	StatusInaccessible
	// StatusMove: the block can go straight to its destination.
	StatusMove
	// StatusWaiting: the block is clear but its destination is not ready.
	StatusWaiting
)

var statusKindNames = [...]string{"Done", "Inaccessible", "Move", "Waiting"}

func (k StatusKind) String() string {
	if k < 0 || int(k) >= len(statusKindNames) {
		return fmt.Sprintf("StatusKind(%d)", int(k))
	}
	return statusKindNames[k]
}

// Status is the transient classification of Block. Dest is meaningful only
// for StatusMove.
type Status struct {
	Kind  StatusKind
	Block Block
	Dest  Position
}

func (s Status) String() string {
	if s.Kind == StatusMove {
		return fmt.Sprintf("Move(%d, %s)", s.Block, s.Dest)
	}
	return fmt.Sprintf("%s(%d)", s.Kind, s.Block)
}

// IsDone reports whether b sits where goal wants it and, recursively, so does
// its support.
//
// The walk follows state's support chain, which always ends at the table, so
// it terminates even for a cyclic goal.
func IsDone(b Block, state *State, goal *Goal) bool {
	for {
		pos := state.PositionOf(b)
		if pos != goal.PositionOf(b) {
			return false
		}
		support, ok := pos.Support()
		if !ok {
			return true
		}
		b = support
	}
}

// Classify computes the status of b.
func Classify(b Block, state *State, goal *Goal) Status {
	if IsDone(b, state, goal) {
		return Status{Kind: StatusDone, Block: b}
	}
	if !state.IsClear(b) {
		return Status{Kind: StatusInaccessible, Block: b}
	}
	dest := goal.PositionOf(b)
	support, ok := dest.Support()
	if !ok {
		return Status{Kind: StatusMove, Block: b, Dest: Table}
	}
	if IsDone(support, state, goal) && state.IsClear(support) {
		return Status{Kind: StatusMove, Block: b, Dest: dest}
	}
	return Status{Kind: StatusWaiting, Block: b}
}

// ClassifyAll classifies every block of state in State.Blocks order.
func ClassifyAll(state *State, goal *Goal) []Status {
	blocks := state.Blocks()
	out := make([]Status, len(blocks))
	for i, b := range blocks {
		out[i] = Classify(b, state, goal)
	}
	return out
}
