package blocks

import (
	"fmt"

	"github.com/cory-johannsen/blocks/internal/htn"
)

// MethodKind names one of the blocks decomposition methods.
type MethodKind int

const (
	// MethodMoveBlocks is the top-level, recursive method.
	MethodMoveBlocks MethodKind = iota
	// MethodRelocate moves one block to a destination.
	MethodRelocate
	// MethodAcquire takes a clear block into the gripper.
	MethodAcquire
	// MethodPlace sets the held block down at a destination.
	MethodPlace
)

var methodKindNames = [...]string{"MoveBlocks", "Relocate", "Acquire", "Place"}

func (k MethodKind) String() string {
	if k < 0 || int(k) >= len(methodKindNames) {
		return fmt.Sprintf("MethodKind(%d)", int(k))
	}
	return methodKindNames[k]
}

// Task is a blocks task: an Operator or a Method.
type Task = htn.Task[Operator, Method]

// Decomposition is the result of applying a blocks Method.
type Decomposition = htn.Decomposition[Operator, Method]

// Method is an abstract blocks task. Block and Dest are unused by
// MethodMoveBlocks, and Dest is unused by MethodAcquire.
type Method struct {
	Kind  MethodKind
	Block Block
	Dest  Position
}

// MoveBlocks returns the top-level method.
func MoveBlocks() Method { return Method{Kind: MethodMoveBlocks} }

// Relocate returns the method moving b to dest.
func Relocate(b Block, dest Position) Method {
	return Method{Kind: MethodRelocate, Block: b, Dest: dest}
}

// Acquire returns the method taking b into the gripper.
func Acquire(b Block) Method { return Method{Kind: MethodAcquire, Block: b} }

// Place returns the method setting b down at dest.
func Place(b Block, dest Position) Method {
	return Method{Kind: MethodPlace, Block: b, Dest: dest}
}

func (m Method) String() string {
	switch m.Kind {
	case MethodMoveBlocks:
		return m.Kind.String()
	case MethodAcquire:
		return fmt.Sprintf("%s(%d)", m.Kind, m.Block)
	default:
		return fmt.Sprintf("%s(%d, %s)", m.Kind, m.Block, m.Dest)
	}
}

// Candidates lists the concrete variants of m. Every blocks method is
// already concrete, so the list is m itself.
func (m Method) Candidates(_ *State, _ *Goal) []Method {
	return []Method{m}
}

// Apply decomposes m in state.
func (m Method) Apply(state *State, goal *Goal) Decomposition {
	switch m.Kind {
	case MethodMoveBlocks:
		return moveBlocks(state, goal)
	case MethodRelocate:
		return htn.Expand([]Task{
			htn.Abstract[Operator](Acquire(m.Block)),
			htn.Abstract[Operator](Place(m.Block, m.Dest)),
		})
	case MethodAcquire:
		return acquire(state, m.Block)
	case MethodPlace:
		return place(state, m.Block, m.Dest)
	default:
		return htn.Failure[Operator, Method]()
	}
}

// moveBlocks commits to the first block that can go straight to its
// destination. When none can, it offers one alternative per waiting block
// that still rests on another block: lifting it to the table frees whatever
// it covers. A waiting block already on the table is skipped because
// relocating it to the table changes nothing.
func moveBlocks(state *State, goal *Goal) Decomposition {
	statuses := ClassifyAll(state, goal)
	for _, st := range statuses {
		if st.Kind == StatusMove {
			return htn.Expand([]Task{
				htn.Abstract[Operator](Relocate(st.Block, st.Dest)),
				htn.Abstract[Operator](MoveBlocks()),
			})
		}
	}

	var alts [][]Task
	for _, st := range statuses {
		if st.Kind != StatusWaiting || state.PositionOf(st.Block).IsTable() {
			continue
		}
		alts = append(alts, []Task{
			htn.Abstract[Operator](Relocate(st.Block, Table)),
			htn.Abstract[Operator](MoveBlocks()),
		})
	}
	if len(alts) > 0 {
		return htn.Expand(alts...)
	}
	if goal.Accepts(state) {
		return htn.Done[Operator, Method]()
	}
	return htn.Failure[Operator, Method]()
}

func acquire(state *State, b Block) Decomposition {
	if !state.IsClear(b) {
		return htn.Failure[Operator, Method]()
	}
	if support, ok := state.PositionOf(b).Support(); ok {
		return htn.Expand([]Task{htn.Prim[Operator, Method](Unstack(b, support))})
	}
	return htn.Expand([]Task{htn.Prim[Operator, Method](PickUp(b))})
}

func place(state *State, b Block, dest Position) Decomposition {
	if _, held := state.Holding(); !held {
		return htn.Failure[Operator, Method]()
	}
	if support, ok := dest.Support(); ok {
		return htn.Expand([]Task{htn.Prim[Operator, Method](Stack(b, support))})
	}
	return htn.Expand([]Task{htn.Prim[Operator, Method](PutDown(b))})
}
