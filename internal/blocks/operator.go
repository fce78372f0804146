package blocks

import "fmt"

// OpKind names one of the four primitive actions.
type OpKind int

const (
	OpPickUp OpKind = iota
	OpPutDown
	OpStack
	OpUnstack
)

var opKindNames = [...]string{"PickUp", "PutDown", "Stack", "Unstack"}

func (k OpKind) String() string {
	if k < 0 || int(k) >= len(opKindNames) {
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
	return opKindNames[k]
}

// Operator is a primitive action. It is plain comparable data; its effect is
// applied with Attempt.
type Operator struct {
	Kind OpKind
	A    Block
	// B is the second operand of Stack and Unstack; zero otherwise.
	B Block
}

// PickUp lifts b from the table.
func PickUp(b Block) Operator { return Operator{Kind: OpPickUp, A: b} }

// PutDown sets the held block b on the table.
func PutDown(b Block) Operator { return Operator{Kind: OpPutDown, A: b} }

// Stack sets the held block a on b.
func Stack(a, b Block) Operator { return Operator{Kind: OpStack, A: a, B: b} }

// Unstack lifts a off b.
func Unstack(a, b Block) Operator { return Operator{Kind: OpUnstack, A: a, B: b} }

// Attempt applies the operator to state.
//
// Postcondition: returns false and leaves state unchanged when the
// precondition fails.
func (o Operator) Attempt(state *State) bool {
	switch o.Kind {
	case OpPickUp:
		return state.PickUp(o.A)
	case OpPutDown:
		return state.PutDown(o.A)
	case OpStack:
		return state.Stack(o.A, o.B)
	case OpUnstack:
		return state.Unstack(o.A, o.B)
	default:
		return false
	}
}

// Compare orders operators by kind, then operands.
func (o Operator) Compare(other Operator) int {
	switch {
	case o.Kind != other.Kind:
		return int(o.Kind) - int(other.Kind)
	case o.A != other.A:
		return int(o.A) - int(other.A)
	default:
		return int(o.B) - int(other.B)
	}
}

func (o Operator) String() string {
	switch o.Kind {
	case OpStack, OpUnstack:
		return fmt.Sprintf("%s(%d, %d)", o.Kind, o.A, o.B)
	default:
		return fmt.Sprintf("%s(%d)", o.Kind, o.A)
	}
}
