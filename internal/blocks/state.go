package blocks

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidLayout is returned when an initial layout cannot be built by
// legal moves.
var ErrInvalidLayout = errors.New("invalid block layout")

// LayoutError reports the first pair of an initial layout that could not be
// applied.
type LayoutError struct {
	Index int
	Pair  Pair
	// Reason is a short human-readable explanation.
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("blocks.StateFrom: pair %d %s: %s", e.Index, e.Pair, e.Reason)
}

func (e *LayoutError) Unwrap() error { return ErrInvalidLayout }

// State is a mutable snapshot of the world.
//
// Invariant: every block is in exactly one of stacks (as a key), table, or
// holding; a block is in clear iff no stacks entry points at it and it is not
// held; at most one block is held.
type State struct {
	stacks  map[Block]Block
	table   map[Block]struct{}
	clear   map[Block]struct{}
	holding Block
	held    bool
}

// NewState returns a State with every block on the table and clear.
//
// Postcondition: nothing is held; duplicates in blocks are collapsed.
func NewState(blocks []Block) *State {
	s := &State{
		stacks: make(map[Block]Block),
		table:  make(map[Block]struct{}, len(blocks)),
		clear:  make(map[Block]struct{}, len(blocks)),
	}
	for _, b := range blocks {
		s.table[b] = struct{}{}
		s.clear[b] = struct{}{}
	}
	return s
}

// StateFrom builds a State from blocks resting on the table plus an ordered
// list of pairs, each applied as PickUp(top) followed by Stack(top, bottom).
// Pairs must be supplied bottom-up: a pair's bottom must already be in place
// and clear when the pair is applied.
//
// Postcondition: returns a State satisfying every pair, or nil and an error
// wrapping ErrInvalidLayout. A block named twice (in table and as a top, or
// as the top of two pairs) is rejected.
func StateFrom(table []Block, pairs []Pair) (*State, error) {
	all := make([]Block, 0, len(table)+len(pairs))
	seen := make(map[Block]struct{}, cap(all))
	for _, b := range table {
		if _, dup := seen[b]; dup {
			return nil, fmt.Errorf("blocks.StateFrom: block %d listed twice on the table: %w", b, ErrInvalidLayout)
		}
		seen[b] = struct{}{}
		all = append(all, b)
	}
	for i, p := range pairs {
		if _, dup := seen[p.Top]; dup {
			return nil, &LayoutError{Index: i, Pair: p, Reason: "top block already placed"}
		}
		seen[p.Top] = struct{}{}
		all = append(all, p.Top)
	}

	s := NewState(all)
	for i, p := range pairs {
		if p.Top == p.Bottom {
			return nil, &LayoutError{Index: i, Pair: p, Reason: "block cannot rest on itself"}
		}
		if _, ok := seen[p.Bottom]; !ok {
			return nil, &LayoutError{Index: i, Pair: p, Reason: "bottom block is not part of the layout"}
		}
		if !s.PickUp(p.Top) {
			return nil, &LayoutError{Index: i, Pair: p, Reason: "top block is already supporting another block"}
		}
		if !s.Stack(p.Top, p.Bottom) {
			return nil, &LayoutError{Index: i, Pair: p, Reason: "bottom block is not clear"}
		}
	}
	return s, nil
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	c := &State{
		stacks:  make(map[Block]Block, len(s.stacks)),
		table:   make(map[Block]struct{}, len(s.table)),
		clear:   make(map[Block]struct{}, len(s.clear)),
		holding: s.holding,
		held:    s.held,
	}
	for k, v := range s.stacks {
		c.stacks[k] = v
	}
	for k := range s.table {
		c.table[k] = struct{}{}
	}
	for k := range s.clear {
		c.clear[k] = struct{}{}
	}
	return c
}

// Len returns the number of blocks in the world.
func (s *State) Len() int {
	n := len(s.stacks) + len(s.table)
	if s.held {
		n++
	}
	return n
}

// Blocks returns every block in a stable order: table blocks by increasing
// identifier, then stacked blocks by increasing identifier, then the held
// block if any.
func (s *State) Blocks() []Block {
	onTable := make([]Block, 0, len(s.table))
	for b := range s.table {
		onTable = append(onTable, b)
	}
	slices.Sort(onTable)

	stacked := make([]Block, 0, len(s.stacks))
	for b := range s.stacks {
		stacked = append(stacked, b)
	}
	slices.Sort(stacked)

	out := append(onTable, stacked...)
	if s.held {
		out = append(out, s.holding)
	}
	return out
}

// PositionOf returns On(x) when b rests on x, and Table otherwise. A held
// block reports Table.
func (s *State) PositionOf(b Block) Position {
	if x, ok := s.stacks[b]; ok {
		return On(x)
	}
	return Table
}

// Holding returns the held block and true, or false when the gripper is empty.
func (s *State) Holding() (Block, bool) {
	return s.holding, s.held
}

// IsClear reports whether nothing rests on b and b is not held.
func (s *State) IsClear(b Block) bool {
	_, ok := s.clear[b]
	return ok
}

func (s *State) onTable(b Block) bool {
	_, ok := s.table[b]
	return ok
}

// PickUp lifts b from the table.
//
// Precondition: nothing held, b on the table and clear; otherwise returns
// false and s is unchanged.
func (s *State) PickUp(b Block) bool {
	if s.held || !s.onTable(b) || !s.IsClear(b) {
		return false
	}
	s.holding, s.held = b, true
	delete(s.table, b)
	delete(s.clear, b)
	return true
}

// PutDown sets the held block b on the table.
//
// Precondition: b is the held block; otherwise returns false and s is
// unchanged.
func (s *State) PutDown(b Block) bool {
	if !s.held || s.holding != b {
		return false
	}
	s.clear[b] = struct{}{}
	s.table[b] = struct{}{}
	s.holding, s.held = 0, false
	return true
}

// Unstack lifts a off b.
//
// Precondition: nothing held, a rests on b and a is clear; otherwise returns
// false and s is unchanged.
func (s *State) Unstack(a, b Block) bool {
	if s.held || s.PositionOf(a) != On(b) || !s.IsClear(a) {
		return false
	}
	s.holding, s.held = a, true
	s.clear[b] = struct{}{}
	delete(s.clear, a)
	delete(s.stacks, a)
	return true
}

// Stack sets the held block a on b.
//
// Precondition: a is held and b is clear; otherwise returns false and s is
// unchanged.
func (s *State) Stack(a, b Block) bool {
	if !s.held || s.holding != a || !s.IsClear(b) {
		return false
	}
	s.holding, s.held = 0, false
	delete(s.clear, b)
	s.clear[a] = struct{}{}
	s.stacks[a] = b
	return true
}

// Equal reports whether s and o describe the same world.
func (s *State) Equal(o *State) bool {
	if s.held != o.held || (s.held && s.holding != o.holding) {
		return false
	}
	if len(s.stacks) != len(o.stacks) || len(s.table) != len(o.table) || len(s.clear) != len(o.clear) {
		return false
	}
	for k, v := range s.stacks {
		if w, ok := o.stacks[k]; !ok || w != v {
			return false
		}
	}
	for k := range s.table {
		if !o.onTable(k) {
			return false
		}
	}
	for k := range s.clear {
		if !o.IsClear(k) {
			return false
		}
	}
	return true
}

// CheckInvariants verifies the coupling between the four indexes.
//
// Postcondition: nil iff the State invariant holds.
func (s *State) CheckInvariants() error {
	var errs []string
	covered := make(map[Block]struct{}, s.Len())
	for b := range s.stacks {
		if s.onTable(b) {
			errs = append(errs, fmt.Sprintf("block %d both stacked and on the table", b))
		}
		covered[b] = struct{}{}
	}
	for b := range s.table {
		covered[b] = struct{}{}
	}
	if s.held {
		if _, dup := covered[s.holding]; dup {
			errs = append(errs, fmt.Sprintf("held block %d is also placed", s.holding))
		}
		covered[s.holding] = struct{}{}
	}

	supporting := make(map[Block]struct{}, len(s.stacks))
	for top, bottom := range s.stacks {
		if _, dup := supporting[bottom]; dup {
			errs = append(errs, fmt.Sprintf("block %d supports more than one block", bottom))
		}
		supporting[bottom] = struct{}{}
		if _, ok := covered[bottom]; !ok {
			errs = append(errs, fmt.Sprintf("block %d rests on unknown block %d", top, bottom))
		}
	}
	for b := range covered {
		_, under := supporting[b]
		wantClear := !under && !(s.held && s.holding == b)
		if s.IsClear(b) != wantClear {
			errs = append(errs, fmt.Sprintf("block %d clear=%v, want %v", b, s.IsClear(b), wantClear))
		}
	}
	for b := range s.clear {
		if _, ok := covered[b]; !ok {
			errs = append(errs, fmt.Sprintf("clear block %d is not in the world", b))
		}
	}
	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("blocks.State: %s", strings.Join(errs, "; "))
	}
	return nil
}

// String renders the state compactly for logs, e.g. "[0 1] 2/0 held=3".
func (s *State) String() string {
	var sb strings.Builder
	onTable := make([]Block, 0, len(s.table))
	for b := range s.table {
		onTable = append(onTable, b)
	}
	slices.Sort(onTable)
	fmt.Fprintf(&sb, "%v", onTable)

	stacked := make([]Block, 0, len(s.stacks))
	for b := range s.stacks {
		stacked = append(stacked, b)
	}
	slices.Sort(stacked)
	for _, b := range stacked {
		fmt.Fprintf(&sb, " %d/%d", b, s.stacks[b])
	}
	if s.held {
		fmt.Fprintf(&sb, " held=%d", s.holding)
	}
	return sb.String()
}
