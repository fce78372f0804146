package blocks

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cory-johannsen/blocks/internal/htn"
)

// ErrInvalidGoal is returned by Goal.Validate.
var ErrInvalidGoal = errors.New("invalid goal")

// Goal maps each constrained block to its desired support. Blocks absent from
// the mapping are unconstrained and conventionally belong on the table.
//
// Invariant: immutable after NewGoal.
type Goal struct {
	stacks map[Block]Block
}

// NewGoal builds a Goal from the desired top/bottom pairs. A later pair for
// the same top replaces an earlier one.
func NewGoal(pairs []Pair) *Goal {
	g := &Goal{stacks: make(map[Block]Block, len(pairs))}
	for _, p := range pairs {
		g.stacks[p.Top] = p.Bottom
	}
	return g
}

// PositionOf returns the desired position of b; Table when unconstrained.
func (g *Goal) PositionOf(b Block) Position {
	if x, ok := g.stacks[b]; ok {
		return On(x)
	}
	return Table
}

// Pairs returns the goal's pairs ordered by top block.
func (g *Goal) Pairs() []Pair {
	out := make([]Pair, 0, len(g.stacks))
	for top, bottom := range g.stacks {
		out = append(out, Pair{Top: top, Bottom: bottom})
	}
	slices.SortFunc(out, func(a, b Pair) int { return int(a.Top) - int(b.Top) })
	return out
}

// Accepts reports whether every goal pair holds exactly in state.
func (g *Goal) Accepts(state *State) bool {
	for top, bottom := range g.stacks {
		if state.PositionOf(top) != On(bottom) {
			return false
		}
	}
	return true
}

// Distance counts the blocks of state that are not Done. Zero means the goal
// is reached.
func (g *Goal) Distance(state *State) int {
	n := 0
	for _, b := range state.Blocks() {
		if !IsDone(b, state, g) {
			n++
		}
	}
	return n
}

// StartingTasks returns the root task list of a blocks search.
func (g *Goal) StartingTasks() []htn.Task[Operator, Method] {
	return []htn.Task[Operator, Method]{htn.Abstract[Operator](MoveBlocks())}
}

// Validate checks that the goal can be satisfied at all: no block is its own
// support, no two blocks want the same support, and every chain of desired
// supports ends at the table.
//
// Postcondition: nil, or an error wrapping ErrInvalidGoal.
func (g *Goal) Validate() error {
	claimed := make(map[Block]Block, len(g.stacks))
	for _, p := range g.Pairs() {
		if p.Top == p.Bottom {
			return fmt.Errorf("blocks.Goal: block %d cannot rest on itself: %w", p.Top, ErrInvalidGoal)
		}
		if other, dup := claimed[p.Bottom]; dup {
			return fmt.Errorf("blocks.Goal: blocks %d and %d both want to rest on %d: %w", other, p.Top, p.Bottom, ErrInvalidGoal)
		}
		claimed[p.Bottom] = p.Top
	}
	for _, p := range g.Pairs() {
		seen := map[Block]struct{}{p.Top: {}}
		for b, ok := g.stacks[p.Top]; ok; b, ok = g.stacks[b] {
			if _, loop := seen[b]; loop {
				return fmt.Errorf("blocks.Goal: support chain from %d is cyclic: %w", p.Top, ErrInvalidGoal)
			}
			seen[b] = struct{}{}
		}
	}
	return nil
}
