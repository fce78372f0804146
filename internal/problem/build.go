package problem

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/blocks/internal/blocks"
)

// Instance is a loaded problem: the start state, the goal, and the symbolic
// names of the blocks.
//
// Invariant: Names[b] is the declared name of block b; identifiers are dense
// from 0 in first-seen declaration order.
type Instance struct {
	Name  string
	Names []string
	Start *blocks.State
	Goal  *blocks.Goal

	ids map[string]blocks.Block
}

// ID returns the block identifier of the named object.
func (in *Instance) ID(name string) (blocks.Block, bool) {
	b, ok := in.ids[strings.ToLower(name)]
	return b, ok
}

// BlockName returns the declared name of b, or its number when b is unknown.
func (in *Instance) BlockName(b blocks.Block) string {
	if int(b) >= 0 && int(b) < len(in.Names) {
		return in.Names[b]
	}
	return fmt.Sprintf("#%d", int(b))
}

// FormatAction renders op with object names, e.g. "unstack a b".
func (in *Instance) FormatAction(op blocks.Operator) string {
	switch op.Kind {
	case blocks.OpPickUp:
		return "pick-up " + in.BlockName(op.A)
	case blocks.OpPutDown:
		return "put-down " + in.BlockName(op.A)
	case blocks.OpStack:
		return "stack " + in.BlockName(op.A) + " " + in.BlockName(op.B)
	case blocks.OpUnstack:
		return "unstack " + in.BlockName(op.A) + " " + in.BlockName(op.B)
	default:
		return op.String()
	}
}

// FormatPlan renders every operator of plan with FormatAction.
func (in *Instance) FormatPlan(plan []blocks.Operator) []string {
	out := make([]string, len(plan))
	for i, op := range plan {
		out[i] = in.FormatAction(op)
	}
	return out
}

// ParseAction reads an action in FormatAction's form. Parentheses are
// optional, names are case-insensitive, and "pickup"/"putdown" are accepted.
func (in *Instance) ParseAction(line string) (blocks.Operator, error) {
	fields := strings.Fields(strings.ToLower(strings.Trim(strings.TrimSpace(line), "()")))
	if len(fields) == 0 {
		return blocks.Operator{}, fmt.Errorf("%w: empty action", ErrSyntax)
	}
	args := make([]blocks.Block, 0, 2)
	for _, name := range fields[1:] {
		b, ok := in.ids[name]
		if !ok {
			return blocks.Operator{}, &LoadError{Predicate: line, Object: name, Err: ErrUndeclaredObject}
		}
		args = append(args, b)
	}
	arity := func(n int) error {
		if len(args) != n {
			return &LoadError{Predicate: line, Err: fmt.Errorf("%w: %s takes %d argument(s)", ErrSyntax, fields[0], n)}
		}
		return nil
	}
	switch fields[0] {
	case "pick-up", "pickup":
		if err := arity(1); err != nil {
			return blocks.Operator{}, err
		}
		return blocks.PickUp(args[0]), nil
	case "put-down", "putdown":
		if err := arity(1); err != nil {
			return blocks.Operator{}, err
		}
		return blocks.PutDown(args[0]), nil
	case "stack":
		if err := arity(2); err != nil {
			return blocks.Operator{}, err
		}
		return blocks.Stack(args[0], args[1]), nil
	case "unstack":
		if err := arity(2); err != nil {
			return blocks.Operator{}, err
		}
		return blocks.Unstack(args[0], args[1]), nil
	default:
		return blocks.Operator{}, &LoadError{Predicate: line, Err: fmt.Errorf("%w: unknown action %q", ErrSyntax, fields[0])}
	}
}

// ParsePlan reads one action per line, skipping blank lines and lines
// starting with ';' or '#'.
func (in *Instance) ParsePlan(text string) ([]blocks.Operator, error) {
	var plan []blocks.Operator
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		op, err := in.ParseAction(line)
		if err != nil {
			return nil, err
		}
		plan = append(plan, op)
	}
	return plan, nil
}

// Build converts p into an Instance.
//
// Objects receive identifiers in first-seen order; a repeated object keeps
// its first identifier. ontable(x) literals form the table list and on(x, y)
// literals form the support pairs in the order given, so a pair whose bottom
// is not yet placed fails. clear and hand-empty literals are ignored. Goal
// literals must all be on(x, y).
//
// Postcondition: Returns a non-nil Instance or a *LoadError.
func Build(p *Problem) (*Instance, error) {
	in := &Instance{Name: p.Name, ids: make(map[string]blocks.Block, len(p.Objects))}
	for _, name := range p.Objects {
		key := strings.ToLower(name)
		if _, seen := in.ids[key]; seen {
			continue
		}
		in.ids[key] = blocks.Block(len(in.Names))
		in.Names = append(in.Names, key)
	}

	var table []blocks.Block
	var pairs []blocks.Pair
	placed := make(map[blocks.Block]bool, len(in.Names))
	for _, pred := range p.Init {
		name := strings.ToLower(pred.Name)
		switch {
		case name == PredOnTable:
			args, err := in.resolve(pred, 1)
			if err != nil {
				return nil, err
			}
			table = append(table, args[0])
			placed[args[0]] = true
		case name == PredOn:
			args, err := in.resolve(pred, 2)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, blocks.Pair{Top: args[0], Bottom: args[1]})
			placed[args[0]] = true
		case ignoredInit[name]:
		default:
			return nil, &LoadError{Predicate: pred.String(), Err: ErrUnsupportedPredicate}
		}
	}
	for b, name := range in.Names {
		if !placed[blocks.Block(b)] {
			return nil, &LoadError{Object: name, Err: fmt.Errorf("%w: object is not placed by the initial state", blocks.ErrInvalidLayout)}
		}
	}

	start, err := blocks.StateFrom(table, pairs)
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	var goal []blocks.Pair
	for _, pred := range p.Goal {
		if strings.ToLower(pred.Name) != PredOn {
			return nil, &LoadError{Predicate: pred.String(), Err: ErrUnsupportedPredicate}
		}
		args, err := in.resolve(pred, 2)
		if err != nil {
			return nil, err
		}
		goal = append(goal, blocks.Pair{Top: args[0], Bottom: args[1]})
	}
	g := blocks.NewGoal(goal)
	if err := g.Validate(); err != nil {
		return nil, &LoadError{Err: err}
	}

	in.Start = start
	in.Goal = g
	return in, nil
}

// resolve maps pred's arguments to block identifiers.
func (in *Instance) resolve(pred Predicate, arity int) ([]blocks.Block, error) {
	if len(pred.Args) != arity {
		return nil, &LoadError{
			Predicate: pred.String(),
			Err:       fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrSyntax, pred.Name, arity, len(pred.Args)),
		}
	}
	out := make([]blocks.Block, arity)
	for i, name := range pred.Args {
		b, ok := in.ids[strings.ToLower(name)]
		if !ok {
			return nil, &LoadError{Predicate: pred.String(), Object: name, Err: ErrUndeclaredObject}
		}
		out[i] = b
	}
	return out, nil
}
