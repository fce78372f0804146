// Package htn implements a depth-first hierarchical task network decomposer.
//
// Domains plug in through four narrow contracts: a cloneable state, primitive
// operators that guard their own effects, methods that return alternative
// task lists, and a goal that supplies the starting tasks and accepts final
// states. The decomposer commits to the first alternative of each method,
// backtracking to the next one when a branch fails.
package htn

// Cloner is satisfied by states that can be duplicated cheaply. Every branch
// of the search works on its own clone.
type Cloner[S any] interface {
	Clone() S
}

// Operator is a primitive action.
//
// Postcondition: Attempt returns false and leaves state unchanged when the
// operator's precondition does not hold.
type Operator[S any] interface {
	Attempt(state S) bool
}

// Method decomposes an abstract task given the current state and goal.
type Method[S, G, O, M any] interface {
	Apply(state S, goal G) Decomposition[O, M]
}

// Goal supplies the root tasks of a search and recognises solved states.
type Goal[S, O, M any] interface {
	StartingTasks() []Task[O, M]
	Accepts(state S) bool
}

// Estimator is implemented by goals that can rank states; lower is closer.
// FindFirstPlan logs the start state's distance when the goal provides one.
type Estimator[S any] interface {
	Distance(state S) int
}

// Candidater is implemented by methods that stand for several concrete
// variants. The driver tries each variant in order as a separate
// alternative; a method returning only itself is applied directly.
type Candidater[S, G, M any] interface {
	Candidates(state S, goal G) []M
}

// Task is either a primitive operator or an abstract method.
type Task[O, M any] struct {
	op       O
	method   M
	isMethod bool
}

// Prim wraps an operator as a task.
func Prim[O, M any](op O) Task[O, M] {
	return Task[O, M]{op: op}
}

// Abstract wraps a method as a task.
func Abstract[O, M any](m M) Task[O, M] {
	return Task[O, M]{method: m, isMethod: true}
}

// Operator returns the wrapped operator and true for primitive tasks.
func (t Task[O, M]) Operator() (O, bool) {
	return t.op, !t.isMethod
}

// Method returns the wrapped method and true for abstract tasks.
func (t Task[O, M]) Method() (M, bool) {
	return t.method, t.isMethod
}

// Outcome classifies the result of applying a method.
type Outcome int

const (
	// Expanded means the method offered one or more alternative task lists.
	Expanded Outcome = iota
	// PlanFound means the method has nothing left to contribute because its
	// objective already holds.
	PlanFound
	// Failed means the method has no legal decomposition in this state.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Expanded:
		return "expanded"
	case PlanFound:
		return "plan_found"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Decomposition is the answer a method gives for one state.
//
// Invariant: Alternatives is non-empty iff Outcome == Expanded.
type Decomposition[O, M any] struct {
	Outcome      Outcome
	Alternatives [][]Task[O, M]
}

// Expand returns an Expanded decomposition offering alts in preference order.
// With no alternatives it degrades to Failure.
func Expand[O, M any](alts ...[]Task[O, M]) Decomposition[O, M] {
	if len(alts) == 0 {
		return Failure[O, M]()
	}
	return Decomposition[O, M]{Outcome: Expanded, Alternatives: alts}
}

// Done returns a PlanFound decomposition.
func Done[O, M any]() Decomposition[O, M] {
	return Decomposition[O, M]{Outcome: PlanFound}
}

// Failure returns a Failed decomposition.
func Failure[O, M any]() Decomposition[O, M] {
	return Decomposition[O, M]{Outcome: Failed}
}
