package blocks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/blocks/internal/blocks"
	"github.com/cory-johannsen/blocks/internal/htn"
)

func TestMoveBlocks_ScenarioA_ExactPlan(t *testing.T) {
	start, err := blocks.StateFrom([]blocks.Block{B, C}, []blocks.Pair{{Top: A, Bottom: B}})
	require.NoError(t, err)
	goal := blocks.NewGoal([]blocks.Pair{{Top: A, Bottom: B}, {Top: B, Bottom: C}})

	plan := solve(t, start, goal)
	assert.Equal(t, []blocks.Operator{
		blocks.Unstack(A, B), blocks.PutDown(A),
		blocks.PickUp(B), blocks.Stack(B, C),
		blocks.PickUp(A), blocks.Stack(A, B),
	}, plan)
	assert.True(t, blocks.IsValid(plan, start, goal))
}

func TestMoveBlocks_ScenarioB_Validates(t *testing.T) {
	start, err := blocks.StateFrom([]blocks.Block{C, D}, []blocks.Pair{{Top: A, Bottom: C}, {Top: B, Bottom: D}})
	require.NoError(t, err)
	goal := blocks.NewGoal([]blocks.Pair{{Top: B, Bottom: C}, {Top: A, Bottom: D}})

	plan := solve(t, start, goal)
	assert.True(t, blocks.IsValid(plan, start, goal))
}

func bigScenario(t *testing.T) (*blocks.State, *blocks.Goal) {
	t.Helper()
	start, err := blocks.StateFrom([]blocks.Block{B, F, M, O}, []blocks.Pair{
		{Top: C, Bottom: B}, {Top: P, Bottom: C}, {Top: Q, Bottom: P}, {Top: R, Bottom: Q}, {Top: S, Bottom: R},
		{Top: G, Bottom: F}, {Top: H, Bottom: G}, {Top: I, Bottom: H},
		{Top: L, Bottom: M}, {Top: A, Bottom: L},
		{Top: N, Bottom: O}, {Top: D, Bottom: N}, {Top: E, Bottom: D}, {Top: J, Bottom: E}, {Top: K, Bottom: J},
	})
	require.NoError(t, err)
	goal := blocks.NewGoal([]blocks.Pair{
		{Top: O, Bottom: M}, {Top: M, Bottom: H}, {Top: H, Bottom: I}, {Top: I, Bottom: D}, {Top: L, Bottom: B},
		{Top: B, Bottom: C}, {Top: C, Bottom: P}, {Top: P, Bottom: K}, {Top: K, Bottom: G}, {Top: G, Bottom: F},
	})
	require.NoError(t, goal.Validate())
	return start, goal
}

func TestMoveBlocks_ScenarioC_TerminatesWithinDepth(t *testing.T) {
	start, goal := bigScenario(t)
	plan, stats, err := htn.FindFirstPlan(context.Background(), newPlanner(htn.DefaultMaxDepth), start, goal, goal.StartingTasks())
	require.NoError(t, err)
	assert.True(t, blocks.IsValid(plan, start, goal))
	assert.LessOrEqual(t, stats.DepthReached, htn.DefaultMaxDepth)
	assert.Zero(t, stats.Cutoffs)
}

func TestMoveBlocks_AlreadySolvedIsEmptyPlan(t *testing.T) {
	start, err := blocks.StateFrom([]blocks.Block{B}, []blocks.Pair{{Top: A, Bottom: B}})
	require.NoError(t, err)
	goal := blocks.NewGoal([]blocks.Pair{{Top: A, Bottom: B}})
	plan := solve(t, start, goal)
	assert.Empty(t, plan)
	assert.NotNil(t, plan)
}

func TestMoveBlocks_FirstMoveIsDeterministic(t *testing.T) {
	s := blocks.NewState([]blocks.Block{A, B, C})
	g := blocks.NewGoal([]blocks.Pair{{Top: A, Bottom: C}, {Top: B, Bottom: A}})
	d := blocks.MoveBlocks().Apply(s, g)
	require.Equal(t, htn.Expanded, d.Outcome)
	require.Len(t, d.Alternatives, 1)
	m, ok := d.Alternatives[0][0].Method()
	require.True(t, ok)
	assert.Equal(t, blocks.Relocate(A, blocks.On(C)), m)
	next, ok := d.Alternatives[0][1].Method()
	require.True(t, ok)
	assert.Equal(t, blocks.MoveBlocks(), next)
}

func TestMoveBlocks_OneAlternativePerStackedWaitingBlock(t *testing.T) {
	// A on C and B on D; each wants the other's support, so neither can move
	// straight away.
	s, err := blocks.StateFrom([]blocks.Block{C, D}, []blocks.Pair{{Top: A, Bottom: C}, {Top: B, Bottom: D}})
	require.NoError(t, err)
	g := blocks.NewGoal([]blocks.Pair{{Top: B, Bottom: C}, {Top: A, Bottom: D}})

	d := blocks.MoveBlocks().Apply(s, g)
	require.Equal(t, htn.Expanded, d.Outcome)
	require.Len(t, d.Alternatives, 2)
	first, _ := d.Alternatives[0][0].Method()
	second, _ := d.Alternatives[1][0].Method()
	assert.Equal(t, blocks.Relocate(A, blocks.Table), first)
	assert.Equal(t, blocks.Relocate(B, blocks.Table), second)
}

func TestMoveBlocks_DoneWhenAccepted(t *testing.T) {
	s := blocks.NewState([]blocks.Block{A, B})
	g := blocks.NewGoal(nil)
	assert.Equal(t, htn.PlanFound, blocks.MoveBlocks().Apply(s, g).Outcome)
}

func TestMoveBlocks_FailsWhenGoalUnreachable(t *testing.T) {
	// Both A and B want C; once one is there the other can never move.
	s, err := blocks.StateFrom([]blocks.Block{B, C}, []blocks.Pair{{Top: A, Bottom: C}})
	require.NoError(t, err)
	g := blocks.NewGoal([]blocks.Pair{{Top: A, Bottom: C}, {Top: B, Bottom: C}})
	assert.Equal(t, htn.Failed, blocks.MoveBlocks().Apply(s, g).Outcome)
}

func TestRelocate_AcquireThenPlace(t *testing.T) {
	d := blocks.Relocate(A, blocks.On(B)).Apply(blocks.NewState([]blocks.Block{A, B}), blocks.NewGoal(nil))
	require.Equal(t, htn.Expanded, d.Outcome)
	require.Len(t, d.Alternatives, 1)
	require.Len(t, d.Alternatives[0], 2)
	get, _ := d.Alternatives[0][0].Method()
	put, _ := d.Alternatives[0][1].Method()
	assert.Equal(t, blocks.Acquire(A), get)
	assert.Equal(t, blocks.Place(A, blocks.On(B)), put)
}

func TestAcquire(t *testing.T) {
	s, err := blocks.StateFrom([]blocks.Block{B}, []blocks.Pair{{Top: A, Bottom: B}})
	require.NoError(t, err)
	g := blocks.NewGoal(nil)

	assert.Equal(t, htn.Failed, blocks.Acquire(B).Apply(s, g).Outcome, "B is covered")

	d := blocks.Acquire(A).Apply(s, g)
	require.Equal(t, htn.Expanded, d.Outcome)
	op, ok := d.Alternatives[0][0].Operator()
	require.True(t, ok)
	assert.Equal(t, blocks.Unstack(A, B), op)

	table := blocks.NewState([]blocks.Block{C})
	op, _ = blocks.Acquire(C).Apply(table, g).Alternatives[0][0].Operator()
	assert.Equal(t, blocks.PickUp(C), op)
}

func TestPlace(t *testing.T) {
	s := blocks.NewState([]blocks.Block{A, B})
	g := blocks.NewGoal(nil)
	assert.Equal(t, htn.Failed, blocks.Place(A, blocks.Table).Apply(s, g).Outcome, "nothing held")

	require.True(t, s.PickUp(A))
	op, ok := blocks.Place(A, blocks.Table).Apply(s, g).Alternatives[0][0].Operator()
	require.True(t, ok)
	assert.Equal(t, blocks.PutDown(A), op)
	op, _ = blocks.Place(A, blocks.On(B)).Apply(s, g).Alternatives[0][0].Operator()
	assert.Equal(t, blocks.Stack(A, B), op)
}

// relocate applies the Acquire and Place primitives for b directly.
func relocate(t *rapid.T, s *blocks.State, g *blocks.Goal, b blocks.Block, dest blocks.Position) {
	for _, m := range []blocks.Method{blocks.Acquire(b), blocks.Place(b, dest)} {
		d := m.Apply(s, g)
		if d.Outcome != htn.Expanded {
			t.Fatalf("%s: outcome %s", m, d.Outcome)
		}
		op, _ := d.Alternatives[0][0].Operator()
		if !op.Attempt(s) {
			t.Fatalf("%s: %s failed in %s", m, op, s)
		}
	}
}

func TestProperty_MoveBranch_StrictlyReducesDistance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "n")
		table, pairs := drawTowers(rt, n, "start")
		_, goalPairs := drawTowers(rt, n, "goal")
		s, err := blocks.StateFrom(table, pairs)
		if err != nil {
			rt.Fatalf("StateFrom: %v", err)
		}
		g := blocks.NewGoal(goalPairs)

		for step := 0; step < n*(n+2); step++ {
			d := blocks.MoveBlocks().Apply(s, g)
			if d.Outcome == htn.PlanFound {
				if !g.Accepts(s) {
					rt.Fatalf("PlanFound in unaccepted state %s", s)
				}
				return
			}
			if d.Outcome != htn.Expanded {
				rt.Fatalf("step %d: outcome %s in %s", step, d.Outcome, s)
			}
			m, _ := d.Alternatives[0][0].Method()
			before := g.Distance(s)
			relocate(rt, s, g, m.Block, m.Dest)
			if len(d.Alternatives) == 1 && m.Dest == g.PositionOf(m.Block) {
				if after := g.Distance(s); after >= before {
					rt.Fatalf("step %d: %s left distance at %d (was %d)", step, m, after, before)
				}
			}
		}
		rt.Fatalf("no solution after %d relocations", n*(n+2))
	})
}

func TestProperty_Plans_ReplayAsValid(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "n")
		table, pairs := drawTowers(rt, n, "start")
		_, goalPairs := drawTowers(rt, n, "goal")
		start, err := blocks.StateFrom(table, pairs)
		if err != nil {
			rt.Fatalf("StateFrom: %v", err)
		}
		goal := blocks.NewGoal(goalPairs)
		snapshot := start.Clone()

		plan, _, err := htn.FindFirstPlan(context.Background(), newPlanner(0), start, goal, goal.StartingTasks())
		if err != nil {
			rt.Fatalf("FindFirstPlan: %v", err)
		}
		if !blocks.IsValid(plan, start, goal) {
			rt.Fatalf("plan %v does not validate", plan)
		}
		if !start.Equal(snapshot) {
			rt.Fatal("search mutated the start state")
		}
	})
}

func TestMethod_CandidatesIsSelf(t *testing.T) {
	for _, m := range []blocks.Method{
		blocks.MoveBlocks(),
		blocks.Relocate(C, blocks.On(A)),
		blocks.Acquire(B),
		blocks.Place(D, blocks.Table),
	} {
		assert.Equal(t, []blocks.Method{m}, m.Candidates(nil, nil), m.String())
	}
}
