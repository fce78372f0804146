package blocks_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/blocks/internal/blocks"
)

func TestNewState_AllOnTableAndClear(t *testing.T) {
	s := blocks.NewState([]blocks.Block{2, 0, 1})
	for _, b := range []blocks.Block{0, 1, 2} {
		assert.Equal(t, blocks.Table, s.PositionOf(b))
		assert.True(t, s.IsClear(b))
	}
	_, held := s.Holding()
	assert.False(t, held)
	assert.Equal(t, 3, s.Len())
	require.NoError(t, s.CheckInvariants())
}

func TestStateFrom_ReadBack(t *testing.T) {
	s, err := blocks.StateFrom([]blocks.Block{B, F}, []blocks.Pair{{Top: C, Bottom: B}, {Top: A, Bottom: C}, {Top: G, Bottom: F}})
	require.NoError(t, err)
	assert.Equal(t, blocks.Table, s.PositionOf(B))
	assert.Equal(t, blocks.On(B), s.PositionOf(C))
	assert.Equal(t, blocks.On(C), s.PositionOf(A))
	assert.Equal(t, blocks.On(F), s.PositionOf(G))
	assert.True(t, s.IsClear(A))
	assert.True(t, s.IsClear(G))
	assert.False(t, s.IsClear(B))
	assert.False(t, s.IsClear(C))
	require.NoError(t, s.CheckInvariants())
}

func TestStateFrom_RejectsTopDownOrder(t *testing.T) {
	// A on B must come after B on C.
	s, err := blocks.StateFrom([]blocks.Block{C}, []blocks.Pair{{Top: A, Bottom: B}, {Top: B, Bottom: C}})
	assert.Nil(t, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, blocks.ErrInvalidLayout))
	var le *blocks.LayoutError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 1, le.Index)
}

func TestStateFrom_RejectsDoublePlacement(t *testing.T) {
	cases := map[string]struct {
		table []blocks.Block
		pairs []blocks.Pair
	}{
		"table and pair":  {table: []blocks.Block{A, B}, pairs: []blocks.Pair{{Top: A, Bottom: B}}},
		"two pairs":       {table: []blocks.Block{B, C}, pairs: []blocks.Pair{{Top: A, Bottom: B}, {Top: A, Bottom: C}}},
		"table twice":     {table: []blocks.Block{A, A}},
		"shared bottom":   {table: []blocks.Block{C}, pairs: []blocks.Pair{{Top: A, Bottom: C}, {Top: B, Bottom: C}}},
		"unknown bottom":  {table: []blocks.Block{C}, pairs: []blocks.Pair{{Top: A, Bottom: D}}},
		"rests on itself": {pairs: []blocks.Pair{{Top: A, Bottom: A}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := blocks.StateFrom(tc.table, tc.pairs)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, blocks.ErrInvalidLayout)
		})
	}
}

func TestState_Blocks_TableThenStackedByID(t *testing.T) {
	s, err := blocks.StateFrom([]blocks.Block{5, 1}, []blocks.Pair{{Top: 3, Bottom: 5}, {Top: 0, Bottom: 1}})
	require.NoError(t, err)
	assert.Equal(t, []blocks.Block{1, 5, 0, 3}, s.Blocks())

	require.True(t, s.Unstack(3, 5))
	assert.Equal(t, []blocks.Block{1, 5, 0, 3}, s.Blocks(), "held block is listed last")
}

func TestState_OperatorEffects(t *testing.T) {
	s := blocks.NewState([]blocks.Block{A, B})

	require.True(t, s.PickUp(A))
	held, ok := s.Holding()
	require.True(t, ok)
	assert.Equal(t, A, held)
	assert.False(t, s.IsClear(A))
	require.NoError(t, s.CheckInvariants())

	require.True(t, s.Stack(A, B))
	assert.Equal(t, blocks.On(B), s.PositionOf(A))
	assert.True(t, s.IsClear(A))
	assert.False(t, s.IsClear(B))
	require.NoError(t, s.CheckInvariants())

	require.True(t, s.Unstack(A, B))
	assert.True(t, s.IsClear(B))
	assert.Equal(t, blocks.Table, s.PositionOf(A))
	require.NoError(t, s.CheckInvariants())

	require.True(t, s.PutDown(A))
	assert.True(t, s.IsClear(A))
	require.NoError(t, s.CheckInvariants())
}

func TestState_FailedOperatorsLeaveStateUnchanged(t *testing.T) {
	s, err := blocks.StateFrom([]blocks.Block{B, C}, []blocks.Pair{{Top: A, Bottom: B}})
	require.NoError(t, err)
	snapshot := s.Clone()

	assert.False(t, s.PickUp(B), "B is covered")
	assert.False(t, s.PickUp(A), "A is not on the table")
	assert.False(t, s.PutDown(C), "C is not held")
	assert.False(t, s.Stack(C, A), "C is not held")
	assert.False(t, s.Unstack(B, A), "B is not on A")
	assert.False(t, s.Unstack(C, B), "C is not on B")
	assert.True(t, s.Equal(snapshot))

	require.True(t, s.PickUp(C))
	snapshot = s.Clone()
	assert.False(t, s.PickUp(A), "gripper is busy")
	assert.False(t, s.Unstack(A, B), "gripper is busy")
	assert.False(t, s.Stack(C, B), "B is covered")
	assert.False(t, s.PutDown(A), "A is not the held block")
	assert.True(t, s.Equal(snapshot))
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := blocks.NewState([]blocks.Block{A, B})
	c := s.Clone()
	require.True(t, c.PickUp(A))
	require.True(t, c.Stack(A, B))
	assert.Equal(t, blocks.Table, s.PositionOf(A))
	assert.True(t, s.IsClear(B))
	assert.False(t, s.Equal(c))
}

// opGen draws an arbitrary operator over n blocks; most of them are illegal
// in any given state.
func opGen(n int) *rapid.Generator[blocks.Operator] {
	return rapid.Custom(func(t *rapid.T) blocks.Operator {
		a := blocks.Block(rapid.IntRange(0, n-1).Draw(t, "a"))
		b := blocks.Block(rapid.IntRange(0, n-1).Draw(t, "b"))
		switch rapid.IntRange(0, 3).Draw(t, "kind") {
		case 0:
			return blocks.PickUp(a)
		case 1:
			return blocks.PutDown(a)
		case 2:
			return blocks.Stack(a, b)
		default:
			return blocks.Unstack(a, b)
		}
	})
}

func TestProperty_State_InvariantsHoldUnderAnyOperatorSequence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 7).Draw(rt, "n")
		s := blocks.NewState(blockRange(n))
		ops := rapid.SliceOfN(opGen(n), 0, 60).Draw(rt, "ops")
		for i, op := range ops {
			before := s.Clone()
			if !op.Attempt(s) {
				if !s.Equal(before) {
					rt.Fatalf("step %d: failed %s mutated the state", i, op)
				}
				continue
			}
			if err := s.CheckInvariants(); err != nil {
				rt.Fatalf("step %d: after %s: %v", i, op, err)
			}
			if s.Len() != n {
				rt.Fatalf("step %d: block count %d, want %d", i, s.Len(), n)
			}
		}
	})
}

func TestProperty_StateFrom_ReproducesTowers(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(rt, "n")
		table, pairs := drawTowers(rt, n, "start")
		s, err := blocks.StateFrom(table, pairs)
		if err != nil {
			rt.Fatalf("StateFrom: %v", err)
		}
		for _, b := range table {
			if s.PositionOf(b) != blocks.Table {
				rt.Fatalf("block %d: want Table, got %s", b, s.PositionOf(b))
			}
		}
		for _, p := range pairs {
			if s.PositionOf(p.Top) != blocks.On(p.Bottom) {
				rt.Fatalf("block %d: want On(%d), got %s", p.Top, p.Bottom, s.PositionOf(p.Top))
			}
		}
		if err := s.CheckInvariants(); err != nil {
			rt.Fatal(err)
		}
	})
}
