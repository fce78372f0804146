package blocks_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/blocks/internal/blocks"
	"github.com/cory-johannsen/blocks/internal/htn"
)

// Lettered blocks for readable scenarios.
const (
	A blocks.Block = iota
	B
	C
	D
	E
	F
	G
	H
	I
	J
	K
	L
	M
	N
	O
	P
	Q
	R
	S
)

func blockRange(n int) []blocks.Block {
	out := make([]blocks.Block, n)
	for i := range out {
		out[i] = blocks.Block(i)
	}
	return out
}

// drawTowers shuffles blocks 0..n-1 into towers and returns the table blocks
// and the bottom-up pairs describing them.
func drawTowers(t *rapid.T, n int, label string) ([]blocks.Block, []blocks.Pair) {
	order := rapid.Permutation(blockRange(n)).Draw(t, label+"_order")
	var table []blocks.Block
	var pairs []blocks.Pair
	for i, b := range order {
		if i == 0 || rapid.Bool().Draw(t, fmt.Sprintf("%s_cut_%d", label, i)) {
			table = append(table, b)
			continue
		}
		pairs = append(pairs, blocks.Pair{Top: b, Bottom: order[i-1]})
	}
	return table, pairs
}

func newPlanner(maxDepth int) *htn.Planner {
	return htn.NewPlanner(htn.Config{MaxDepth: maxDepth}, zap.NewNop())
}

func solve(t testing.TB, start *blocks.State, goal *blocks.Goal) []blocks.Operator {
	t.Helper()
	plan, _, err := htn.FindFirstPlan(context.Background(), newPlanner(0), start, goal, goal.StartingTasks())
	require.NoError(t, err)
	return plan
}
