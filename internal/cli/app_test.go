package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/blocks/internal/cli"
	"github.com/cory-johannsen/blocks/internal/htn"
	"github.com/cory-johannsen/blocks/internal/problem"
	"github.com/cory-johannsen/blocks/internal/solver"
)

const sussman = "../problem/testdata/sussman.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := cli.New().WithOutput(&out, &errOut).ExecuteWithArgs(context.Background(), args)
	return out.String(), err
}

// quietConfig writes a config that keeps logs at error level.
func quietConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blocks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\n  format: json\n"+extra), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "blocksplan version dev")
}

func TestSolve_PrintsCheckablePlan(t *testing.T) {
	cfg := quietConfig(t, "")
	out, err := run(t, "solve", "-c", cfg, sussman)
	require.NoError(t, err)
	assert.Contains(t, out, "; problem sussman: 3 blocks")
	assert.Contains(t, out, "unstack c a\n")

	planFile := filepath.Join(t.TempDir(), "sussman.plan")
	require.NoError(t, os.WriteFile(planFile, []byte(out), 0644))
	out, err = run(t, "check", "-c", cfg, sussman, planFile)
	require.NoError(t, err)
	assert.Contains(t, out, "valid: 6 actions solve sussman")
}

func TestSolve_Quiet(t *testing.T) {
	out, err := run(t, "solve", "-q", "-c", quietConfig(t, ""), sussman)
	require.NoError(t, err)
	assert.NotContains(t, out, ";")
}

func TestSolve_MaxDepthOverride(t *testing.T) {
	_, err := run(t, "solve", "--max-depth", "1", "-c", quietConfig(t, ""), "../problem/testdata/tower.lua")
	assert.ErrorIs(t, err, htn.ErrDepthExceeded)
}

func TestSolve_StoreRequiresStorage(t *testing.T) {
	_, err := run(t, "solve", "--store", "-c", quietConfig(t, ""), sussman)
	assert.ErrorIs(t, err, cli.ErrStorageDisabled)
}

func TestSolve_BadProblem(t *testing.T) {
	_, err := run(t, "solve", "-c", quietConfig(t, ""), "missing.pddl")
	assert.ErrorIs(t, err, problem.ErrRead)
}

func TestSolve_BadConfig(t *testing.T) {
	_, err := run(t, "solve", "-c", quietConfig(t, "planner:\n  max_depth: 0\n"), sussman)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planner.max_depth")
}

func TestCheck_Rejects(t *testing.T) {
	cfg := quietConfig(t, "")
	planFile := filepath.Join(t.TempDir(), "bad.plan")

	require.NoError(t, os.WriteFile(planFile, []byte("unstack c a\nstack c b\nstack a b\n"), 0644))
	out, err := run(t, "check", "-c", cfg, sussman, planFile)
	assert.ErrorIs(t, err, cli.ErrPlanRejected)
	assert.Contains(t, out, "action 3 (stack a b) cannot be applied")

	require.NoError(t, os.WriteFile(planFile, []byte("unstack c a\nput-down c\n"), 0644))
	out, err = run(t, "check", "-c", cfg, sussman, planFile)
	assert.ErrorIs(t, err, cli.ErrPlanRejected)
	assert.Contains(t, out, "goal not reached")
}

func TestHistory_RequiresStorage(t *testing.T) {
	_, err := run(t, "history", "-c", quietConfig(t, ""), "sussman")
	assert.ErrorIs(t, err, cli.ErrStorageDisabled)
}

func TestShow_RejectsBadID(t *testing.T) {
	_, err := run(t, "show", "-c", quietConfig(t, ""), "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing run id")
}

func TestArgsAreChecked(t *testing.T) {
	_, err := run(t, "solve")
	assert.Error(t, err)
	_, err = run(t, "check", sussman)
	assert.Error(t, err)
}

func sqliteConfig(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "plans.db")
	return quietConfig(t, "storage:\n  enabled: true\n  driver: sqlite\n  path: "+db+"\n")
}

func TestSolve_StoreThenHistoryAndShow_SQLite(t *testing.T) {
	cfg := sqliteConfig(t)
	out, err := run(t, "solve", "--store", "-c", cfg, sussman)
	require.NoError(t, err)
	require.Contains(t, out, "; stored as ")
	runID := strings.TrimSpace(out[strings.Index(out, "; stored as ")+len("; stored as "):])

	out, err = run(t, "history", "-c", cfg, "sussman")
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "6 actions")

	out, err = run(t, "show", "-c", cfg, runID)
	require.NoError(t, err)
	assert.Contains(t, out, "; problem sussman from "+sussman)
	assert.Contains(t, out, "unstack c a\n")

	out, err = run(t, "history", "-c", cfg, "nothing-here")
	require.NoError(t, err)
	assert.Contains(t, out, "no stored plans for nothing-here")
}

func TestShow_UnknownRunID_SQLite(t *testing.T) {
	_, err := run(t, "show", "-c", sqliteConfig(t), "00000000-0000-0000-0000-000000000001")
	assert.ErrorIs(t, err, solver.ErrPlanNotFound)
}

func TestSolve_WritesMetricsFile(t *testing.T) {
	cfg := quietConfig(t, "")
	metrics := filepath.Join(t.TempDir(), "blocks.prom")

	_, err := run(t, "solve", "-q", "--metrics-file", metrics, "-c", cfg, sussman)
	require.NoError(t, err)
	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `blocks_solve_runs_total{outcome="plan_found"} 1`)

	_, err = run(t, "solve", "--max-depth", "1", "--metrics-file", metrics, "-c", cfg, "../problem/testdata/tower.lua")
	require.ErrorIs(t, err, htn.ErrDepthExceeded)
	data, err = os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `blocks_solve_runs_total{outcome="depth_exceeded"} 1`)
}
