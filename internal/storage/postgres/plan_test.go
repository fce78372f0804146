package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/blocks/internal/solver"
	pgstore "github.com/cory-johannsen/blocks/internal/storage/postgres"
	"github.com/cory-johannsen/blocks/internal/testutil"
)

func newRepo(t *testing.T) (*pgstore.PlanRepository, *testutil.PostgresContainer) {
	t.Helper()
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc.Pool.Plans(), pc
}

func sampleRecord(problem string) *solver.Record {
	return &solver.Record{
		ID:         uuid.New(),
		Problem:    problem,
		SourcePath: "testdata/" + problem + ".pddl",
		Blocks:     3,
		Actions:    []string{"unstack a b", "put-down a"},
		Valid:      true,
		Expansions: 7,
		Backtracks: 1,
		Depth:      5,
		Elapsed:    1500 * time.Microsecond,
	}
}

func TestPlanRepository_SaveAndGet(t *testing.T) {
	repo, pc := newRepo(t)
	ctx := context.Background()
	require.NoError(t, pc.Pool.Health(ctx, 5*time.Second))

	rec := sampleRecord("sussman")
	require.NoError(t, repo.Save(ctx, rec))
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Actions, got.Actions)
	assert.Equal(t, rec.Elapsed, got.Elapsed)
	assert.Equal(t, rec.Depth, got.Depth)
	assert.True(t, got.Valid)
}

func TestPlanRepository_SaveAssignsID(t *testing.T) {
	repo, _ := newRepo(t)
	rec := sampleRecord("empty")
	rec.ID = uuid.Nil
	rec.Actions = nil
	require.NoError(t, repo.Save(context.Background(), rec))
	assert.NotEqual(t, uuid.Nil, rec.ID)

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Actions)
}

func TestPlanRepository_DuplicateID(t *testing.T) {
	repo, _ := newRepo(t)
	rec := sampleRecord("dup")
	require.NoError(t, repo.Save(context.Background(), rec))
	assert.ErrorIs(t, repo.Save(context.Background(), rec), pgstore.ErrPlanExists)
}

func TestPlanRepository_GetByID_NotFound(t *testing.T) {
	repo, _ := newRepo(t)
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, pgstore.ErrPlanNotFound)
}

func TestPlanRepository_ListByProblem(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		rec := sampleRecord("tower")
		rec.SourcePath = fmt.Sprintf("run-%d", i)
		require.NoError(t, repo.Save(ctx, rec))
	}
	require.NoError(t, repo.Save(ctx, sampleRecord("other")))

	got, err := repo.ListByProblem(ctx, "tower", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, rec := range got {
		assert.Equal(t, "tower", rec.Problem)
	}

	none, err := repo.ListByProblem(ctx, "missing", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
