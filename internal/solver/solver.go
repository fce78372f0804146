// Package solver runs the load, plan, validate and persist pipeline for a
// single problem file.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/blocks/internal/blocks"
	"github.com/cory-johannsen/blocks/internal/htn"
	"github.com/cory-johannsen/blocks/internal/observability"
	"github.com/cory-johannsen/blocks/internal/problem"
)

// ErrInvalidPlan is returned when a found plan fails validation against its
// own problem. It indicates a defect in the methods, not in the input.
var ErrInvalidPlan = errors.New("plan failed validation")

// ErrPlanNotFound is returned by a PlanHistory when a lookup yields no plan.
var ErrPlanNotFound = errors.New("plan not found")

// ErrPlanExists is returned by a PlanStore when a plan's ID is already stored.
var ErrPlanExists = errors.New("plan already stored")

// Record is a solved plan as persisted by a PlanStore.
type Record struct {
	ID         uuid.UUID
	Problem    string
	SourcePath string
	Blocks     int
	Actions    []string
	Valid      bool
	Expansions int
	Backtracks int
	Depth      int
	Elapsed    time.Duration
	CreatedAt  time.Time
}

// PlanStore persists solved plans.
type PlanStore interface {
	// Save inserts rec and sets rec.CreatedAt.
	Save(ctx context.Context, rec *Record) error
}

// PlanHistory is a PlanStore that can read plans back.
type PlanHistory interface {
	PlanStore
	// GetByID returns the plan with the given ID, or ErrPlanNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListByProblem returns up to limit plans for the named problem, newest first.
	ListByProblem(ctx context.Context, problem string, limit int) ([]*Record, error)
}

// Result describes one Solve run.
type Result struct {
	RunID    uuid.UUID
	Instance *problem.Instance
	Plan     []blocks.Operator
	Actions  []string
	Valid    bool
	// Distance is the goal distance of the start state.
	Distance int
	Stats    htn.Stats
	Elapsed  time.Duration
	// Stored reports whether the plan was saved to the PlanStore.
	Stored bool
}

// Solver orchestrates problem loading, planning, validation and storage.
type Solver struct {
	loader  *problem.Loader
	planner *htn.Planner
	store   PlanStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New creates a Solver. store may be nil, in which case plans are not saved.
//
// Precondition: loader, planner and logger must be non-nil.
// Postcondition: Returns a non-nil Solver.
func New(loader *problem.Loader, planner *htn.Planner, store PlanStore, logger *zap.Logger) *Solver {
	if loader == nil || planner == nil || logger == nil {
		panic("solver.New: loader, planner and logger must not be nil")
	}
	return &Solver{loader: loader, planner: planner, store: store, logger: logger}
}

// WithMetrics records every Solve and Check run on m.
func (s *Solver) WithMetrics(m *observability.Metrics) *Solver {
	s.metrics = m
	return s
}

// outcome classifies a search error for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomePlanFound
	case errors.Is(err, htn.ErrDepthExceeded):
		return observability.OutcomeDepthExceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.OutcomeCancelled
	default:
		return observability.OutcomeNoPlan
	}
}

// Solve loads the problem at path, finds a plan, validates it and, when a
// store is configured, saves it.
//
// Postcondition: Returns a Result with Valid set, or a non-nil error. A load
// failure is a *problem.LoadError; search failures wrap htn.ErrNoPlan,
// htn.ErrDepthExceeded or the context error.
func (s *Solver) Solve(ctx context.Context, path string) (*Result, error) {
	in, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.SolveInstance(ctx, path, in)
}

// SolveInstance plans for an already-loaded instance. path is recorded with
// the stored plan.
func (s *Solver) SolveInstance(ctx context.Context, path string, in *problem.Instance) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:    uuid.New(),
		Instance: in,
		Distance: in.Goal.Distance(in.Start),
	}
	logger := s.logger.With(
		zap.String("run_id", res.RunID.String()),
		zap.String("problem", in.Name),
	)

	plan, stats, err := htn.FindFirstPlan(ctx, s.planner, in.Start, in.Goal, in.Goal.StartingTasks())
	res.Stats = stats
	if err != nil {
		logger.Info("solver: no plan", zap.Error(err), observability.Elapsed(start))
		s.metrics.ObserveRun(outcome(err), 0, stats.Expansions, stats.Backtracks, time.Since(start))
		return nil, fmt.Errorf("solving %s: %w", in.Name, err)
	}
	res.Plan = plan
	res.Actions = in.FormatPlan(plan)

	final, err := blocks.Replay(in.Start, plan)
	if err == nil && !in.Goal.Accepts(final) {
		err = errors.New("goal not reached")
	}
	if err != nil {
		s.metrics.ObserveRun(observability.OutcomeInvalid, len(plan), stats.Expansions, stats.Backtracks, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	res.Valid = true
	res.Elapsed = time.Since(start)
	s.metrics.ObserveRun(observability.OutcomePlanFound, len(plan), stats.Expansions, stats.Backtracks, res.Elapsed)

	logger.Info("solver: plan found",
		zap.Int("blocks", len(in.Names)),
		zap.Int("distance", res.Distance),
		zap.Int("actions", len(plan)),
		zap.Int("expansions", stats.Expansions),
		zap.Int("backtracks", stats.Backtracks),
		observability.Elapsed(start),
	)

	if s.store != nil {
		rec := &Record{
			ID:         res.RunID,
			Problem:    in.Name,
			SourcePath: path,
			Blocks:     len(in.Names),
			Actions:    res.Actions,
			Valid:      res.Valid,
			Expansions: stats.Expansions,
			Backtracks: stats.Backtracks,
			Depth:      stats.DepthReached,
			Elapsed:    res.Elapsed,
		}
		if err := s.store.Save(ctx, rec); err != nil {
			return res, fmt.Errorf("saving plan %s: %w", res.RunID, err)
		}
		res.Stored = true
		logger.Debug("solver: plan saved")
	}
	return res, nil
}

// CheckResult describes a Check run.
type CheckResult struct {
	Instance *problem.Instance
	Plan     []blocks.Operator
	// Valid reports whether every action applied and the goal was reached.
	Valid bool
	// FailedAt is the index of the first inapplicable action, or -1.
	FailedAt int
	// Remaining is the goal distance after the applicable prefix of the plan.
	Remaining int
}

// Check loads the problem at path and validates planText against it. Plan
// text holds one action per line in problem.Instance.FormatAction form.
//
// Postcondition: Returns a CheckResult, or an error when the problem or the
// plan text cannot be read.
func (s *Solver) Check(ctx context.Context, path, planText string) (*CheckResult, error) {
	in, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	plan, err := in.ParsePlan(planText)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	res := &CheckResult{Instance: in, Plan: plan, FailedAt: -1}

	final, err := blocks.Replay(in.Start, plan)
	var pe *blocks.PlanError
	switch {
	case errors.As(err, &pe):
		res.FailedAt = pe.Index
		prefix, _ := blocks.Replay(in.Start, plan[:pe.Index])
		res.Remaining = in.Goal.Distance(prefix)
	case err != nil:
		return nil, err
	default:
		res.Remaining = in.Goal.Distance(final)
		res.Valid = in.Goal.Accepts(final)
	}
	s.metrics.ObserveCheck(res.Valid)
	s.logger.Info("solver: plan checked",
		zap.String("problem", in.Name),
		zap.Int("actions", len(plan)),
		zap.Bool("valid", res.Valid),
		zap.Int("failed_at", res.FailedAt),
	)
	return res, nil
}
