package htn

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNoPlan is returned when every branch of the decomposition fails.
	ErrNoPlan = errors.New("no plan found")
	// ErrDepthExceeded is returned when no plan was found and at least one
	// branch was pruned by the depth cutoff.
	ErrDepthExceeded = errors.New("decomposition depth exceeded")
)

// DefaultMaxDepth bounds method expansions along a single search path.
const DefaultMaxDepth = 512

// Config tunes a Planner.
type Config struct {
	// MaxDepth is the maximum number of method expansions along one path.
	// Zero selects DefaultMaxDepth.
	MaxDepth int
	// Timeout bounds a whole search; zero means no timeout.
	Timeout time.Duration
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{MaxDepth: DefaultMaxDepth}
}

// Stats counts the work done by one search.
type Stats struct {
	Expansions   int // method applications
	Operators    int // operator applications that succeeded
	Backtracks   int // alternatives tried after a sibling failed
	Cutoffs      int // branches pruned by MaxDepth
	DepthReached int
}

// Planner holds the settings shared by searches.
//
// Invariant: logger is never nil.
type Planner struct {
	cfg    Config
	logger *zap.Logger
}

// NewPlanner constructs a Planner.
//
// Precondition: logger must not be nil; cfg.MaxDepth must not be negative.
func NewPlanner(cfg Config, logger *zap.Logger) *Planner {
	if logger == nil {
		panic("htn.NewPlanner: logger must not be nil")
	}
	if cfg.MaxDepth < 0 {
		panic("htn.NewPlanner: MaxDepth must not be negative")
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Planner{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (p *Planner) Config() Config {
	return p.cfg
}

// FindFirstPlan decomposes tasks depth-first from start and returns the
// operators of the first plan whose final state goal accepts.
//
// Alternatives are tried in the order the method lists them; on failure the
// search backtracks to the most recent untried alternative. Every operator is
// applied to a fresh clone, so start is never modified.
//
// Postcondition: on success the returned plan is non-nil (possibly empty);
// otherwise the error is ErrNoPlan, ErrDepthExceeded, or the context error.
func FindFirstPlan[S Cloner[S], G Goal[S, O, M], O Operator[S], M Method[S, G, O, M]](
	ctx context.Context, p *Planner, start S, goal G, tasks []Task[O, M],
) ([]O, Stats, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	began := time.Now()
	srch := &search[S, G, O, M]{ctx: ctx, goal: goal, maxDepth: p.cfg.MaxDepth}
	plan, ok, err := srch.seek(start.Clone(), tasks, []O{}, 0)

	fields := []zap.Field{
		zap.Int("expansions", srch.stats.Expansions),
		zap.Int("operators", srch.stats.Operators),
		zap.Int("backtracks", srch.stats.Backtracks),
		zap.Int("cutoffs", srch.stats.Cutoffs),
		zap.Int("depth_reached", srch.stats.DepthReached),
		zap.Duration("elapsed", time.Since(began)),
	}
	if est, ok := any(goal).(Estimator[S]); ok {
		fields = append(fields, zap.Int("start_distance", est.Distance(start)))
	}
	switch {
	case err != nil:
		p.logger.Warn("htn: search aborted", append(fields, zap.Error(err))...)
		return nil, srch.stats, fmt.Errorf("htn.FindFirstPlan: %w", err)
	case !ok && srch.stats.Cutoffs > 0:
		p.logger.Info("htn: no plan within depth limit", append(fields, zap.Int("max_depth", p.cfg.MaxDepth))...)
		return nil, srch.stats, fmt.Errorf("htn.FindFirstPlan: max depth %d: %w", p.cfg.MaxDepth, ErrDepthExceeded)
	case !ok:
		p.logger.Info("htn: no plan", fields...)
		return nil, srch.stats, fmt.Errorf("htn.FindFirstPlan: %w", ErrNoPlan)
	}
	p.logger.Debug("htn: plan found", append(fields, zap.Int("length", len(plan)))...)
	return plan, srch.stats, nil
}

// search carries the per-call state of FindFirstPlan.
type search[S Cloner[S], G Goal[S, O, M], O Operator[S], M Method[S, G, O, M]] struct {
	ctx      context.Context
	goal     G
	maxDepth int
	stats    Stats
}

// seek runs the linear part of a branch in a loop and recurses only where a
// method offers more than one alternative.
func (s *search[S, G, O, M]) seek(state S, tasks []Task[O, M], plan []O, depth int) ([]O, bool, error) {
	for {
		if err := s.ctx.Err(); err != nil {
			return nil, false, err
		}
		if depth > s.stats.DepthReached {
			s.stats.DepthReached = depth
		}
		if len(tasks) == 0 {
			return plan, s.goal.Accepts(state), nil
		}

		task := tasks[0]
		tasks = tasks[1:]

		if op, ok := task.Operator(); ok {
			next := state.Clone()
			if !op.Attempt(next) {
				return nil, false, nil
			}
			s.stats.Operators++
			state = next
			plan = append(slices.Clip(plan), op)
			continue
		}

		m, _ := task.Method()
		if depth >= s.maxDepth {
			s.stats.Cutoffs++
			return nil, false, nil
		}
		if c, ok := any(m).(Candidater[S, G, M]); ok {
			variants := c.Candidates(state, s.goal)
			switch len(variants) {
			case 0:
				return nil, false, nil
			case 1:
				m = variants[0]
			default:
				for i, v := range variants {
					if i > 0 {
						s.stats.Backtracks++
					}
					found, ok, err := s.seek(state, prepend([]Task[O, M]{Abstract[O](v)}, tasks), plan, depth+1)
					if err != nil || ok {
						return found, ok, err
					}
				}
				return nil, false, nil
			}
		}
		d := m.Apply(state, s.goal)
		s.stats.Expansions++

		switch d.Outcome {
		case PlanFound:
			continue
		case Failed:
			return nil, false, nil
		}

		if len(d.Alternatives) == 1 {
			tasks = prepend(d.Alternatives[0], tasks)
			depth++
			continue
		}
		for i, alt := range d.Alternatives {
			if i > 0 {
				s.stats.Backtracks++
			}
			found, ok, err := s.seek(state, prepend(alt, tasks), plan, depth+1)
			if err != nil || ok {
				return found, ok, err
			}
		}
		return nil, false, nil
	}
}

// prepend returns head followed by tail in a new slice.
func prepend[T any](head, tail []T) []T {
	out := make([]T, 0, len(head)+len(tail))
	out = append(out, head...)
	return append(out, tail...)
}
