package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/blocks/internal/solver"
)

// ErrPlanNotFound is returned when a plan lookup yields no results.
var ErrPlanNotFound = solver.ErrPlanNotFound

// ErrPlanExists is returned when saving a plan whose ID is already stored.
var ErrPlanExists = solver.ErrPlanExists

var _ solver.PlanHistory = (*PlanRepository)(nil)

// PlanRepository persists solved plans in the plans table.
type PlanRepository struct {
	db *pgxpool.Pool
}

// NewPlanRepository creates a PlanRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, problem, source_path, blocks, actions, valid,
	expansions, backtracks, depth, elapsed_us, created_at`

// Save inserts rec and sets rec.CreatedAt. A zero rec.ID is replaced with a
// new random ID.
//
// Precondition: rec must be non-nil with Problem non-empty.
// Postcondition: rec is stored, or ErrPlanExists on duplicate ID, or a non-nil error.
func (r *PlanRepository) Save(ctx context.Context, rec *solver.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	actions := rec.Actions
	if actions == nil {
		actions = []string{}
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO plans
			(id, problem, source_path, blocks, actions, valid,
			 expansions, backtracks, depth, elapsed_us)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		rec.ID, rec.Problem, rec.SourcePath, rec.Blocks, actions, rec.Valid,
		rec.Expansions, rec.Backtracks, rec.Depth, rec.Elapsed.Microseconds(),
	).Scan(&rec.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrPlanExists
		}
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

// GetByID returns the plan with the given ID.
//
// Postcondition: Returns the plan, or ErrPlanNotFound, or a non-nil error.
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*solver.Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	rec, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("querying plan %s: %w", id, err)
	}
	return rec, nil
}

// ListByProblem returns up to limit plans for the named problem, newest first.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *PlanRepository) ListByProblem(ctx context.Context, problem string, limit int) ([]*solver.Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+planColumns+`
		FROM plans WHERE problem = $1
		ORDER BY created_at DESC, id
		LIMIT $2`,
		problem, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	out := []*solver.Record{}
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}
	return out, nil
}

func scanPlan(row pgx.Row) (*solver.Record, error) {
	var rec solver.Record
	var elapsedUS int64
	err := row.Scan(
		&rec.ID, &rec.Problem, &rec.SourcePath, &rec.Blocks, &rec.Actions, &rec.Valid,
		&rec.Expansions, &rec.Backtracks, &rec.Depth, &elapsedUS, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Elapsed = time.Duration(elapsedUS) * time.Microsecond
	return &rec, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 is unique_violation.
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
