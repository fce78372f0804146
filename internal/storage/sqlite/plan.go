// Package sqlite stores solved plans in a single-file SQLite database, for
// running the planner with history but without a PostgreSQL server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/cory-johannsen/blocks/internal/solver"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id          TEXT PRIMARY KEY,
	problem     TEXT NOT NULL,
	source_path TEXT NOT NULL,
	blocks      INTEGER NOT NULL,
	actions     TEXT NOT NULL,
	valid       INTEGER NOT NULL,
	expansions  INTEGER NOT NULL,
	backtracks  INTEGER NOT NULL,
	depth       INTEGER NOT NULL,
	elapsed_us  INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plans_problem_created ON plans (problem, created_at DESC);
`

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const planColumns = `id, problem, source_path, blocks, actions, valid,
	expansions, backtracks, depth, elapsed_us, created_at`

// PlanRepository persists solved plans in the plans table of a SQLite file.
type PlanRepository struct {
	db *sql.DB
}

var _ solver.PlanHistory = (*PlanRepository)(nil)

// Open opens (creating if needed) the database at path and ensures the schema
// exists. ":memory:" gives a private in-memory database.
//
// Precondition: path must be non-empty.
// Postcondition: Returns an open PlanRepository or a non-nil error.
func Open(ctx context.Context, path string) (*PlanRepository, error) {
	if path == "" {
		return nil, errors.New("sqlite: path must not be empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initializing %s: %w", path, err)
		}
	}
	return &PlanRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *PlanRepository) Close() error {
	return r.db.Close()
}

// Save inserts rec. A zero rec.ID is replaced with a new random ID and a zero
// rec.CreatedAt with the current time.
//
// Postcondition: rec is stored, or ErrPlanExists on duplicate ID, or a non-nil error.
func (r *PlanRepository) Save(ctx context.Context, rec *solver.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	actions := rec.Actions
	if actions == nil {
		actions = []string{}
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encoding actions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Problem, rec.SourcePath, rec.Blocks, string(actionsJSON), rec.Valid,
		rec.Expansions, rec.Backtracks, rec.Depth, rec.Elapsed.Microseconds(),
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isConstraintError(err) {
			return solver.ErrPlanExists
		}
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

// GetByID returns the plan with the given ID.
//
// Postcondition: Returns the plan, or solver.ErrPlanNotFound, or a non-nil error.
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*solver.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id.String())
	rec, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, solver.ErrPlanNotFound
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
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+planColumns+`
		FROM plans WHERE problem = ?
		ORDER BY created_at DESC, id
		LIMIT ?`,
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

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (*solver.Record, error) {
	var (
		rec                      solver.Record
		id, actionsJSON, created string
		elapsedUS                int64
	)
	err := row.Scan(
		&id, &rec.Problem, &rec.SourcePath, &rec.Blocks, &actionsJSON, &rec.Valid,
		&rec.Expansions, &rec.Backtracks, &rec.Depth, &elapsedUS, &created,
	)
	if err != nil {
		return nil, err
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("plan id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &rec.Actions); err != nil {
		return nil, fmt.Errorf("plan %s actions: %w", id, err)
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("plan %s created_at: %w", id, err)
	}
	rec.Elapsed = time.Duration(elapsedUS) * time.Microsecond
	return &rec, nil
}

// isConstraintError reports whether err is a primary key or unique violation.
func isConstraintError(err error) bool {
	var sqlErr interface{ Code() int }
	if errors.As(err, &sqlErr) {
		code := sqlErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
