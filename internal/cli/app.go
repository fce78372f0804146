// Package cli provides the blocksplan command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/blocks/internal/config"
	"github.com/cory-johannsen/blocks/internal/htn"
	"github.com/cory-johannsen/blocks/internal/observability"
	"github.com/cory-johannsen/blocks/internal/problem"
	"github.com/cory-johannsen/blocks/internal/scripting"
	"github.com/cory-johannsen/blocks/internal/solver"
	"github.com/cory-johannsen/blocks/internal/storage/postgres"
	"github.com/cory-johannsen/blocks/internal/storage/sqlite"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// ErrStorageDisabled is returned by commands that need the plan database
// when storage is not enabled.
var ErrStorageDisabled = errors.New("plan storage is disabled (set storage.enabled or BLOCKS_STORAGE_ENABLED)")

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath  string
	metricsFile string
	cfg         config.Config
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: zap.NewNop(),
	}

	app.root = &cobra.Command{
		Use:   "blocksplan",
		Short: "Hierarchical planner for the blocks world",
		Long: `blocksplan reads a blocks-world problem (PDDL, YAML, or a Lua generator),
decomposes "build these towers" into pick-up, put-down, stack and unstack
actions, and validates the resulting plan.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}
	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "path to configuration file")
	app.root.PersistentFlags().StringVar(&app.metricsFile, "metrics-file", "", "write Prometheus metrics for solve and check runs to this file")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newSolveCmd(),
		app.newCheckCmd(),
		app.newHistoryCmd(),
		app.newShowCmd(),
	)
	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application until it finishes or is interrupted.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = a.logger.Sync() }()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// setup loads configuration and builds the logger before any subcommand runs.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger.With(zap.String("command", cmd.Name()))
	if a.metricsFile != "" {
		a.metrics = observability.NewMetrics()
	}
	return nil
}

// writeMetrics writes collected metrics when --metrics-file is set. It keeps
// err when that is already non-nil.
func (a *App) writeMetrics(err *error) {
	if a.metrics == nil {
		return
	}
	if werr := a.metrics.WriteFile(a.metricsFile); werr != nil {
		if *err == nil {
			*err = werr
			return
		}
		a.logger.Warn("metrics not written", zap.Error(werr))
	}
}

// newSolver wires a Solver from the loaded configuration. The returned close
// function releases the database pool, if one was opened.
func (a *App) newSolver(ctx context.Context, store bool) (*solver.Solver, func(), error) {
	runner := scripting.NewRunner(0, a.logger.Named("scripting"))
	loader := problem.NewLoader(runner, a.logger.Named("problem"))
	planner := htn.NewPlanner(htn.Config{
		MaxDepth: a.cfg.Planner.MaxDepth,
		Timeout:  a.cfg.Planner.Timeout,
	}, a.logger.Named("htn"))

	if !store {
		return solver.New(loader, planner, nil, a.logger).WithMetrics(a.metrics), func() {}, nil
	}
	repo, closeFn, err := a.openRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	return solver.New(loader, planner, repo, a.logger).WithMetrics(a.metrics), closeFn, nil
}

// openRepository opens the plan store selected by storage.driver.
func (a *App) openRepository(ctx context.Context) (solver.PlanHistory, func(), error) {
	if !a.cfg.Storage.Enabled {
		return nil, nil, ErrStorageDisabled
	}
	switch a.cfg.Storage.Driver {
	case config.DriverSQLite:
		repo, err := sqlite.Open(ctx, a.cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening plan database: %w", err)
		}
		a.logger.Debug("plan database opened", zap.String("path", a.cfg.Storage.Path))
		return repo, func() { _ = repo.Close() }, nil
	default:
		pool, err := postgres.NewPool(ctx, a.cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.logger.Debug("database connected", zap.String("host", a.cfg.Database.Host), zap.String("name", a.cfg.Database.Name))
		return pool.Plans(), pool.Close, nil
	}
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "blocksplan version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
		},
	}
}
