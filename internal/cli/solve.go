package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type solveOptions struct {
	store    bool
	maxDepth int
	quiet    bool
}

// newSolveCmd creates the solve command.
func (a *App) newSolveCmd() *cobra.Command {
	opts := &solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve <problem>",
		Short: "Find and print a plan for a problem file",
		Long: `Find a plan for a problem file and print it, one action per line.

Summary lines start with ';' so the output can be passed straight to check.

Examples:
  blocksplan solve problems/sussman.pddl
  blocksplan solve problems/tower.lua --max-depth 2048
  blocksplan solve problems/sussman.yaml --store > sussman.plan
  blocksplan solve problems/sussman.pddl --metrics-file /var/lib/node_exporter/blocks.prom`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer a.writeMetrics(&err)
			if opts.maxDepth > 0 {
				a.cfg.Planner.MaxDepth = opts.maxDepth
			}
			s, closeFn, err := a.newSolver(cmd.Context(), opts.store)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := s.Solve(cmd.Context(), args[0])
			if res == nil && err != nil {
				return err
			}
			if !opts.quiet {
				fmt.Fprintf(a.stdout, "; problem %s: %d blocks, %d not done\n",
					res.Instance.Name, len(res.Instance.Names), res.Distance)
			}
			if len(res.Actions) > 0 {
				fmt.Fprintln(a.stdout, strings.Join(res.Actions, "\n"))
			}
			if !opts.quiet {
				fmt.Fprintf(a.stdout, "; %d actions, %d expansions, %d backtracks, depth %d, %s\n",
					len(res.Actions), res.Stats.Expansions, res.Stats.Backtracks, res.Stats.DepthReached, res.Elapsed)
				if res.Stored {
					fmt.Fprintf(a.stdout, "; stored as %s\n", res.RunID)
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.store, "store", false, "save the plan to the database")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "override planner.max_depth")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "print only the actions")
	return cmd
}
