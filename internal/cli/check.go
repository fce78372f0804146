package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ErrPlanRejected is returned by check when the plan is not valid.
var ErrPlanRejected = errors.New("plan rejected")

// newCheckCmd creates the check command.
func (a *App) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <problem> <plan-file>",
		Short: "Validate a plan against a problem",
		Long: `Replay a plan from the problem's start state and report whether every
action applies and the goal holds at the end.

The plan file holds one action per line, such as "unstack a b" or
"(pick-up c)". Blank lines and lines starting with ';' or '#' are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer a.writeMetrics(&err)
			text, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("reading plan: %w", err)
			}
			s, closeFn, err := a.newSolver(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := s.Check(cmd.Context(), args[0], string(text))
			if err != nil {
				return err
			}
			switch {
			case res.Valid:
				fmt.Fprintf(a.stdout, "valid: %d actions solve %s\n", len(res.Plan), res.Instance.Name)
				return nil
			case res.FailedAt >= 0:
				fmt.Fprintf(a.stdout, "invalid: action %d (%s) cannot be applied; %d blocks not done before it\n",
					res.FailedAt+1, res.Instance.FormatAction(res.Plan[res.FailedAt]), res.Remaining)
			default:
				fmt.Fprintf(a.stdout, "invalid: goal not reached; %d blocks not done\n", res.Remaining)
			}
			return ErrPlanRejected
		},
	}
}
