package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// newHistoryCmd creates the history command.
func (a *App) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <problem-name>",
		Short: "List stored plans for a problem, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be >= 1, got %d", limit)
			}
			repo, closeFn, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			recs, err := repo.ListByProblem(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintf(a.stdout, "no stored plans for %s\n", args[0])
				return nil
			}
			for _, rec := range recs {
				fmt.Fprintf(a.stdout, "%s  %s  %3d actions  %s\n",
					rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), len(rec.Actions), rec.SourcePath)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of plans to list")
	return cmd
}

// newShowCmd creates the show command.
func (a *App) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing run id: %w", err)
			}
			repo, closeFn, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			rec, err := repo.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "; problem %s from %s, stored %s\n",
				rec.Problem, rec.SourcePath, rec.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintln(a.stdout, strings.Join(rec.Actions, "\n"))
			return nil
		},
	}
}
