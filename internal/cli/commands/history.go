package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/mstools/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit   int
	Dataset string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled transform runs",
		Long: `List the transform runs recorded in the run journal, newest first.

Every run subcommand that streams visibilities or renames records an entry
before it starts. An entry still marked running was interrupted and the
dataset may be partially rewritten.`,
		Example: `  mstools history
  mstools history --dataset n24l1.ms --limit 5 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs (0 for all)")
	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "Only runs on this dataset")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cc := NewCommandContextWithoutEngine(cmd)
	ctx := cmd.Context()

	journal, err := openJournal(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	runs, err := journal.ListRuns(ctx, opts.Dataset, opts.Limit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []*state.Run{}
	}

	r := cc.Renderer
	if ok, err := r.Structured(runs); ok || err != nil {
		return err
	}
	if len(runs) == 0 {
		r.Muted("no runs recorded")
		return nil
	}

	rows := make([][]any, len(runs))
	for i, run := range runs {
		status := string(run.Status)
		switch run.Status {
		case state.RunStatusCompleted:
			status = r.Styles().Success.Render(status)
		case state.RunStatusFailed:
			status = r.Styles().Error.Render(status)
		case state.RunStatusRunning:
			status = r.Styles().Warning.Render(status)
		}
		transform := run.Transform
		if run.DryRun {
			transform += " (dry run)"
		}
		rows[i] = []any{
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			transform,
			run.Dataset,
			status,
			fmt.Sprintf("%d/%d", run.Selected, run.Rows),
			run.Written,
			run.Duration().Round(time.Millisecond),
		}
	}
	r.Table([]string{"Started", "Transform", "Dataset", "Status", "Selected", "Written", "Took"}, rows)
	return nil
}
