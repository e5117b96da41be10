package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/mstools/internal/cli/output"
	"github.com/leapstack-labs/mstools/internal/engine"
	"github.com/leapstack-labs/mstools/internal/state"
	"github.com/leapstack-labs/mstools/pkg/core"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command with one subcommand per tool.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a tool on a dataset",
		Long: `Run one of the dataset tools.

Visibility tools stream the main table in chunks and only touch rows whose
baseline includes a selected antenna. Antennas are matched by name or
station, case-insensitively; "EF-WB" selects a single baseline. With
--dry-run every tool reports what it would change without writing.`,
		Example: `  # Swap R and L for Effelsberg between two times
  mstools run polswap n24l1.ms EF -1 2024/03/01/12:00 -2 2024/03/01/13:30

  # Flag weights below 0.9 without writing flags
  mstools run flag_weights n24l1.ms 0.9 --no-apply

  # Rename the experiment
  mstools run expname n24l1.ms N24L2`,
	}

	cmd.AddCommand(
		newPolswapCommand(),
		newCopyPolCommand(),
		newScale1BitCommand(),
		newInvertSubbandCommand(),
		newFlagWeightsCommand(),
		newExpNameCommand(),
		newSrcNameCommand(),
		newPrintMountsCommand(),
		newModifyMountsCommand(),
		newYsFocusCommand(),
		newHoFocusCommand(),
	)
	return cmd
}

// runTransform opens a command context, runs name and renders the result.
// The run is recorded in the journal when one is configured; journal
// failures are logged and never fail the transform.
func runTransform(cmd *cobra.Command, path, name string, sel engine.Selection, p engine.Params) (*engine.Result, error) {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ctx := cmd.Context()
	journal, run := startRun(ctx, cc, path, name, sel, p)
	if journal != nil {
		defer func() { _ = journal.Close() }()
	}

	res, err := cc.Engine.Run(ctx, path, name, sel, p)
	if run != nil {
		var c state.Counts
		if res != nil {
			c = state.Counts{Rows: res.Counters.Rows, Selected: res.Counters.Selected, Written: res.Counters.Written}
		}
		if jerr := journal.CompleteRun(context.WithoutCancel(ctx), run.ID, c, err); jerr != nil {
			cc.Logger.Warn("failed to complete journal entry", "run", run.ID, "error", jerr)
		}
	}
	if err != nil {
		return nil, err
	}
	cc.Logger.Info("transform finished", "transform", res.Transform, "dataset", res.Dataset,
		"selected", res.Counters.Selected, "written", res.Counters.Written, "dry_run", res.DryRun)
	return res, nil
}

// startRun records a running journal entry. It returns nil values when
// the journal is disabled or cannot be written.
func startRun(ctx context.Context, cc *CommandContext, path, name string, sel engine.Selection, p engine.Params) (state.Journal, *state.Run) {
	journal, err := openJournal(ctx, cc.Cfg, cc.Logger)
	if errors.Is(err, errJournalDisabled) {
		return nil, nil
	}
	if err != nil {
		cc.Logger.Warn("run journal unavailable", "path", cc.Cfg.Journal, "error", err)
		return nil, nil
	}

	params := map[string]any{"selection": sel, "params": p}
	run, err := journal.CreateRun(ctx, name, path, params, cc.Cfg.DryRun)
	if err != nil {
		cc.Logger.Warn("failed to create journal entry", "error", err)
		return journal, nil
	}
	cc.Logger.Debug("journal entry created", "run", run.ID)
	return journal, run
}

func newPolswapCommand() *cobra.Command {
	var perStation bool
	sel := &SelectionOptions{}

	cmd := &cobra.Command{
		Use:   "polswap <ms> <antenna>...",
		Short: "Swap the polarization hands of antennas",
		Long: `Swap R<->L (or X<->Y) for every baseline to the given antennas.

By default all four products are reversed (RR,RL,LR,LL -> LL,LR,RL,RR).
With --per-station only the hand of the selected endpoint flips.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sel.Selection(args[1:])
			if err != nil {
				return err
			}
			res, err := runTransform(cmd, args[0], engine.TransformPolswap, s, engine.Params{PerStation: perStation})
			if err != nil {
				return err
			}
			return renderResult(rendererFor(cmd), res)
		},
	}
	addSelectionFlags(cmd, sel, true)
	cmd.Flags().BoolVar(&perStation, "per-station", false, "Flip only the selected antenna's hand")
	return cmd
}

func newCopyPolCommand() *cobra.Command {
	sel := &SelectionOptions{}

	cmd := &cobra.Command{
		Use:   "copypol <ms> <antenna> <R|L|X|Y>",
		Short: "Copy one polarization hand onto the other",
		Long: `Replace the other hand of an antenna with the given one, for
antennas where one receiver chain failed.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sel.Selection(strings.Split(args[1], ","))
			if err != nil {
				return err
			}
			res, err := runTransform(cmd, args[0], engine.TransformCopyPol, s, engine.Params{Source: args[2]})
			if err != nil {
				return err
			}
			return renderResult(rendererFor(cmd), res)
		},
	}
	addSelectionFlags(cmd, sel, true)
	return cmd
}

func newScale1BitCommand() *cobra.Command {
	var undo, noScaleWeights bool
	sel := &SelectionOptions{}

	cmd := &cobra.Command{
		Use:   "scale1bit <ms> [antenna...]",
		Short: "Correct the amplitudes of 1-bit sampled antennas",
		Long: `Scale baselines to 1-bit antennas by pi/(2*1.1329552) per 1-bit
endpoint. Without antennas the dataset's recorded 1-bit antennas (plus
one_bit_antennas from the configuration) are used.

The correction is not tracked: running it twice scales twice. Use --undo
to revert one application.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sel.Selection(args[1:])
			if err != nil {
				return err
			}
			p := engine.Params{ScaleWeights: !noScaleWeights, Undo: undo}
			res, err := runTransform(cmd, args[0], engine.TransformScale1Bit, s, p)
			if err != nil {
				return err
			}
			return renderResult(rendererFor(cmd), res)
		},
	}
	addSelectionFlags(cmd, sel, false)
	cmd.Flags().BoolVar(&undo, "undo", false, "Revert a previous correction")
	cmd.Flags().BoolVar(&noScaleWeights, "no-scale-weights", false, "Leave WEIGHT and WEIGHT_SPECTRUM unchanged")
	return cmd
}

func newInvertSubbandCommand() *cobra.Command {
	sel := &SelectionOptions{}

	cmd := &cobra.Command{
		Use:   "invert_subband <ms> <antenna>...",
		Short: "Reverse the channel order of antennas",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sel.Selection(args[1:])
			if err != nil {
				return err
			}
			res, err := runTransform(cmd, args[0], engine.TransformInvertSubband, s, engine.Params{})
			if err != nil {
				return err
			}
			return renderResult(rendererFor(cmd), res)
		},
	}
	addSelectionFlags(cmd, sel, true)
	return cmd
}

func newFlagWeightsCommand() *cobra.Command {
	var (
		noApply   bool
		reference string
		antennas  []string
	)
	sel := &SelectionOptions{}

	cmd := &cobra.Command{
		Use:   "flag_weights <ms> <threshold>",
		Short: "Flag visibilities with low weights",
		Long: `Flag every polarization whose weight is below threshold (0 to 1)
across all its channels. Existing flags are kept.

With --weight-reference max the threshold is relative to the largest
selected weight. --no-apply only reports the counts.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", core.ErrInvalidThreshold, args[1])
			}
			s, err := sel.Selection(antennas)
			if err != nil {
				return err
			}
			p := engine.Params{
				Threshold:       threshold,
				Apply:           !noApply,
				WeightReference: engine.WeightReference(reference),
			}
			res, err := runTransform(cmd, args[0], engine.TransformFlagWeights, s, p)
			if err != nil {
				return err
			}
			return renderFlagStats(rendererFor(cmd), res)
		},
	}
	addSelectionFlags(cmd, sel, true)
	cmd.Flags().BoolVar(&noApply, "no-apply", false, "Report only, do not write flags")
	cmd.Flags().StringVar(&reference, "weight-reference", "", "Threshold reference: absolute or max (default from config)")
	cmd.Flags().StringSliceVar(&antennas, "antennas", nil, "Restrict to baselines of these antennas")
	_ = cmd.RegisterFlagCompletionFunc("weight-reference", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(engine.WeightAbsolute), string(engine.WeightMax)}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func renderFlagStats(r *output.Renderer, res *engine.Result) error {
	if ok, err := r.Structured(res); ok || err != nil {
		return err
	}
	st := res.Stats
	r.Printf("%d weights below %g (%.2f%% of all, %.2f%% of nonzero)\n",
		st.Matched, st.Threshold, st.Percent(), st.PercentNonzero())
	switch {
	case res.DryRun:
		r.Warning("dry run, nothing written")
	case res.Counters.Written > 0:
		r.Success(fmt.Sprintf("flagged %d new entries in %d rows", st.NewlyFlagged(), res.Counters.Written))
	}
	return nil
}

func newExpNameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "expname <ms> <new_name>",
		Short: "Rename the experiment",
		Long: `Set the project code in the OBSERVATION table. The observer is
renamed too when it held the old project code.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runTransform(cmd, args[0], engine.TransformChangeProjectName, engine.Selection{}, engine.Params{Name: args[1]})
			if err != nil {
				return err
			}
			r := rendererFor(cmd)
			if ok, err := r.Structured(res); ok || err != nil {
				return err
			}
			if res.DryRun {
				r.Warning("dry run, nothing written")
			}
			r.Success(fmt.Sprintf("project renamed from %s to %s", res.Project.Old, res.Project.New))
			return nil
		},
	}
}

func newSrcNameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "srcname <ms> <src_name> <new_name>",
		Short: "Rename a source",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := engine.Params{OldName: args[1], Name: args[2]}
			res, err := runTransform(cmd, args[0], engine.TransformChangeSourceName, engine.Selection{}, p)
			if err != nil {
				return err
			}
			r := rendererFor(cmd)
			if ok, err := r.Structured(res); ok || err != nil {
				return err
			}
			switch {
			case !res.Source.Changed:
				r.Muted(fmt.Sprintf("source %s already named %s", res.Source.Old, res.Source.New))
			case res.DryRun:
				r.Warning("dry run, nothing written")
				r.Success(fmt.Sprintf("source %s renamed to %s", res.Source.Old, res.Source.New))
			default:
				r.Success(fmt.Sprintf("source %s renamed to %s", res.Source.Old, res.Source.New))
			}
			return nil
		},
	}
}

// rendererFor builds a renderer for cmd from the loaded configuration.
func rendererFor(cmd *cobra.Command) *output.Renderer {
	return NewCommandContextWithoutEngine(cmd).Renderer
}
