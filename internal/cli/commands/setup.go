package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/mstools/internal/cli/config"
	"github.com/leapstack-labs/mstools/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/mstools/internal/config"
	"github.com/leapstack-labs/mstools/internal/engine"
	"github.com/leapstack-labs/mstools/internal/state"
	"github.com/leapstack-labs/mstools/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// A progress bar labelled with the command name is wired into the engine
// when progress is enabled and stderr is a terminal.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutEngine(cmd)

	bar := cc.Renderer.Progress(cmd.Name(), cc.Cfg.Progress)
	eng, err := createEngine(cc.Cfg, cc.Logger, bar.Func())
	if err != nil {
		return nil, nil, err
	}
	cc.Engine = eng

	cleanup := func() {
		bar.Finish()
		_ = eng.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the loaded configuration, or the defaults when the
// command runs without the root's pre-run hook.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	var s sharedcfg.Settings
	sharedcfg.ApplyDefaults(&s)
	return &config.Config{
		Store:           s.Store,
		ChunkSize:       s.ChunkSize,
		WeightReference: s.WeightReference,
		OneBitAntennas:  s.OneBitAntennas,
		Output:          config.DefaultOutput,
		LogFormat:       config.DefaultLogFormat,
		Progress:        true,
		Journal:         config.DefaultJournal,
	}
}

// errJournalDisabled is returned by openJournal when no journal path is set.
var errJournalDisabled = errors.New("run journal is disabled (set journal in mstools.yaml)")

// openJournal opens the run journal configured in cfg.
func openJournal(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	if cfg.Journal == "" {
		return nil, errJournalDisabled
	}
	j := state.NewSQLiteStore(logger)
	if err := j.Open(ctx, cfg.Journal); err != nil {
		return nil, err
	}
	return j, nil
}

func createEngine(cfg *config.Config, logger *slog.Logger, progress func(done, total int)) (*engine.Engine, error) {
	s := cfg.Settings()
	return engine.New(engine.Config{
		Store:           s.Store,
		ChunkSize:       s.ChunkSize,
		WeightReference: engine.WeightReference(s.WeightReference),
		OneBitAntennas:  s.OneBitAntennas,
		DryRun:          cfg.DryRun,
		Progress:        progress,
		Logger:          logger,
	})
}

// SelectionOptions holds the row-selection flags shared by the run tools.
type SelectionOptions struct {
	StartTime string
	EndTime   string
	Scan      string
	Sources   []string
}

// addSelectionFlags registers the selection flags on cmd. withWindow adds
// the time window flags.
func addSelectionFlags(cmd *cobra.Command, opts *SelectionOptions, withWindow bool) {
	if withWindow {
		cmd.Flags().StringVarP(&opts.StartTime, "starttime", "1", "", "Start time (YYYY/MM/DD/hh:mm[:ss] or YYYY/DOY/hh:mm[:ss])")
		cmd.Flags().StringVarP(&opts.EndTime, "endtime", "2", "", "End time (YYYY/MM/DD/hh:mm[:ss] or YYYY/DOY/hh:mm[:ss])")
		cmd.Flags().StringVar(&opts.Scan, "scan", "", "Restrict to a named scan")
	}
	cmd.Flags().StringSliceVar(&opts.Sources, "source", nil, "Restrict to these sources (comma-separated)")
}

// Selection builds an engine selection over antennas.
func (o *SelectionOptions) Selection(antennas []string) (engine.Selection, error) {
	sel := engine.Selection{
		Antennas: antennas,
		Scan:     strings.TrimSpace(o.Scan),
		Sources:  o.Sources,
	}
	if o.StartTime != "" {
		t, err := core.ParseTime(o.StartTime)
		if err != nil {
			return sel, fmt.Errorf("invalid --starttime: %w", err)
		}
		sel.Start = &t
	}
	if o.EndTime != "" {
		t, err := core.ParseTime(o.EndTime)
		if err != nil {
			return sel, fmt.Errorf("invalid --endtime: %w", err)
		}
		sel.End = &t
	}
	return sel, nil
}

// renderResult prints a transform result in the active output mode.
func renderResult(r *output.Renderer, res *engine.Result) error {
	if ok, err := r.Structured(res); ok || err != nil {
		return err
	}

	msg := fmt.Sprintf("%s: %d of %d rows selected, %d written in %d chunks (%s)",
		res.Transform, res.Counters.Selected, res.Counters.Rows,
		res.Counters.Written, res.Counters.Chunks, res.Duration.Round(time.Millisecond))
	if res.DryRun {
		r.Warning("dry run, nothing written")
	}
	r.Success(msg)
	r.Muted("run " + res.ID)
	return nil
}
