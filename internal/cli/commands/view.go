package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/mstools/internal/catalog"
	"github.com/leapstack-labs/mstools/internal/cli/output"
	"github.com/spf13/cobra"
)

// ViewOptions holds options for the view command.
type ViewOptions struct {
	Stats bool
}

// NewViewCommand creates the view command.
func NewViewCommand() *cobra.Command {
	opts := &ViewOptions{}

	cmd := &cobra.Command{
		Use:   "view <ms>",
		Short: "Summarize a dataset",
		Long: `Print the project, observation time range, frequency setup, sources
and antennas of a dataset.

With --stats the visibility rows are scanned to report which antennas
actually observed.`,
		Example: `  # Summarize a dataset
  mstools view n24l1.ms

  # Also check which antennas have data
  mstools view n24l1.ms --stats

  # Machine-readable output
  mstools view n24l1.ms -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Stats, "stats", "s", false, "Scan the rows to find the antennas that observed")

	return cmd
}

func runView(cmd *cobra.Command, path string, opts *ViewOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := cc.Engine.Summary(cmd.Context(), path, opts.Stats)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if ok, err := r.Structured(s); ok || err != nil {
		return err
	}
	printSummary(r, s, opts.Stats)
	return nil
}

func printSummary(r *output.Renderer, s *catalog.Summary, stats bool) {
	r.Header(1, fmt.Sprintf("Experiment %s", s.Project))
	r.KeyValue("Dataset", s.Dataset)
	r.Println()

	obs := s.Observation
	r.Header(2, "Observation")
	r.KeyValue("Epoch", fmt.Sprintf("%s (DOY %d, MJD %.1f)", obs.Epoch, obs.DOY, obs.MJD))
	r.KeyValue("Start", obs.Start.Format("2006-01-02 15:04:05"))
	r.KeyValue("End", obs.End.Format("2006-01-02 15:04:05"))
	r.KeyValue("Duration", fmt.Sprintf("%.2f h", obs.DurationHours))
	r.Println()

	f := s.Frequency
	r.Header(2, "Frequency setup")
	r.KeyValue("Central frequency", fmt.Sprintf("%.2f MHz", f.MeanFrequency/1e6))
	r.KeyValue("Band", fmt.Sprintf("%.2f - %.2f MHz", f.Low()/1e6, f.High()/1e6))
	r.KeyValue("Subbands", fmt.Sprintf("%d x %.2f MHz, %d channels each", f.Subbands, f.Bandwidth/1e6, f.Channels))
	r.KeyValue("Polarizations", strings.Join(f.Polarizations, " "))
	r.Println()

	r.Header(2, "Sources")
	names := make([]string, len(s.Sources))
	for i, src := range s.Sources {
		names[i] = src.Name
	}
	r.Println("  " + strings.Join(names, ", "))
	r.Println()

	if len(s.Scans) > 0 {
		r.Header(2, "Scans")
		rows := make([][]any, len(s.Scans))
		for i, sc := range s.Scans {
			rows[i] = []any{sc.Name, sc.Start.Format("15:04:05"), sc.End.Format("15:04:05")}
		}
		r.Table([]string{"Scan", "Start", "End"}, rows)
		r.Println()
	}

	r.Header(2, "Antennas")
	st := r.Styles()
	rows := make([][]any, len(s.Antennas))
	for i, a := range s.Antennas {
		oneBit := ""
		if a.OneBit {
			oneBit = "1-bit"
		}
		rows[i] = []any{a.ID, st.Antenna.Render(a.Name), a.Station, a.Mount, oneBit}
	}
	r.Table([]string{"ID", "Name", "Station", "Mount", "Sampling"}, rows)

	if stats {
		if missing := s.MissingAntennas(); len(missing) > 0 {
			r.Warning(fmt.Sprintf("no data for %s", strings.Join(missing, ", ")))
		} else {
			r.Success("all antennas have data")
		}
	}
}

// ExportOptions holds options for the export command.
type ExportOptions struct {
	File  string
	Stats bool
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export <ms>",
		Short: "Export dataset metadata as JSON or YAML",
		Long: `Write the dataset summary as JSON or YAML.

The format follows --output; with --file it is taken from the file
extension (.json, .yaml or .yml).`,
		Example: `  # JSON to stdout
  mstools export n24l1.ms -o json

  # YAML file
  mstools export n24l1.ms --file n24l1.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVarP(&opts.Stats, "stats", "s", false, "Scan the rows to find the antennas that observed")

	return cmd
}

func runExport(cmd *cobra.Command, path string, opts *ExportOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := cc.Engine.Summary(cmd.Context(), path, opts.Stats)
	if err != nil {
		return err
	}

	if opts.File == "" {
		if cc.Renderer.EffectiveMode() == output.ModeYAML {
			return cc.Renderer.YAML(s)
		}
		return cc.Renderer.JSON(s)
	}

	f, err := os.Create(opts.File)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.File, err)
	}
	defer func() { _ = f.Close() }()

	mode := output.ModeJSON
	switch strings.ToLower(filepath.Ext(opts.File)) {
	case ".yaml", ".yml":
		mode = output.ModeYAML
	}
	r := output.NewRendererWithTTY(f, cc.Renderer.ErrWriter(), false, mode)
	if _, err := r.Structured(s); err != nil {
		return fmt.Errorf("failed to encode %s: %w", opts.File, err)
	}

	cc.Logger.Info("exported summary", "dataset", path, "file", opts.File)
	cc.Renderer.Success(fmt.Sprintf("wrote %s", opts.File))
	return nil
}
