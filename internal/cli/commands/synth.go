package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/mstools/internal/synth"
	"github.com/leapstack-labs/mstools/pkg/core"
	"github.com/spf13/cobra"
)

// SynthOptions holds options for the synth command.
type SynthOptions struct {
	Project          string
	Antennas         []string
	Polarizations    []string
	Sources          []string
	Subbands         int
	Channels         int
	Start            string
	Integration      float64
	Integrations     int
	Autocorrelations bool
	Recorded1Bit     []string
	Spectrum         bool
	Seed             uint64
}

// NewSynthCommand creates the synth command.
func NewSynthCommand() *cobra.Command {
	return newSynthCommand(&SynthOptions{})
}

func newSynthCommand(opts *SynthOptions) *cobra.Command {
	def := synth.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "synth <ms>",
		Short: "Create a synthetic dataset",
		Long: `Write a deterministic synthetic dataset to the configured store.

Antennas are given as NAME[:STATION[:MOUNT]]. Every integration holds one
row per baseline and subband; sources are observed in equal blocks, one
named scan (No0001, No0002, ...) per block.`,
		Example: `  # Default 4 antenna, 2 subband circular setup
  mstools synth test.ms --store sqlite

  # Linear feeds with a recorded 1-bit station
  mstools synth test.ms --pols XX,XY,YX,YY --recorded-1bit YS`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd, args[0], opts)
		},
	}

	pols := make([]string, len(def.Polarizations))
	for i, p := range def.Polarizations {
		pols[i] = p.String()
	}

	cmd.Flags().StringVar(&opts.Project, "project", def.Project, "Project code")
	cmd.Flags().StringSliceVar(&opts.Antennas, "antennas", nil, "Antennas as NAME[:STATION[:MOUNT]] (default EF,WB,YS,HO)")
	cmd.Flags().StringSliceVar(&opts.Polarizations, "pols", pols, "Correlation products")
	cmd.Flags().StringSliceVar(&opts.Sources, "sources", def.Sources, "Source names")
	cmd.Flags().IntVar(&opts.Subbands, "subbands", def.Subbands, "Number of subbands")
	cmd.Flags().IntVar(&opts.Channels, "channels", def.Channels, "Channels per subband")
	cmd.Flags().StringVar(&opts.Start, "start", def.Start.Format("2006/01/02/15:04:05"), "Start time")
	cmd.Flags().Float64Var(&opts.Integration, "integration", def.Integration, "Integration time in seconds")
	cmd.Flags().IntVar(&opts.Integrations, "integrations", def.Integrations, "Number of integrations")
	cmd.Flags().BoolVar(&opts.Autocorrelations, "autocorrelations", false, "Include autocorrelation rows")
	cmd.Flags().StringSliceVar(&opts.Recorded1Bit, "recorded-1bit", nil, "Antennas recorded as 1-bit in the dataset")
	cmd.Flags().BoolVar(&opts.Spectrum, "spectrum", false, "Also write WEIGHT_SPECTRUM and SIGMA columns alongside DATA")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", def.Seed, "Random seed")

	return cmd
}

// Options converts the flags into generator options.
func (o *SynthOptions) Options() (synth.Options, error) {
	opts := synth.DefaultOptions()
	opts.Project = o.Project
	opts.Sources = o.Sources
	opts.Subbands = o.Subbands
	opts.Channels = o.Channels
	opts.Integration = o.Integration
	opts.Integrations = o.Integrations
	opts.Autocorrelations = o.Autocorrelations
	opts.Seed = o.Seed

	if len(o.Antennas) > 0 {
		opts.Antennas = opts.Antennas[:0:0]
		for _, spec := range o.Antennas {
			a, err := parseAntenna(spec)
			if err != nil {
				return opts, err
			}
			opts.Antennas = append(opts.Antennas, a)
		}
	}

	opts.Polarizations = opts.Polarizations[:0:0]
	for _, name := range o.Polarizations {
		s, err := core.ParseStokes(strings.TrimSpace(name))
		if err != nil {
			return opts, err
		}
		opts.Polarizations = append(opts.Polarizations, s)
	}

	start, err := core.ParseTime(o.Start)
	if err != nil {
		return opts, fmt.Errorf("invalid --start: %w", err)
	}
	opts.Start = start

	for _, name := range o.Recorded1Bit {
		i := slices.IndexFunc(opts.Antennas, func(a synth.Antenna) bool {
			return strings.EqualFold(a.Name, name) || strings.EqualFold(a.Station, name)
		})
		if i < 0 {
			available := make([]string, len(opts.Antennas))
			for j, a := range opts.Antennas {
				available[j] = a.Name
			}
			return opts, &core.UnknownAntennaError{Name: name, Available: available}
		}
		opts.OneBit = append(opts.OneBit, i)
	}
	return opts, nil
}

func parseAntenna(spec string) (synth.Antenna, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) > 3 || parts[0] == "" {
		return synth.Antenna{}, fmt.Errorf("invalid antenna %q: want NAME[:STATION[:MOUNT]]", spec)
	}
	a := synth.Antenna{Name: parts[0], Station: parts[0], Mount: "ALT-AZ"}
	if len(parts) > 1 && parts[1] != "" {
		a.Station = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		a.Mount = parts[2]
	}
	return a, nil
}

func runSynth(cmd *cobra.Command, path string, opts *SynthOptions) error {
	gen, err := opts.Options()
	if err != nil {
		return err
	}
	d, err := synth.Generate(gen)
	if err != nil {
		return err
	}
	d.Spectrum = opts.Spectrum

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cc.Engine.Synthesize(cmd.Context(), path, d); err != nil {
		return err
	}

	r := cc.Renderer
	info := map[string]any{
		"dataset":  path,
		"project":  d.Project,
		"rows":     len(d.Rows),
		"antennas": len(d.Antennas),
		"subbands": len(d.SpectralWindows),
		"channels": d.Channels(),
	}
	if ok, err := r.Structured(info); ok || err != nil {
		return err
	}
	r.Success(fmt.Sprintf("wrote %s: %d rows, %d antennas, %d subbands of %d channels",
		path, len(d.Rows), len(d.Antennas), len(d.SpectralWindows), d.Channels()))
	return nil
}
