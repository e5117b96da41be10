// Package synth builds small synthetic visibility datasets. The CLI's synth
// command uses it to produce demo data and tests use it as a fixture
// builder.
package synth

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Antenna is one ANTENNA row.
type Antenna struct {
	Name    string
	Station string
	Mount   string
}

// Scan is one SCAN row.
type Scan struct {
	Name  string
	Start float64
	End   float64
}

// SpectralWindow is one SPECTRAL_WINDOW row. RefFrequency is the first
// channel frequency in Hz.
type SpectralWindow struct {
	NumChan        int
	RefFrequency   float64
	TotalBandwidth float64
}

// Row is one visibility row. Data and Flag are [channel, polarization]
// row-major; Weight is per polarization.
type Row struct {
	Antenna1   int32
	Antenna2   int32
	Time       float64
	FieldID    int32
	DataDescID int32
	Data       []complex128
	Flag       []bool
	Weight     []float64
}

// Dataset is everything needed to write a dataset.
type Dataset struct {
	Project         string
	Observer        string
	Antennas        []Antenna
	Polarizations   []core.Stokes
	Sources         []string
	Scans           []Scan
	OneBit          []int
	SpectralWindows []SpectralWindow
	TimeRange       core.TimeWindow
	Rows            []Row
	// Spectrum adds WEIGHT_SPECTRUM and SIGMA (optional MS columns).
	Spectrum bool
}

// Channels returns the channel count of DATA cells.
func (d *Dataset) Channels() int {
	if len(d.SpectralWindows) == 0 {
		return 1
	}
	return d.SpectralWindows[0].NumChan
}

// Options control Generate.
type Options struct {
	Project       string
	Antennas      []Antenna
	Polarizations []core.Stokes
	Sources       []string
	Subbands      int
	Channels      int
	Start         time.Time
	// Integration is the sampling interval in seconds.
	Integration  float64
	Integrations int
	// Autocorrelations adds antenna-with-itself rows.
	Autocorrelations bool
	OneBit           []int
	Seed             uint64
}

// DefaultAntennas is a small EVN-like array.
func DefaultAntennas() []Antenna {
	return []Antenna{
		{Name: "EF", Station: "Ef", Mount: "ALT-AZ"},
		{Name: "WB", Station: "Wb", Mount: "EQUATORIAL"},
		{Name: "YS", Station: "Ys", Mount: "ALT-AZ"},
		{Name: "HO", Station: "Ho", Mount: "X_YEW"},
	}
}

// DefaultOptions returns a 4 antenna, 2 subband, 8 channel circular setup.
func DefaultOptions() Options {
	return Options{
		Project:       "EM001",
		Antennas:      DefaultAntennas(),
		Polarizations: []core.Stokes{core.StokesRR, core.StokesRL, core.StokesLR, core.StokesLL},
		Sources:       []string{"3C84", "J0329+5430"},
		Subbands:      2,
		Channels:      8,
		Start:         time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		Integration:   2,
		Integrations:  10,
		Seed:          1,
	}
}

// Generate builds a deterministic dataset from opts. Each integration holds
// one row per baseline and subband; sources are observed in equal blocks,
// one named scan per block.
func Generate(opts Options) (*Dataset, error) {
	if len(opts.Antennas) < 2 {
		return nil, fmt.Errorf("need at least 2 antennas, got %d", len(opts.Antennas))
	}
	if opts.Subbands < 1 || opts.Channels < 1 || opts.Integrations < 1 {
		return nil, fmt.Errorf("subbands, channels and integrations must be positive")
	}
	if len(opts.Sources) == 0 {
		return nil, fmt.Errorf("need at least one source")
	}
	if _, err := core.NewPolarizationSetup(opts.Polarizations); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	npol := len(opts.Polarizations)
	start := core.TimeToMJDSeconds(opts.Start)

	d := &Dataset{
		Project:       opts.Project,
		Observer:      opts.Project,
		Antennas:      append([]Antenna(nil), opts.Antennas...),
		Polarizations: append([]core.Stokes(nil), opts.Polarizations...),
		Sources:       append([]string(nil), opts.Sources...),
		OneBit:        append([]int(nil), opts.OneBit...),
	}
	for s := range opts.Subbands {
		d.SpectralWindows = append(d.SpectralWindows, SpectralWindow{
			NumChan:        opts.Channels,
			RefFrequency:   4.8e9 + float64(s)*32e6,
			TotalBandwidth: 32e6,
		})
	}

	perSource := (opts.Integrations + len(opts.Sources) - 1) / len(opts.Sources)
	for i := range opts.Integrations {
		t := start + float64(i)*opts.Integration
		field := int32(i / perSource)
		for a1 := range opts.Antennas {
			for a2 := a1; a2 < len(opts.Antennas); a2++ {
				if a1 == a2 && !opts.Autocorrelations {
					continue
				}
				for spw := range opts.Subbands {
					d.Rows = append(d.Rows, randomRow(rng, int32(a1), int32(a2), t, field, int32(spw), opts.Channels, npol))
				}
			}
		}
	}

	end := start + float64(opts.Integrations-1)*opts.Integration
	d.TimeRange = core.TimeWindow{Start: start, End: end}
	for s := range opts.Sources {
		first := s * perSource
		last := min((s+1)*perSource, opts.Integrations) - 1
		if first > last {
			break
		}
		d.Scans = append(d.Scans, Scan{
			Name:  fmt.Sprintf("No%04d", s+1),
			Start: start + float64(first)*opts.Integration,
			End:   start + float64(last)*opts.Integration,
		})
	}
	return d, nil
}

func randomRow(rng *rand.Rand, a1, a2 int32, t float64, field, spw int32, nchan, npol int) Row {
	r := Row{
		Antenna1:   a1,
		Antenna2:   a2,
		Time:       t,
		FieldID:    field,
		DataDescID: spw,
		Data:       make([]complex128, nchan*npol),
		Flag:       make([]bool, nchan*npol),
		Weight:     make([]float64, npol),
	}
	for i := range r.Data {
		amp := 0.5 + rng.Float64()
		phase := 2 * math.Pi * rng.Float64()
		r.Data[i] = complex(amp*math.Cos(phase), amp*math.Sin(phase))
		r.Flag[i] = rng.Float64() < 0.02
	}
	for p := range r.Weight {
		r.Weight[p] = rng.Float64()
	}
	return r
}

// Schema returns the MAIN table schema of d.
func (d *Dataset) Schema() adapter.Schema {
	nchan, npol := d.Channels(), len(d.Polarizations)
	cols := []adapter.ColumnSpec{
		{Name: "ANTENNA1", Kind: core.KindInt32},
		{Name: "ANTENNA2", Kind: core.KindInt32},
		{Name: "TIME", Kind: core.KindFloat64},
		{Name: "FIELD_ID", Kind: core.KindInt32},
		{Name: "DATA_DESC_ID", Kind: core.KindInt32},
		{Name: "DATA", Kind: core.KindComplex128, Cell: []int{nchan, npol}},
		{Name: "FLAG", Kind: core.KindBool, Cell: []int{nchan, npol}},
		{Name: "WEIGHT", Kind: core.KindFloat64, Cell: []int{npol}},
	}
	if d.Spectrum {
		cols = append(cols,
			adapter.ColumnSpec{Name: "WEIGHT_SPECTRUM", Kind: core.KindFloat64, Cell: []int{nchan, npol}},
			adapter.ColumnSpec{Name: "SIGMA", Kind: core.KindFloat64, Cell: []int{npol}},
		)
	}
	return adapter.Schema{Rows: len(d.Rows), Columns: cols}
}

// Write creates the dataset at path, replacing any existing tables.
func Write(ctx context.Context, store adapter.Store, path string, d *Dataset) error {
	nchan, npol := d.Channels(), len(d.Polarizations)
	for i, r := range d.Rows {
		if len(r.Data) != nchan*npol || len(r.Flag) != nchan*npol || len(r.Weight) != npol {
			return fmt.Errorf("row %d does not match %d channels x %d polarizations", i, nchan, npol)
		}
	}

	h, err := store.Create(ctx, path, d.Schema())
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	if err := writeMain(ctx, h, d, nchan, npol); err != nil {
		return err
	}
	return writeSubtables(ctx, store, h, d)
}

type namedColumn struct {
	name string
	col  core.Column
}

func writeMain(ctx context.Context, h adapter.Handle, d *Dataset, nchan, npol int) error {
	n := len(d.Rows)
	ant1 := core.NewArray[int32](n)
	ant2 := core.NewArray[int32](n)
	times := core.NewArray[float64](n)
	fields := core.NewArray[int32](n)
	ddids := core.NewArray[int32](n)
	data := core.NewArray[complex128](n, nchan, npol)
	flags := core.NewArray[bool](n, nchan, npol)
	weights := core.NewArray[float64](n, npol)

	for i, r := range d.Rows {
		ant1.Data[i] = r.Antenna1
		ant2.Data[i] = r.Antenna2
		times.Data[i] = r.Time
		fields.Data[i] = r.FieldID
		ddids.Data[i] = r.DataDescID
		copy(data.Row(i), r.Data)
		copy(flags.Row(i), r.Flag)
		copy(weights.Row(i), r.Weight)
	}

	cols := []namedColumn{
		{"ANTENNA1", ant1}, {"ANTENNA2", ant2}, {"TIME", times},
		{"FIELD_ID", fields}, {"DATA_DESC_ID", ddids},
		{"DATA", data}, {"FLAG", flags}, {"WEIGHT", weights},
	}
	if d.Spectrum {
		spectrum := core.NewArray[float64](n, nchan, npol)
		sigma := core.NewArray[float64](n, npol)
		for i, r := range d.Rows {
			for c := range nchan {
				copy(spectrum.Row(i)[c*npol:(c+1)*npol], r.Weight)
			}
			for p, w := range r.Weight {
				if w > 0 {
					sigma.Row(i)[p] = 1 / math.Sqrt(w)
				}
			}
		}
		cols = append(cols, namedColumn{"WEIGHT_SPECTRUM", spectrum}, namedColumn{"SIGMA", sigma})
	}

	if n == 0 {
		return nil
	}
	for _, c := range cols {
		if err := h.WriteColumn(ctx, c.name, c.col, 0); err != nil {
			return err
		}
	}
	return nil
}
