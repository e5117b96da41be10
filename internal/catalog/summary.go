package catalog

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Summary is the exportable description of a dataset.
type Summary struct {
	Dataset     string          `json:"dataset" yaml:"dataset"`
	Project     string          `json:"project" yaml:"project"`
	Observation ObservationInfo `json:"observation" yaml:"observation"`
	Frequency   FrequencySetup  `json:"frequency_setup" yaml:"frequency_setup"`
	Sources     []SourceInfo    `json:"sources" yaml:"sources"`
	Antennas    []AntennaInfo   `json:"antennas" yaml:"antennas"`
	Scans       []ScanInfo      `json:"scans,omitempty" yaml:"scans,omitempty"`
}

// ObservationInfo is the observed time range.
type ObservationInfo struct {
	Start         time.Time `json:"start" yaml:"start"`
	End           time.Time `json:"end" yaml:"end"`
	Epoch         string    `json:"epoch" yaml:"epoch"`
	MJD           float64   `json:"mjd" yaml:"mjd"`
	DOY           int       `json:"doy" yaml:"doy"`
	DurationHours float64   `json:"duration_hours" yaml:"duration_hours"`
}

// FrequencySetup describes the spectral windows. Frequencies are in Hz;
// Bandwidth is that of one subband.
type FrequencySetup struct {
	MeanFrequency  float64  `json:"mean_frequency" yaml:"mean_frequency"`
	Bandwidth      float64  `json:"bandwidth" yaml:"bandwidth"`
	TotalBandwidth float64  `json:"total_bandwidth" yaml:"total_bandwidth"`
	Subbands       int      `json:"n_subbands" yaml:"n_subbands"`
	Channels       int      `json:"n_channels" yaml:"n_channels"`
	Polarizations  []string `json:"polarizations" yaml:"polarizations"`
}

// Low returns the lower edge of the band.
func (f FrequencySetup) Low() float64 { return f.MeanFrequency - f.TotalBandwidth/2 }

// High returns the upper edge of the band.
func (f FrequencySetup) High() float64 { return f.MeanFrequency + f.TotalBandwidth/2 }

// SourceInfo is one FIELD row.
type SourceInfo struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// AntennaInfo is one ANTENNA row.
type AntennaInfo struct {
	ID       int    `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Station  string `json:"station" yaml:"station"`
	Mount    string `json:"mount" yaml:"mount"`
	Observed bool   `json:"observed" yaml:"observed"`
	OneBit   bool   `json:"one_bit" yaml:"one_bit"`
}

// ScanInfo is one named scan.
type ScanInfo struct {
	Name  string    `json:"name" yaml:"name"`
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// BuildSummary describes the dataset behind h. observed holds the ids of
// antennas present in the visibility rows; nil marks every antenna as
// observed.
func BuildSummary(ctx context.Context, store adapter.Store, h adapter.Handle, snap *core.Snapshot, observed *roaring.Bitmap) (*Summary, error) {
	s := &Summary{
		Dataset: h.Path(),
		Project: snap.Project(),
	}

	obs := snap.Observation()
	start, end := core.MJDSecondsToTime(obs.Start), core.MJDSecondsToTime(obs.End)
	s.Observation = ObservationInfo{
		Start:         start,
		End:           end,
		Epoch:         start.Format(time.DateOnly),
		MJD:           core.MJD(start),
		DOY:           core.DayOfYear(start),
		DurationHours: obs.Duration() / 3600,
	}

	freq, err := readFrequencySetup(ctx, store, h)
	if err != nil {
		return nil, err
	}
	for _, l := range snap.Polarization().Labels() {
		freq.Polarizations = append(freq.Polarizations, l.String())
	}
	s.Frequency = freq

	for id, name := range snap.Sources() {
		s.Sources = append(s.Sources, SourceInfo{ID: id, Name: name})
	}

	mounts, err := Mounts(ctx, store, h)
	if err != nil {
		return nil, err
	}
	for _, m := range mounts {
		s.Antennas = append(s.Antennas, AntennaInfo{
			ID:       m.ID,
			Name:     m.Name,
			Station:  m.Station,
			Mount:    m.Mount,
			Observed: observed == nil || observed.Contains(uint32(m.ID)),
			OneBit:   snap.IsOneBit(m.ID),
		})
	}

	for _, name := range snap.ScanNames() {
		w, _ := snap.ScanWindow(name)
		s.Scans = append(s.Scans, ScanInfo{
			Name:  name,
			Start: core.MJDSecondsToTime(w.Start),
			End:   core.MJDSecondsToTime(w.End),
		})
	}
	return s, nil
}

// ObservedAntennas returns the names of antennas marked observed.
func (s *Summary) ObservedAntennas() []string {
	var out []string
	for _, a := range s.Antennas {
		if a.Observed {
			out = append(out, a.Name)
		}
	}
	return out
}

// MissingAntennas returns the names of antennas without visibilities.
func (s *Summary) MissingAntennas() []string {
	var out []string
	for _, a := range s.Antennas {
		if !a.Observed {
			out = append(out, a.Name)
		}
	}
	return out
}

func readFrequencySetup(ctx context.Context, store adapter.Store, h adapter.Handle) (FrequencySetup, error) {
	var f FrequencySetup

	sub, err := OpenSubtable(ctx, store, h, SpectralWindow, true)
	if err != nil {
		return f, err
	}
	defer func() { _ = sub.Close() }()

	nchan, err := readColumn[int32](ctx, sub, "NUM_CHAN")
	if err != nil {
		return f, err
	}
	ref, err := readColumn[float64](ctx, sub, "REF_FREQUENCY")
	if err != nil {
		return f, err
	}
	bw, err := readColumn[float64](ctx, sub, "TOTAL_BANDWIDTH")
	if err != nil {
		return f, err
	}

	f.Subbands = len(nchan.Data)
	if f.Subbands == 0 {
		return f, nil
	}
	f.Channels = int(nchan.Data[0])
	f.Bandwidth = bw.Data[0]

	var centers float64
	for i := range ref.Data {
		centers += ref.Data[i] + bw.Data[i]/2
		f.TotalBandwidth += bw.Data[i]
	}
	f.MeanFrequency = centers / float64(f.Subbands)
	return f, nil
}
