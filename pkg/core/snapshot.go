package core

import (
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// SnapshotParams is the raw material of a Snapshot, as read from subtables.
type SnapshotParams struct {
	Project       string
	AntennaNames  []string
	Polarizations []Stokes
	OneBit        []int
	Scans         map[string]TimeWindow
	Sources       []string
	Observation   TimeWindow
}

// Snapshot is the immutable metadata view shared by every transform of one
// operation: antenna ids, polarization setup, 1-bit antennas, named scans
// and source names.
type Snapshot struct {
	project     string
	antennas    *AntennaCatalog
	pols        *PolarizationSetup
	oneBit      *roaring.Bitmap
	scans       map[string]TimeWindow
	sources     []string
	observation TimeWindow
}

// NewSnapshot validates p and freezes it.
func NewSnapshot(p SnapshotParams) (*Snapshot, error) {
	pols, err := NewPolarizationSetup(p.Polarizations)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		project:     p.Project,
		antennas:    NewAntennaCatalog(p.AntennaNames),
		pols:        pols,
		oneBit:      roaring.New(),
		scans:       maps.Clone(p.Scans),
		sources:     slices.Clone(p.Sources),
		observation: p.Observation,
	}
	for _, id := range p.OneBit {
		if id >= 0 && id < s.antennas.Len() {
			s.oneBit.Add(uint32(id))
		}
	}
	if s.scans == nil {
		s.scans = map[string]TimeWindow{}
	}
	return s, nil
}

// Project returns OBSERVATION.PROJECT.
func (s *Snapshot) Project() string { return s.project }

// Antennas returns the antenna catalog.
func (s *Snapshot) Antennas() *AntennaCatalog { return s.antennas }

// AntennaID resolves an antenna name.
func (s *Snapshot) AntennaID(name string) (int, error) { return s.antennas.ID(name) }

// Polarization returns the polarization setup.
func (s *Snapshot) Polarization() *PolarizationSetup { return s.pols }

// IsOneBit reports whether antenna id was recorded with 1-bit sampling.
func (s *Snapshot) IsOneBit(id int) bool {
	return id >= 0 && s.oneBit.Contains(uint32(id))
}

// OneBitAntennas returns a copy of the 1-bit antenna set.
func (s *Snapshot) OneBitAntennas() *roaring.Bitmap { return s.oneBit.Clone() }

// WithOneBit returns a copy of s whose 1-bit set is replaced by ids.
func (s *Snapshot) WithOneBit(ids *roaring.Bitmap) *Snapshot {
	out := *s
	out.oneBit = ids.Clone()
	return &out
}

// ScanWindow returns the time range of a named scan.
func (s *Snapshot) ScanWindow(name string) (TimeWindow, error) {
	if w, ok := s.scans[name]; ok {
		return w, nil
	}
	return TimeWindow{}, &UnknownScanError{Name: name, Available: s.ScanNames()}
}

// ScanNames returns the named scans, sorted.
func (s *Snapshot) ScanNames() []string {
	return slices.Sorted(maps.Keys(s.scans))
}

// Sources returns FIELD names in id order.
func (s *Snapshot) Sources() []string { return slices.Clone(s.sources) }

// SourceID resolves a FIELD name to its row id.
func (s *Snapshot) SourceID(name string) (int, error) {
	if i := slices.Index(s.sources, name); i >= 0 {
		return i, nil
	}
	return 0, &SourceNotFoundError{Name: name, Available: s.Sources()}
}

// Observation returns the OBSERVATION time range.
func (s *Snapshot) Observation() TimeWindow { return s.observation }
