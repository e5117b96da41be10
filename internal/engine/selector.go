package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Columns read by every selector.
const (
	colAntenna1 = "ANTENNA1"
	colAntenna2 = "ANTENNA2"
	colTime     = "TIME"
	colFieldID  = "FIELD_ID"
)

// Selection names the rows an operation touches. It is resolved against a
// Snapshot by Compile.
type Selection struct {
	// Antennas holds antenna names and "A-B" baseline tokens. A row matches
	// when either endpoint is a listed antenna or its baseline is listed.
	// Empty selects every row.
	Antennas []string `json:"antennas,omitempty" yaml:"antennas,omitempty"`

	Start *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End   *time.Time `json:"end,omitempty" yaml:"end,omitempty"`

	// Scan narrows the window to a named scan.
	Scan string `json:"scan,omitempty" yaml:"scan,omitempty"`

	// Sources restricts rows by FIELD name. Empty means any source.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// HasAntennas reports whether the selection names antennas or baselines.
func (s Selection) HasAntennas() bool { return len(s.Antennas) > 0 }

// Selector is a compiled Selection.
type Selector struct {
	all       bool
	antennas  *roaring.Bitmap
	baselines *roaring.Bitmap
	members   *roaring.Bitmap
	window    core.TimeWindow
	sources   *roaring.Bitmap
}

// Compile resolves names in sel against snap.
func Compile(snap *core.Snapshot, sel Selection) (*Selector, error) {
	s := &Selector{
		all:       !sel.HasAntennas(),
		antennas:  roaring.New(),
		baselines: roaring.New(),
		members:   roaring.New(),
	}

	for _, token := range sel.Antennas {
		if err := s.addAntennaToken(snap, token); err != nil {
			return nil, err
		}
	}

	window, err := core.WindowBetween(sel.Start, sel.End)
	if err != nil {
		return nil, err
	}
	if sel.Scan != "" {
		scan, err := snap.ScanWindow(sel.Scan)
		if err != nil {
			return nil, err
		}
		if window, err = window.Intersect(scan); err != nil {
			return nil, fmt.Errorf("scan %s: %w", sel.Scan, err)
		}
	}
	s.window = window

	if len(sel.Sources) > 0 {
		s.sources = roaring.New()
		for _, name := range sel.Sources {
			id, err := snap.SourceID(name)
			if err != nil {
				return nil, err
			}
			s.sources.Add(uint32(id))
		}
	}
	return s, nil
}

// addAntennaToken resolves a whole antenna name first so that names
// containing a dash keep working, then falls back to an A-B baseline.
func (s *Selector) addAntennaToken(snap *core.Snapshot, token string) error {
	id, err := snap.AntennaID(token)
	if err == nil {
		s.antennas.Add(uint32(id))
		s.members.Add(uint32(id))
		return nil
	}
	a, b, ok := strings.Cut(token, "-")
	if !ok || !errors.Is(err, core.ErrUnknownAntenna) {
		return err
	}
	id1, err := snap.AntennaID(a)
	if err != nil {
		return err
	}
	id2, err := snap.AntennaID(b)
	if err != nil {
		return err
	}
	s.baselines.Add(baselineKey(int32(id1), int32(id2)))
	s.members.AddMany([]uint32{uint32(id1), uint32(id2)})
	return nil
}

func baselineKey(a1, a2 int32) uint32 {
	lo, hi := min(a1, a2), max(a1, a2)
	return uint32(lo)<<16 | uint32(hi)
}

// Window returns the effective time window.
func (s *Selector) Window() core.TimeWindow { return s.window }

// SelectsAll reports whether no antenna or baseline restriction applies.
func (s *Selector) SelectsAll() bool { return s.all }

// Antennas returns the selected antenna ids.
func (s *Selector) Antennas() *roaring.Bitmap { return s.antennas.Clone() }

// Members returns every antenna named by the selection, including both
// ends of listed baselines.
func (s *Selector) Members() *roaring.Bitmap { return s.members.Clone() }

// Columns lists the columns Mask needs.
func (s *Selector) Columns() []string {
	cols := []string{colAntenna1, colAntenna2, colTime}
	if s.sources != nil {
		cols = append(cols, colFieldID)
	}
	return cols
}

// Includes is the per-row predicate.
func (s *Selector) Includes(a1, a2 int32, t float64, field int32) bool {
	if !s.window.Contains(t) {
		return false
	}
	if s.sources != nil && !s.sources.Contains(uint32(field)) {
		return false
	}
	if s.all {
		return true
	}
	return s.antennas.Contains(uint32(a1)) ||
		s.antennas.Contains(uint32(a2)) ||
		s.baselines.Contains(baselineKey(a1, a2))
}

// Endpoints reports which endpoints of a baseline are selected. A listed
// baseline, or a selection without antennas, selects both.
func (s *Selector) Endpoints(a1, a2 int32) (first, second bool) {
	if s.all || s.baselines.Contains(baselineKey(a1, a2)) {
		return true, true
	}
	return s.antennas.Contains(uint32(a1)), s.antennas.Contains(uint32(a2))
}

// Mask returns the chunk-relative offsets of the rows Includes accepts.
func (s *Selector) Mask(c *Chunk) (*roaring.Bitmap, error) {
	a1, err := Get[int32](c, colAntenna1)
	if err != nil {
		return nil, err
	}
	a2, err := Get[int32](c, colAntenna2)
	if err != nil {
		return nil, err
	}
	times, err := Get[float64](c, colTime)
	if err != nil {
		return nil, err
	}
	var fields *core.Array[int32]
	if s.sources != nil {
		if fields, err = Get[int32](c, colFieldID); err != nil {
			return nil, err
		}
	}

	mask := roaring.New()
	for r := range c.Rows {
		var field int32
		if fields != nil {
			field = fields.Data[r]
		}
		if s.Includes(a1.Data[r], a2.Data[r], times.Data[r], field) {
			mask.Add(uint32(r))
		}
	}
	return mask, nil
}
