package engine

// FlagStats accumulates weight-threshold counts across chunks. Each
// (row, polarization) WEIGHT entry counts once.
type FlagStats struct {
	Threshold      float64 `json:"threshold" yaml:"threshold"`
	Examined       int64   `json:"examined" yaml:"examined"`
	Matched        int64   `json:"matched" yaml:"matched"`
	Nonzero        int64   `json:"nonzero" yaml:"nonzero"`
	MatchedNonzero int64   `json:"matched_nonzero" yaml:"matched_nonzero"`
	AlreadyFlagged int64   `json:"already_flagged" yaml:"already_flagged"`
}

// Observe records one entry. flagged reports whether every channel of the
// entry was flagged before the pass.
func (s *FlagStats) Observe(weight float64, matched, flagged bool) {
	s.Examined++
	nonzero := weight != 0
	if nonzero {
		s.Nonzero++
	}
	if !matched {
		return
	}
	s.Matched++
	if nonzero {
		s.MatchedNonzero++
	}
	if flagged {
		s.AlreadyFlagged++
	}
}

// Percent is the share of examined entries below the threshold.
func (s *FlagStats) Percent() float64 { return percent(s.Matched, s.Examined) }

// PercentNonzero is the share of nonzero-weight entries below the threshold.
func (s *FlagStats) PercentNonzero() float64 { return percent(s.MatchedNonzero, s.Nonzero) }

// NewlyFlagged counts matched entries that were not already fully flagged.
func (s *FlagStats) NewlyFlagged() int64 { return s.Matched - s.AlreadyFlagged }

// Summary returns (matched, percent of all, percent of nonzero-weight).
// Counts are WEIGHT entries, one per (row, polarization), so a row with four
// polarizations below the threshold adds four to matched.
func (s *FlagStats) Summary() (int64, float64, float64) {
	return s.Matched, s.Percent(), s.PercentNonzero()
}

func percent(n, of int64) float64 {
	if of == 0 {
		return 0
	}
	return 100 * float64(n) / float64(of)
}
