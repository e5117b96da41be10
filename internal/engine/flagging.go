package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// WeightReference selects what a flag_weights threshold is relative to.
type WeightReference string

const (
	// WeightAbsolute compares weights to the threshold itself.
	WeightAbsolute WeightReference = "absolute"
	// WeightMax compares weights to threshold times the largest selected weight.
	WeightMax WeightReference = "max"
)

// ParseWeightReference accepts "absolute", "max" or "" (absolute).
func ParseWeightReference(s string) (WeightReference, error) {
	switch WeightReference(s) {
	case "", WeightAbsolute:
		return WeightAbsolute, nil
	case WeightMax:
		return WeightMax, nil
	}
	return "", fmt.Errorf("invalid weight reference %q: must be %s or %s", s, WeightAbsolute, WeightMax)
}

func validateFlagWeights(p Params) error {
	if math.IsNaN(p.Threshold) || p.Threshold < 0 || p.Threshold > 1 {
		return &core.InvalidThresholdError{Value: p.Threshold}
	}
	_, err := ParseWeightReference(string(p.WeightReference))
	return err
}

// runFlagWeights compares every WEIGHT entry of the selected rows with the
// threshold. With Apply the matching polarizations are flagged across all
// channels; existing flags are never cleared.
func runFlagWeights(ctx context.Context, c *Call) (*Result, error) {
	threshold := c.Params.Threshold
	ref, _ := ParseWeightReference(string(c.Params.WeightReference))
	if ref == WeightMax {
		peak, err := c.maxWeight(ctx)
		if err != nil {
			return nil, err
		}
		threshold *= peak
		c.Logger.Debug("threshold relative to peak weight", "peak", peak, "threshold", threshold)
	}

	npol := c.Snapshot.Polarization().Len()
	stats := &FlagStats{Threshold: threshold}
	plan := Plan{Name: TransformFlagWeights, Inputs: []string{"WEIGHT"}}
	if c.Params.Apply {
		plan.Columns = []string{"FLAG"}
	} else {
		plan.Inputs = append(plan.Inputs, "FLAG")
	}
	plan.Apply = func(ch *Chunk, mask *roaring.Bitmap) error {
		weights, err := Get[float64](ch, "WEIGHT")
		if err != nil {
			return err
		}
		flags, err := Get[bool](ch, "FLAG")
		if err != nil {
			return err
		}
		if weights.CellLen() != npol || flags.CellLen()%npol != 0 {
			return fmt.Errorf("WEIGHT cell %v and FLAG cell %v do not match %d polarizations",
				weights.CellShape(), flags.CellShape(), npol)
		}

		for _, r := range mask.ToArray() {
			w := weights.Row(int(r))
			f := flags.Row(int(r))
			for p := range npol {
				matched := w[p] < threshold
				stats.Observe(w[p], matched, allFlagged(f, p, npol))
				if matched && c.Params.Apply {
					for i := p; i < len(f); i += npol {
						f[i] = true
					}
				}
			}
		}
		return nil
	}

	res, err := c.execute(ctx, plan)
	if res != nil {
		res.Stats = stats
		res.DryRun = res.DryRun || !c.Params.Apply
	}
	return res, err
}

func allFlagged(f []bool, p, npol int) bool {
	for i := p; i < len(f); i += npol {
		if !f[i] {
			return false
		}
	}
	return true
}

// maxWeight scans the selected rows for the largest WEIGHT entry.
func (c *Call) maxWeight(ctx context.Context) (float64, error) {
	peak := 0.0
	scan := &Executor{ChunkSize: c.Exec.ChunkSize, DryRun: true, Logger: c.Exec.Logger}
	_, err := scan.Execute(ctx, c.Handle, c.Selector, Plan{
		Name:   "max_weight",
		Inputs: []string{"WEIGHT"},
		Apply: func(ch *Chunk, mask *roaring.Bitmap) error {
			weights, err := Get[float64](ch, "WEIGHT")
			if err != nil {
				return err
			}
			for _, r := range mask.ToArray() {
				for _, w := range weights.Row(int(r)) {
					peak = max(peak, w)
				}
			}
			return nil
		},
	})
	return peak, err
}
