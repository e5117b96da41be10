package engine

import (
	"context"
	"errors"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// Amplitude corrections for 1-bit sampling: π/2 over the Parseval
// correction when both antennas are 1-bit, its square root when only one is.
var (
	OneBitFactorBoth = math.Pi / 2 / 1.1329552
	OneBitFactorOne  = math.Sqrt(OneBitFactorBoth)
)

// ErrNoOneBitAntennas is returned by scale1bit when neither the selection
// nor the dataset names a 1-bit antenna.
var ErrNoOneBitAntennas = errors.New("no 1-bit antennas selected or recorded in the dataset")

// oneBitFactor returns the DATA multiplier for a baseline with n 1-bit
// endpoints.
func oneBitFactor(n int, undo bool) float64 {
	f := 1.0
	switch n {
	case 1:
		f = OneBitFactorOne
	case 2:
		f = OneBitFactorBoth
	}
	if undo {
		return 1 / f
	}
	return f
}

// runScale1Bit scales DATA, and WEIGHT when asked, on baselines to 1-bit
// antennas. The selected antennas are the 1-bit set; without a selection
// the dataset's recorded set is used. Autocorrelations are left alone.
// Applying the transform twice scales twice.
func runScale1Bit(ctx context.Context, c *Call) (*Result, error) {
	oneBit := c.Selector.Members()
	if oneBit.IsEmpty() {
		oneBit = c.Snapshot.OneBitAntennas()
	}
	if oneBit.IsEmpty() {
		return nil, ErrNoOneBitAntennas
	}
	undo := c.Params.Undo
	c.Logger.Debug("scaling 1-bit baselines",
		"antennas", oneBit.ToArray(),
		"undo", undo,
		"scale_weights", c.Params.ScaleWeights)

	plan := Plan{Name: TransformScale1Bit, Columns: []string{"DATA"}}
	if c.Params.ScaleWeights {
		plan.Columns = append(plan.Columns, "WEIGHT")
		plan.Optional = []string{"WEIGHT_SPECTRUM"}
	}
	plan.Apply = func(ch *Chunk, mask *roaring.Bitmap) error {
		a1, a2, err := baselinesOf(ch)
		if err != nil {
			return err
		}
		data, err := Get[complex128](ch, "DATA")
		if err != nil {
			return err
		}
		var weights [][]float64
		for _, name := range plan.Columns[1:] {
			w, err := Get[float64](ch, name)
			if err != nil {
				return err
			}
			weights = append(weights, w.Data)
		}
		for _, name := range plan.Optional {
			if !ch.Has(name) {
				continue
			}
			w, err := Get[float64](ch, name)
			if err != nil {
				return err
			}
			weights = append(weights, w.Data)
		}

		for _, r := range mask.ToArray() {
			ant1, ant2 := a1.Data[r], a2.Data[r]
			if ant1 == ant2 {
				continue
			}
			n := 0
			if oneBit.Contains(uint32(ant1)) {
				n++
			}
			if oneBit.Contains(uint32(ant2)) {
				n++
			}
			if n == 0 {
				continue
			}
			f := oneBitFactor(n, undo)
			row := data.Row(int(r))
			for i := range row {
				row[i] *= complex(f, 0)
			}
			for _, w := range weights {
				cell := len(w) / ch.Rows
				for i := int(r) * cell; i < (int(r)+1)*cell; i++ {
					w[i] *= f
				}
			}
		}
		return nil
	}
	return c.execute(ctx, plan)
}
