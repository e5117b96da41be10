package engine

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// runInvertSubband reverses the channel axis of the selected rows.
// WEIGHT has no channel axis and is left alone.
func runInvertSubband(ctx context.Context, c *Call) (*Result, error) {
	return c.execute(ctx, Plan{
		Name:     TransformInvertSubband,
		Columns:  chanColumns,
		Optional: chanOptionalColumns,
		Apply: func(ch *Chunk, mask *roaring.Bitmap) error {
			cols := loaded(ch, chanColumns, chanOptionalColumns)
			for _, col := range cols {
				if len(col.CellShape()) != 2 {
					return fmt.Errorf("%s column with cell %v has no channel axis", col.Kind(), col.CellShape())
				}
			}
			for _, r := range mask.ToArray() {
				for _, col := range cols {
					reverseChannels(col, int(r))
				}
			}
			return nil
		},
	})
}

// reverseChannels reverses the outer axis of a [channel, polarization]
// cell in place.
func reverseChannels(col core.Column, r int) {
	shape := col.CellShape()
	nchan, npol := shape[0], shape[1]
	base := r * col.CellLen()
	for lo, hi := 0, nchan-1; lo < hi; lo, hi = lo+1, hi-1 {
		for p := range npol {
			col.Swap(base+lo*npol+p, base+hi*npol+p)
		}
	}
}
