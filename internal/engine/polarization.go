package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/leapstack-labs/mstools/pkg/core"
)

var feedLetters = []string{"R", "L", "X", "Y"}

func validateCopyPol(p Params) error {
	for _, l := range feedLetters {
		if strings.EqualFold(p.Source, l) {
			return nil
		}
	}
	return &core.UnknownPolarizationError{Pol: p.Source, Available: feedLetters}
}

// runPolswap exchanges the hands of the selected rows. Without PerStation
// every selected row gets the full swap (RR<->LL, RL<->LR); with it only the
// hand of the selected endpoint flips, and a row whose both endpoints are
// selected gets the full swap.
func runPolswap(ctx context.Context, c *Call) (*Result, error) {
	pols := c.Snapshot.Polarization()
	npol := pols.Len()
	swap := pols.SwapPermutation()
	flip := [2][]int{pols.EndpointFlipPermutation(0), pols.EndpointFlipPermutation(1)}

	permFor := func(first, second bool) []int {
		switch {
		case !c.Params.PerStation || (first && second):
			return swap
		case first:
			return flip[0]
		default:
			return flip[1]
		}
	}

	return c.execute(ctx, Plan{
		Name:     TransformPolswap,
		Columns:  polColumns,
		Optional: polOptionalColumns,
		Apply: func(ch *Chunk, mask *roaring.Bitmap) error {
			a1, a2, err := baselinesOf(ch)
			if err != nil {
				return err
			}
			cols := loaded(ch, polColumns, polOptionalColumns)
			if err := checkPolAxis(cols, npol); err != nil {
				return err
			}
			for _, r := range mask.ToArray() {
				perm := permFor(c.Selector.Endpoints(a1.Data[r], a2.Data[r]))
				for _, col := range cols {
					permuteCell(col, int(r), npol, perm)
				}
			}
			return nil
		},
	})
}

// runCopyPol overwrites the complementary hand with the source hand at
// every selected endpoint.
func runCopyPol(ctx context.Context, c *Call) (*Result, error) {
	pols := c.Snapshot.Polarization()
	src, err := pols.Hand(c.Params.Source)
	if err != nil {
		return nil, err
	}
	npol := pols.Len()
	pairs := [2][][2]int{pols.CopyPairs(0, src), pols.CopyPairs(1, src)}
	c.Logger.Debug("copy_pol pairs", "source", c.Params.Source, "antenna1", pairs[0], "antenna2", pairs[1])

	return c.execute(ctx, Plan{
		Name:     TransformCopyPol,
		Columns:  polColumns,
		Optional: polOptionalColumns,
		Apply: func(ch *Chunk, mask *roaring.Bitmap) error {
			a1, a2, err := baselinesOf(ch)
			if err != nil {
				return err
			}
			cols := loaded(ch, polColumns, polOptionalColumns)
			if err := checkPolAxis(cols, npol); err != nil {
				return err
			}
			for _, r := range mask.ToArray() {
				first, second := c.Selector.Endpoints(a1.Data[r], a2.Data[r])
				for endpoint, selected := range [2]bool{first, second} {
					if !selected {
						continue
					}
					for _, col := range cols {
						copyCell(col, int(r), npol, pairs[endpoint])
					}
				}
			}
			return nil
		},
	})
}

// checkPolAxis verifies every column's innermost axis is the polarization.
func checkPolAxis(cols []core.Column, npol int) error {
	for _, col := range cols {
		shape := col.CellShape()
		if len(shape) == 0 || shape[len(shape)-1] != npol {
			return fmt.Errorf("%s column with cell %v has no polarization axis of length %d", col.Kind(), shape, npol)
		}
	}
	return nil
}

// permuteCell applies an involutive permutation to the polarization axis of
// row r, for every channel.
func permuteCell(col core.Column, r, npol int, perm []int) {
	n := col.CellLen()
	for base := r * n; base < (r+1)*n; base += npol {
		for k, j := range perm {
			if j > k {
				col.Swap(base+k, base+j)
			}
		}
	}
}

// copyCell copies polarization src onto dst of row r, for every channel.
func copyCell(col core.Column, r, npol int, pairs [][2]int) {
	n := col.CellLen()
	for base := r * n; base < (r+1)*n; base += npol {
		for _, p := range pairs {
			col.CopyElem(base+p[1], base+p[0])
		}
	}
}
