package core

import (
	"fmt"
	"strings"
)

// Stokes is a casacore Stokes/correlation code as stored in POLARIZATION.CORR_TYPE.
type Stokes int32

// Correlation codes. Values match the casacore Stokes enumeration.
const (
	StokesUndefined Stokes = iota
	StokesI
	StokesQ
	StokesU
	StokesV
	StokesRR
	StokesRL
	StokesLR
	StokesLL
	StokesXX
	StokesXY
	StokesYX
	StokesYY
	StokesRX
	StokesRY
	StokesLX
	StokesLY
	StokesXR
	StokesXL
	StokesYR
	StokesYL
	StokesPP
	StokesPQ
	StokesQP
	StokesQQ
	StokesRCircular
	StokesLCircular
	StokesLinear
	StokesPtotal
	StokesPlinear
	StokesPFtotal
	StokesPFlinear
	StokesPangle
)

var stokesNames = [...]string{
	"Undefined", "I", "Q", "U", "V",
	"RR", "RL", "LR", "LL",
	"XX", "XY", "YX", "YY",
	"RX", "RY", "LX", "LY", "XR", "XL", "YR", "YL",
	"PP", "PQ", "QP", "QQ",
	"RCircular", "LCircular", "Linear",
	"Ptotal", "Plinear", "PFtotal", "PFlinear", "Pangle",
}

func (s Stokes) String() string {
	if s >= 0 && int(s) < len(stokesNames) {
		return stokesNames[s]
	}
	return fmt.Sprintf("Stokes(%d)", int32(s))
}

// ParseStokes resolves a correlation name such as "RR" or "xy".
func ParseStokes(name string) (Stokes, error) {
	for i, n := range stokesNames {
		if strings.EqualFold(n, name) {
			return Stokes(i), nil
		}
	}
	return StokesUndefined, fmt.Errorf("unknown Stokes parameter %q", name)
}

// Convention is the feed basis shared by every correlation of a dataset.
type Convention int

const (
	ConventionUnknown Convention = iota
	ConventionCircular
	ConventionLinear
)

func (c Convention) String() string {
	switch c {
	case ConventionCircular:
		return "circular"
	case ConventionLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// Hands returns the letters of the two feeds, in hand-index order.
func (c Convention) Hands() [2]string {
	switch c {
	case ConventionCircular:
		return [2]string{"R", "L"}
	case ConventionLinear:
		return [2]string{"X", "Y"}
	default:
		return [2]string{}
	}
}

// product returns the convention and the hand indices (antenna1, antenna2)
// of a correlation code. ok is false for codes that are not a
// same-basis correlation product.
func (s Stokes) product() (conv Convention, h1, h2 int, ok bool) {
	switch {
	case s >= StokesRR && s <= StokesLL:
		d := int(s - StokesRR)
		return ConventionCircular, d / 2, d % 2, true
	case s >= StokesXX && s <= StokesYY:
		d := int(s - StokesXX)
		return ConventionLinear, d / 2, d % 2, true
	default:
		return ConventionUnknown, 0, 0, false
	}
}
