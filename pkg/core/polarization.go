package core

import (
	"slices"
	"strings"
)

// PolarizationSetup is the ordered list of correlation products of a dataset.
// Every label belongs to the same convention, so the hand pair of each
// correlation is derived from its label.
type PolarizationSetup struct {
	labels   []Stokes
	conv     Convention
	products [][2]int
}

// NewPolarizationSetup validates CORR_TYPE labels and derives their products.
func NewPolarizationSetup(labels []Stokes) (*PolarizationSetup, error) {
	if len(labels) == 0 {
		return nil, &UnsupportedPolarizationError{Reason: "no correlations"}
	}

	p := &PolarizationSetup{
		labels:   slices.Clone(labels),
		products: make([][2]int, len(labels)),
	}
	seen := make(map[Stokes]bool, len(labels))
	for i, s := range labels {
		conv, h1, h2, ok := s.product()
		if !ok {
			return nil, &UnsupportedPolarizationError{Labels: labels, Reason: s.String() + " is not a correlation product"}
		}
		if p.conv != ConventionUnknown && conv != p.conv {
			return nil, &UnsupportedPolarizationError{Labels: labels, Reason: "mixed circular and linear correlations"}
		}
		if seen[s] {
			return nil, &UnsupportedPolarizationError{Labels: labels, Reason: "duplicate " + s.String()}
		}
		seen[s] = true
		p.conv = conv
		p.products[i] = [2]int{h1, h2}
	}
	return p, nil
}

// Len returns the number of correlations.
func (p *PolarizationSetup) Len() int { return len(p.labels) }

// Labels returns a copy of the correlation labels in storage order.
func (p *PolarizationSetup) Labels() []Stokes { return slices.Clone(p.labels) }

// Convention returns the feed basis.
func (p *PolarizationSetup) Convention() Convention { return p.conv }

// Index returns the position of label s, or -1.
func (p *PolarizationSetup) Index(s Stokes) int { return slices.Index(p.labels, s) }

// Product returns the hand indices of correlation i.
func (p *PolarizationSetup) Product(i int) (h1, h2 int) {
	return p.products[i][0], p.products[i][1]
}

// ProductIndex returns the correlation holding hands (h1, h2), or -1.
func (p *PolarizationSetup) ProductIndex(h1, h2 int) int {
	return slices.Index(p.products, [2]int{h1, h2})
}

// Hand resolves a feed letter (R, L, X or Y; case-insensitive) to its hand index.
func (p *PolarizationSetup) Hand(letter string) (int, error) {
	hands := p.conv.Hands()
	for i, h := range hands {
		if strings.EqualFold(h, letter) {
			return i, nil
		}
	}
	return 0, &UnknownPolarizationError{Pol: letter, Available: hands[:]}
}

// SwapPermutation maps every correlation to the one with both hands flipped
// (RR<->LL, RL<->LR and the linear equivalents). Correlations whose partner
// is absent map to themselves. The result is an involution.
func (p *PolarizationSetup) SwapPermutation() []int {
	perm := make([]int, len(p.products))
	for i, pr := range p.products {
		perm[i] = p.partner(i, 1-pr[0], 1-pr[1])
	}
	return perm
}

// EndpointFlipPermutation flips only the hand at one baseline endpoint
// (0 for antenna1, 1 for antenna2). The result is an involution.
func (p *PolarizationSetup) EndpointFlipPermutation(endpoint int) []int {
	perm := make([]int, len(p.products))
	for i, pr := range p.products {
		pr[endpoint] = 1 - pr[endpoint]
		perm[i] = p.partner(i, pr[0], pr[1])
	}
	return perm
}

// CopyPairs lists (source, destination) correlation pairs that replace the
// complementary hand at endpoint with hand src. When the endpoint-flipped
// product does not exist, a parallel-hand source is copied onto the fully
// flipped parallel hand, which is what dual-polarization setups need.
func (p *PolarizationSetup) CopyPairs(endpoint, src int) [][2]int {
	var pairs [][2]int
	for i, pr := range p.products {
		if pr[endpoint] != src {
			continue
		}
		target := pr
		target[endpoint] = 1 - src
		dst := p.ProductIndex(target[0], target[1])
		if dst < 0 && pr[0] == pr[1] {
			dst = p.ProductIndex(1-pr[0], 1-pr[1])
		}
		if dst >= 0 && dst != i {
			pairs = append(pairs, [2]int{i, dst})
		}
	}
	return pairs
}

func (p *PolarizationSetup) partner(i, h1, h2 int) int {
	if j := p.ProductIndex(h1, h2); j >= 0 {
		return j
	}
	return i
}

func (p *PolarizationSetup) String() string {
	names := make([]string, len(p.labels))
	for i, s := range p.labels {
		names[i] = s.String()
	}
	return strings.Join(names, " ")
}
