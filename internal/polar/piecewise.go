package polar

import (
	"math"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// RadialNode pairs a blade radius with the polar that governs it.
type RadialNode struct {
	RadiusM float64
	Polar   Polar
}

// Piecewise selects among polars by blade radius: at solve time the
// station radius picks the node nearest in L1 distance.
type Piecewise struct {
	nodes []RadialNode
}

// NewPiecewise builds a selector from strictly increasing radius nodes.
func NewPiecewise(nodes []RadialNode) (*Piecewise, error) {
	if len(nodes) == 0 {
		return nil, errs.New(errs.InvalidInput, "piecewise polar: no nodes")
	}
	prev := math.Inf(-1)
	for i, n := range nodes {
		if !numeric.IsFinite(n.RadiusM) || n.RadiusM <= prev {
			return nil, errs.Newf(errs.InvalidInput, "piecewise polar: radius not strictly increasing at node %d", i)
		}
		if n.Polar == nil {
			return nil, errs.Newf(errs.InvalidInput, "piecewise polar: nil polar at node %d", i)
		}
		prev = n.RadiusM
	}
	cp := make([]RadialNode, len(nodes))
	copy(cp, nodes)
	return &Piecewise{nodes: cp}, nil
}

// At returns the polar whose node radius is nearest to r.
func (p *Piecewise) At(r float64) Polar {
	best := 0
	bestD := math.Abs(p.nodes[0].RadiusM - r)
	for i := 1; i < len(p.nodes); i++ {
		if d := math.Abs(p.nodes[i].RadiusM - r); d < bestD {
			best, bestD = i, d
		}
	}
	return p.nodes[best].Polar
}

// RadialSampler adapts Piecewise for solvers that sample per station.
type RadialSampler struct {
	pw *Piecewise
}

// NewRadialSampler wraps a Piecewise selector.
func NewRadialSampler(pw *Piecewise) *RadialSampler {
	return &RadialSampler{pw: pw}
}

// SampleAt samples the node polar nearest to radius r.
func (s *RadialSampler) SampleAt(r float64, q Query) (Output, error) {
	return s.pw.At(r).Sample(q)
}
