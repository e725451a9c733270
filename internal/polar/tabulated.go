package polar

import (
	"sort"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Tabulated is a row-major 2-D grid of Cl and Cd over strictly increasing
// (alpha, Re) axes with bilinear interpolation. Out-of-range queries are
// clamped or rejected per Policy.
type Tabulated struct {
	AlphaRad []float64
	Reynolds []float64

	// Row-major: index = ia*len(Reynolds) + ir.
	Cl []float64
	Cd []float64

	Policy OORPolicy
}

// Validate checks axis monotonicity and grid shape.
func (p *Tabulated) Validate() error {
	na, nr := len(p.AlphaRad), len(p.Reynolds)
	if na < 2 || nr < 2 {
		return errs.New(errs.InvalidInput, "tabulated polar: axes need at least 2 points")
	}
	if len(p.Cl) != na*nr || len(p.Cd) != na*nr {
		return errs.New(errs.InvalidInput, "tabulated polar: grid size mismatch")
	}
	if !strictlyIncreasing(p.AlphaRad) {
		return errs.New(errs.InvalidInput, "tabulated polar: alpha axis not strictly increasing")
	}
	if !strictlyIncreasing(p.Reynolds) {
		return errs.New(errs.InvalidInput, "tabulated polar: reynolds axis not strictly increasing")
	}
	for i, v := range p.Cl {
		if !numeric.IsFinite(v) {
			return errs.Newf(errs.InvalidInput, "tabulated polar: cl[%d] non-finite", i)
		}
	}
	for i, v := range p.Cd {
		if !numeric.IsFinite(v) || v < 0 {
			return errs.Newf(errs.InvalidInput, "tabulated polar: cd[%d] invalid", i)
		}
	}
	return nil
}

func strictlyIncreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if !numeric.IsFinite(xs[i]) || xs[i] <= xs[i-1] {
			return false
		}
	}
	return len(xs) == 0 || numeric.IsFinite(xs[0])
}

// upperIndex returns i such that axis[i] <= x < axis[i+1], clamped to
// [0, n-2].
func upperIndex(axis []float64, x float64) int {
	n := len(axis)
	if x <= axis[0] {
		return 0
	}
	if x >= axis[n-1] {
		return n - 2
	}
	j := sort.SearchFloat64s(axis, x)
	if j > 0 && axis[j] != x {
		j--
	}
	if j > n-2 {
		j = n - 2
	}
	return j
}

func (p *Tabulated) clampOrFail(x, lo, hi float64) (float64, error) {
	if x < lo || x > hi {
		if p.Policy == FailOutOfRange {
			return 0, errs.Newf(errs.PolarOutOfRange, "polar query %g outside [%g, %g]", x, lo, hi)
		}
		return numeric.Clamp(x, lo, hi), nil
	}
	return x, nil
}

// Sample implements Polar with bilinear interpolation over the grid.
func (p *Tabulated) Sample(q Query) (Output, error) {
	if err := q.validate(); err != nil {
		return Output{}, err
	}

	aoa, err := p.clampOrFail(q.AoARad, p.AlphaRad[0], p.AlphaRad[len(p.AlphaRad)-1])
	if err != nil {
		return Output{}, err
	}
	re, err := p.clampOrFail(q.Reynolds, p.Reynolds[0], p.Reynolds[len(p.Reynolds)-1])
	if err != nil {
		return Output{}, err
	}

	nr := len(p.Reynolds)
	ia := upperIndex(p.AlphaRad, aoa)
	ir := upperIndex(p.Reynolds, re)

	a0, a1 := p.AlphaRad[ia], p.AlphaRad[ia+1]
	r0, r1 := p.Reynolds[ir], p.Reynolds[ir+1]

	ta := 0.0
	if a1 > a0 {
		ta = numeric.Clamp((aoa-a0)/(a1-a0), 0, 1)
	}
	tr := 0.0
	if r1 > r0 {
		tr = numeric.Clamp((re-r0)/(r1-r0), 0, 1)
	}

	idx := func(a, r int) int { return a*nr + r }

	cl0 := lerp(p.Cl[idx(ia, ir)], p.Cl[idx(ia, ir+1)], tr)
	cl1 := lerp(p.Cl[idx(ia+1, ir)], p.Cl[idx(ia+1, ir+1)], tr)
	clq := lerp(cl0, cl1, ta)

	cd0 := lerp(p.Cd[idx(ia, ir)], p.Cd[idx(ia, ir+1)], tr)
	cd1 := lerp(p.Cd[idx(ia+1, ir)], p.Cd[idx(ia+1, ir+1)], tr)
	cdq := lerp(cd0, cd1, ta)

	out := Output{Cl: clq, Cd: cdq}
	if !numeric.IsFinite(out.Cl) {
		out.Cl = 0
	}
	if !numeric.IsFinite(out.Cd) || out.Cd < 0 {
		out.Cd = 0
	}
	return out, nil
}
