package polar

import (
	"sort"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Slice is one alpha-indexed polar curve at a fixed (Re, Mach) point.
type Slice struct {
	AlphaRad []float64
	Cl       []float64
	Cd       []float64
}

// Validate checks the slice shape and monotonicity.
func (s *Slice) Validate() error {
	if len(s.AlphaRad) < 5 {
		return errs.New(errs.InvalidInput, "polar slice: alpha axis too small")
	}
	if len(s.Cl) != len(s.AlphaRad) || len(s.Cd) != len(s.AlphaRad) {
		return errs.New(errs.InvalidInput, "polar slice: cl/cd size mismatch")
	}
	if !strictlyIncreasing(s.AlphaRad) {
		return errs.New(errs.InvalidInput, "polar slice: alpha not strictly increasing")
	}
	for i := range s.AlphaRad {
		if !numeric.IsFinite(s.Cl[i]) || !numeric.IsFinite(s.Cd[i]) {
			return errs.Newf(errs.InvalidInput, "polar slice: non-finite entry at %d", i)
		}
		if s.Cd[i] < 0 {
			return errs.Newf(errs.InvalidInput, "polar slice: negative cd at %d", i)
		}
	}
	return nil
}

func (s *Slice) sampleAlpha(aoa float64) Output {
	// Clamp alpha to the slice range; minor excursions are common during
	// trim iterations.
	a := numeric.Clamp(aoa, s.AlphaRad[0], s.AlphaRad[len(s.AlphaRad)-1])
	j1 := sort.SearchFloat64s(s.AlphaRad, a)
	if j1 <= 0 {
		return Output{Cl: s.Cl[0], Cd: s.Cd[0]}
	}
	if j1 >= len(s.AlphaRad) {
		n := len(s.AlphaRad) - 1
		return Output{Cl: s.Cl[n], Cd: s.Cd[n]}
	}
	j0 := j1 - 1
	t := numeric.SafeDiv(a-s.AlphaRad[j0], s.AlphaRad[j1]-s.AlphaRad[j0], 0)
	return Output{
		Cl: lerp(s.Cl[j0], s.Cl[j1], t),
		Cd: lerp(s.Cd[j0], s.Cd[j1], t),
	}
}

type sliceKey struct {
	reynolds float64
	mach     float64
}

// MultiSlice indexes alpha slices by (Re, Mach). Sampling picks the four
// bracketing corner slices and blends bilinearly; when the grid is sparse
// and fewer than four corners exist it falls back to inverse-distance
// weighting over the slices found.
type MultiSlice struct {
	slices    map[sliceKey]*Slice
	finalized bool
}

// NewMultiSlice returns an empty, unfinalized sampler.
func NewMultiSlice() *MultiSlice {
	return &MultiSlice{slices: make(map[sliceKey]*Slice)}
}

// AddSlice registers a slice at (reynolds, mach). Duplicate keys and
// additions after Finalize are rejected.
func (m *MultiSlice) AddSlice(reynolds, mach float64, s Slice) error {
	if m.finalized {
		return errs.New(errs.InvalidInput, "multislice polar: already finalized")
	}
	if !numeric.IsFinite(reynolds) || reynolds <= 0 {
		return errs.New(errs.InvalidInput, "multislice polar: reynolds invalid")
	}
	if !numeric.IsFinite(mach) || mach < 0 {
		return errs.New(errs.InvalidInput, "multislice polar: mach invalid")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	k := sliceKey{reynolds, mach}
	if _, dup := m.slices[k]; dup {
		return errs.New(errs.InvalidInput, "multislice polar: duplicate slice key")
	}
	m.slices[k] = &s
	return nil
}

// Finalize freezes the sampler. At least one slice is required.
func (m *MultiSlice) Finalize() error {
	if len(m.slices) == 0 {
		return errs.New(errs.InvalidInput, "multislice polar: no slices")
	}
	m.finalized = true
	return nil
}

func bracket(xs []float64, q float64) (float64, float64) {
	if q <= xs[0] {
		return xs[0], xs[0]
	}
	if q >= xs[len(xs)-1] {
		return xs[len(xs)-1], xs[len(xs)-1]
	}
	j := sort.SearchFloat64s(xs, q)
	if xs[j] == q {
		return q, q
	}
	return xs[j-1], xs[j]
}

func (m *MultiSlice) nearestSlices(reynolds, mach float64) []struct {
	key sliceKey
	s   *Slice
} {
	type ks = struct {
		key sliceKey
		s   *Slice
	}
	var out []ks

	if len(m.slices) == 1 {
		for k, s := range m.slices {
			out = append(out, ks{k, s})
		}
		return out
	}

	var res, mas []float64
	for k := range m.slices {
		res = append(res, k.reynolds)
		mas = append(mas, k.mach)
	}
	res = dedupSorted(res)
	mas = dedupSorted(mas)

	re0, re1 := bracket(res, reynolds)
	m0, m1 := bracket(mas, mach)

	for _, k := range []sliceKey{{re0, m0}, {re1, m0}, {re0, m1}, {re1, m1}} {
		if s, ok := m.slices[k]; ok {
			seen := false
			for _, e := range out {
				if e.key == k {
					seen = true
					break
				}
			}
			if !seen {
				out = append(out, ks{k, s})
			}
		}
	}

	// Sparse grid: nearest slice in normalized L2.
	if len(out) == 0 {
		best := struct {
			d2 float64
			k  sliceKey
			s  *Slice
		}{d2: -1}
		for k, s := range m.slices {
			dre := (k.reynolds - reynolds) / maxf(1.0, reynolds)
			dm := k.mach - mach
			d2 := dre*dre + dm*dm
			if best.d2 < 0 || d2 < best.d2 {
				best.d2, best.k, best.s = d2, k, s
			}
		}
		if best.s != nil {
			out = append(out, ks{best.k, best.s})
		}
	}
	return out
}

func dedupSorted(xs []float64) []float64 {
	sort.Float64s(xs)
	out := xs[:0]
	for i, x := range xs {
		if i == 0 || x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Sample implements Polar over the slice grid.
func (m *MultiSlice) Sample(q Query) (Output, error) {
	if !m.finalized {
		return Output{}, errs.New(errs.InvalidInput, "multislice polar: not finalized")
	}
	if err := q.validate(); err != nil {
		return Output{}, err
	}
	if q.Reynolds <= 0 {
		return Output{}, errs.New(errs.InvalidInput, "multislice polar: reynolds must be > 0")
	}

	slices := m.nearestSlices(q.Reynolds, q.Mach)
	if len(slices) == 0 {
		return Output{}, errs.New(errs.MissingPolarData, "multislice polar: no usable slices")
	}

	if len(slices) == 1 {
		return slices[0].s.sampleAlpha(q.AoARad), nil
	}

	if len(slices) < 4 {
		// Inverse-distance blend over the corners that do exist.
		var wsum, clsum, cdsum float64
		for _, e := range slices {
			dre := (e.key.reynolds - q.Reynolds) / maxf(1.0, q.Reynolds)
			dm := e.key.mach - q.Mach
			d2 := dre*dre + dm*dm
			w := 1.0 / maxf(1e-12, d2)
			po := e.s.sampleAlpha(q.AoARad)
			clsum += w * po.Cl
			cdsum += w * po.Cd
			wsum += w
		}
		return Output{Cl: clsum / wsum, Cd: cdsum / wsum}, nil
	}

	// 4-corner bilinear blend.
	re0, re1 := slices[0].key.reynolds, slices[0].key.reynolds
	m0, m1 := slices[0].key.mach, slices[0].key.mach
	for _, e := range slices {
		if e.key.reynolds < re0 {
			re0 = e.key.reynolds
		}
		if e.key.reynolds > re1 {
			re1 = e.key.reynolds
		}
		if e.key.mach < m0 {
			m0 = e.key.mach
		}
		if e.key.mach > m1 {
			m1 = e.key.mach
		}
	}
	tre := 0.0
	if re1 != re0 {
		tre = numeric.SafeDiv(q.Reynolds-re0, re1-re0, 0)
	}
	tm := 0.0
	if m1 != m0 {
		tm = numeric.SafeDiv(q.Mach-m0, m1-m0, 0)
	}

	find := func(re, ma float64) (*Slice, error) {
		if s, ok := m.slices[sliceKey{re, ma}]; ok {
			return s, nil
		}
		return nil, errs.New(errs.MissingPolarData, "multislice polar: missing bilinear corner slice")
	}
	s00, err := find(re0, m0)
	if err != nil {
		return Output{}, err
	}
	s10, err := find(re1, m0)
	if err != nil {
		return Output{}, err
	}
	s01, err := find(re0, m1)
	if err != nil {
		return Output{}, err
	}
	s11, err := find(re1, m1)
	if err != nil {
		return Output{}, err
	}

	p00 := s00.sampleAlpha(q.AoARad)
	p10 := s10.sampleAlpha(q.AoARad)
	p01 := s01.sampleAlpha(q.AoARad)
	p11 := s11.sampleAlpha(q.AoARad)

	cl0 := lerp(p00.Cl, p10.Cl, tre)
	cl1 := lerp(p01.Cl, p11.Cl, tre)
	cd0 := lerp(p00.Cd, p10.Cd, tre)
	cd1 := lerp(p01.Cd, p11.Cd, tre)

	return Output{Cl: lerp(cl0, cl1, tm), Cd: lerp(cd0, cd1, tm)}, nil
}
