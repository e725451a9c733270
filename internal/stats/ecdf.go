package stats

import (
	"math"
	"sort"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// ECDF is a monotonically growing, finalize-once sample vector. Samples
// accumulate until Finalize sorts the vector; cdf/ccdf/quantile queries
// are only valid afterwards. Non-finite samples are dropped on entry.
type ECDF struct {
	xs        []float64
	finalized bool
}

// NewECDF returns an empty distribution.
func NewECDF() *ECDF {
	return &ECDF{}
}

// Append adds samples; only finite values are retained. Appending after
// Finalize is rejected.
func (e *ECDF) Append(samples ...float64) error {
	if e.finalized {
		return errs.New(errs.InvalidInput, "ecdf already finalized")
	}
	for _, x := range samples {
		if numeric.IsFinite(x) {
			e.xs = append(e.xs, x)
		}
	}
	return nil
}

// Finalize sorts the sample vector; queries become valid.
func (e *ECDF) Finalize() {
	if e.finalized {
		return
	}
	sort.Float64s(e.xs)
	e.finalized = true
}

// Finalized reports whether queries are valid.
func (e *ECDF) Finalized() bool { return e.finalized }

// Size returns the retained sample count.
func (e *ECDF) Size() int { return len(e.xs) }

// CDF returns P(X <= x); zero before finalization or on empty data.
func (e *ECDF) CDF(x float64) float64 {
	if !e.finalized || len(e.xs) == 0 || !numeric.IsFinite(x) {
		return 0
	}
	// First index > x, which equals the count of samples <= x.
	k := sort.Search(len(e.xs), func(i int) bool { return e.xs[i] > x })
	return numeric.Clamp(float64(k)/float64(len(e.xs)), 0, 1)
}

// CCDF returns P(X >= x).
func (e *ECDF) CCDF(x float64) float64 {
	if !e.finalized || len(e.xs) == 0 || !numeric.IsFinite(x) {
		return 0
	}
	// First index >= x; everything from there on counts.
	k := sort.SearchFloat64s(e.xs, x)
	return numeric.Clamp(float64(len(e.xs)-k)/float64(len(e.xs)), 0, 1)
}

// Quantile returns the p-quantile using the R type-7 rule with linear
// interpolation.
func (e *ECDF) Quantile(p float64) float64 {
	if !e.finalized || len(e.xs) == 0 || !numeric.IsFinite(p) {
		return 0
	}
	n := len(e.xs)
	if n == 1 {
		return e.xs[0]
	}
	pp := numeric.Clamp(p, 0, 1)
	h := 1 + float64(n-1)*pp
	hf := math.Floor(h)
	j := int(math.Max(1, math.Min(hf, float64(n)))) - 1
	g := h - hf
	if j+1 >= n {
		return e.xs[n-1]
	}
	q := (1-g)*e.xs[j] + g*e.xs[j+1]
	if !numeric.IsFinite(q) {
		return 0
	}
	return q
}

// Summary is the moment summary of a finalized distribution.
type Summary struct {
	N      int
	Min    float64
	Max    float64
	Mean   float64
	Stddev float64
}

// Summarize computes the summary; zero-valued for empty data.
func (e *ECDF) Summarize() Summary {
	var s Summary
	s.N = len(e.xs)
	if s.N == 0 {
		return s
	}
	r := NewRunning()
	for _, x := range e.xs {
		r.Push(x)
	}
	s.Min = r.MinOrZero()
	s.Max = r.MaxOrZero()
	s.Mean = r.Mean
	s.Stddev = r.Stddev()
	return s
}
