// Package stats holds the statistics layer: Welford running moments, a
// bounded reservoir sampler, the finalize-once empirical CDF, and the
// risk analyzer turning ECDFs into pass/fail probabilities.
package stats

import (
	"math"

	"github.com/skylift/rotoreval/internal/numeric"
)

// Running accumulates online moments with hard finite guards; NaN samples
// are ignored rather than corrupting the state.
type Running struct {
	N    int
	Mean float64
	m2   float64
	Min  float64
	Max  float64
}

// NewRunning returns an empty accumulator.
func NewRunning() Running {
	return Running{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Reset clears the accumulator.
func (r *Running) Reset() {
	*r = NewRunning()
}

// Push adds one sample. Non-finite samples are skipped.
func (r *Running) Push(x float64) {
	if !numeric.IsFinite(x) {
		return
	}
	r.N++
	delta := x - r.Mean
	r.Mean += delta / float64(r.N)
	r.m2 += delta * (x - r.Mean)

	if x < r.Min {
		r.Min = x
	}
	if x > r.Max {
		r.Max = x
	}
}

// Variance returns the sample variance (n-1 denominator).
func (r *Running) Variance() float64 {
	if r.N < 2 {
		return 0
	}
	v := r.m2 / float64(r.N-1)
	if !numeric.IsFinite(v) || v < 0 {
		return 0
	}
	return v
}

// Stddev returns the sample standard deviation.
func (r *Running) Stddev() float64 {
	s := math.Sqrt(math.Max(0, r.Variance()))
	if !numeric.IsFinite(s) {
		return 0
	}
	return s
}

// MinOrZero returns Min, or 0 when no sample arrived.
func (r *Running) MinOrZero() float64 {
	if numeric.IsFinite(r.Min) {
		return r.Min
	}
	return 0
}

// MaxOrZero returns Max, or 0 when no sample arrived.
func (r *Running) MaxOrZero() float64 {
	if numeric.IsFinite(r.Max) {
		return r.Max
	}
	return 0
}
