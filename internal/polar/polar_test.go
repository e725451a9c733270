package polar

import (
	"errors"
	"math"
	"testing"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

func TestLinearSample(t *testing.T) {
	p := DefaultLinear()
	if err := p.Validate(); err != nil {
		t.Fatalf("default linear invalid: %v", err)
	}

	out, err := p.Sample(Query{AoARad: numeric.Deg2Rad(5), Reynolds: 1e5})
	if err != nil {
		t.Fatal(err)
	}
	wantCl := 2 * math.Pi * numeric.Deg2Rad(5)
	if math.Abs(out.Cl-wantCl) > 1e-9 {
		t.Errorf("Cl = %v, want %v", out.Cl, wantCl)
	}
	if out.Cd < p.Cd0 {
		t.Errorf("Cd = %v below cd0", out.Cd)
	}

	// Past stall the clamp holds Cl at the stall value.
	stall, _ := p.Sample(Query{AoARad: numeric.Deg2Rad(40), Reynolds: 1e5})
	atStall, _ := p.Sample(Query{AoARad: p.StallRad, Reynolds: 1e5})
	if stall.Cl != atStall.Cl {
		t.Errorf("stall clamp: %v != %v", stall.Cl, atStall.Cl)
	}
}

func TestLinearRejectsBadQuery(t *testing.T) {
	p := DefaultLinear()
	if _, err := p.Sample(Query{AoARad: math.NaN()}); err == nil {
		t.Error("NaN aoa must be rejected")
	}
	if _, err := p.Sample(Query{AoARad: 0, Reynolds: -1}); err == nil {
		t.Error("negative Re must be rejected")
	}
}

func gridPolar(policy OORPolicy) *Tabulated {
	// Cl = alpha (in rad values of the axis), Cd = 0.01 constant;
	// independent of Re so interpolation checks are simple.
	alpha := []float64{-0.2, -0.1, 0.0, 0.1, 0.2}
	re := []float64{1e4, 1e5, 1e6}
	var cl, cd []float64
	for _, a := range alpha {
		for range re {
			cl = append(cl, a)
			cd = append(cd, 0.01)
		}
	}
	return &Tabulated{AlphaRad: alpha, Reynolds: re, Cl: cl, Cd: cd, Policy: policy}
}

func TestTabulatedBilinear(t *testing.T) {
	p := gridPolar(ClampToRange)
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	out, err := p.Sample(Query{AoARad: 0.05, Reynolds: 5e4})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out.Cl-0.05) > 1e-12 {
		t.Errorf("interpolated Cl = %v, want 0.05", out.Cl)
	}
	if math.Abs(out.Cd-0.01) > 1e-12 {
		t.Errorf("interpolated Cd = %v, want 0.01", out.Cd)
	}
}

func TestTabulatedOORPolicy(t *testing.T) {
	clamping := gridPolar(ClampToRange)
	out, err := clamping.Sample(Query{AoARad: 0.5, Reynolds: 1e5})
	if err != nil {
		t.Fatal(err)
	}
	if out.Cl != 0.2 {
		t.Errorf("clamped Cl = %v, want edge value 0.2", out.Cl)
	}

	failing := gridPolar(FailOutOfRange)
	_, err = failing.Sample(Query{AoARad: 0.5, Reynolds: 1e5})
	var te *errs.Error
	if !errors.As(err, &te) || te.Kind != errs.PolarOutOfRange {
		t.Errorf("want PolarOutOfRange, got %v", err)
	}
}

func TestTabulatedValidate(t *testing.T) {
	p := gridPolar(ClampToRange)
	p.AlphaRad[2] = p.AlphaRad[1] // break monotonicity
	if err := p.Validate(); err == nil {
		t.Error("non-increasing alpha axis must fail validation")
	}
}

func rampSlice(offset float64) Slice {
	alpha := []float64{-0.2, -0.1, 0.0, 0.1, 0.2}
	cl := make([]float64, len(alpha))
	cd := make([]float64, len(alpha))
	for i, a := range alpha {
		cl[i] = a + offset
		cd[i] = 0.01
	}
	return Slice{AlphaRad: alpha, Cl: cl, Cd: cd}
}

func TestMultiSliceBilinearCorners(t *testing.T) {
	m := NewMultiSlice()
	// Four corners: Cl offset encodes the corner so the blend is visible.
	if err := m.AddSlice(1e4, 0.0, rampSlice(0.0)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSlice(1e6, 0.0, rampSlice(0.1)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSlice(1e4, 0.4, rampSlice(0.2)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSlice(1e6, 0.4, rampSlice(0.3)); err != nil {
		t.Fatal(err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatal(err)
	}

	// Center of the rectangle: average of all four offsets.
	out, err := m.Sample(Query{AoARad: 0.0, Reynolds: 5.05e5, Mach: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out.Cl-0.15) > 1e-9 {
		t.Errorf("center blend Cl = %v, want 0.15", out.Cl)
	}
}

func TestMultiSliceSparseFallback(t *testing.T) {
	m := NewMultiSlice()
	if err := m.AddSlice(1e4, 0.0, rampSlice(0.0)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSlice(1e6, 0.3, rampSlice(0.1)); err != nil {
		t.Fatal(err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatal(err)
	}
	// No rectangle of four corners exists; the sampler still answers via
	// inverse-distance weighting.
	out, err := m.Sample(Query{AoARad: 0.0, Reynolds: 5e5, Mach: 0.15})
	if err != nil {
		t.Fatal(err)
	}
	if out.Cl < 0.0 || out.Cl > 0.1 {
		t.Errorf("sparse blend Cl = %v outside [0, 0.1]", out.Cl)
	}
}

func TestMultiSliceGuards(t *testing.T) {
	m := NewMultiSlice()
	if _, err := m.Sample(Query{Reynolds: 1e5}); err == nil {
		t.Error("unfinalized sampler must refuse queries")
	}
	if err := m.AddSlice(1e5, 0, rampSlice(0)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSlice(1e5, 0, rampSlice(0)); err == nil {
		t.Error("duplicate slice key must be rejected")
	}
}

func TestPiecewiseNearest(t *testing.T) {
	inner := DefaultLinear()
	outer := DefaultLinear()
	outer.Cd0 = 0.020

	pw, err := NewPiecewise([]RadialNode{
		{RadiusM: 0.1, Polar: inner},
		{RadiusM: 0.4, Polar: outer},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := NewRadialSampler(pw)

	near, _ := s.SampleAt(0.12, Query{AoARad: 0, Reynolds: 1e5})
	far, _ := s.SampleAt(0.39, Query{AoARad: 0, Reynolds: 1e5})
	if near.Cd == far.Cd {
		t.Error("radius selection should pick different polars")
	}
	if far.Cd < near.Cd {
		t.Error("outer polar has higher cd0")
	}
}

func TestPiecewiseValidation(t *testing.T) {
	if _, err := NewPiecewise(nil); err == nil {
		t.Error("empty node list must fail")
	}
	if _, err := NewPiecewise([]RadialNode{
		{RadiusM: 0.4, Polar: DefaultLinear()},
		{RadiusM: 0.1, Polar: DefaultLinear()},
	}); err == nil {
		t.Error("non-increasing radii must fail")
	}
}
