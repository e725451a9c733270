package bemt

import (
	"testing"

	"github.com/skylift/rotoreval/internal/errs"
)

func TestSensitivitySigns(t *testing.T) {
	s := NewSolver(testPolar())
	a := NewAnalyzer(s)

	res, err := a.Compute(hoverInputs(350, 6), DefaultSensitivityConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Code != errs.Ok {
		t.Fatalf("code = %v", res.Code)
	}

	// More omega, more thrust and power.
	if !(res.Omega.NdT > 0) || !(res.Omega.NdP > 0) {
		t.Errorf("omega sensitivities: %+v, want positive", res.Omega)
	}
	// More collective, more thrust.
	if !(res.Collective.NdT > 0) {
		t.Errorf("collective n_dT = %v, want positive", res.Collective.NdT)
	}
	// Denser air, more thrust.
	if !(res.Rho.NdT > 0) {
		t.Errorf("rho n_dT = %v, want positive", res.Rho.NdT)
	}
	// Bigger rotor, more thrust.
	if !(res.RadiusScale.NdT > 0) {
		t.Errorf("radius-scale n_dT = %v, want positive", res.RadiusScale.NdT)
	}
	if !(res.ChordScale.NdT > 0) {
		t.Errorf("chord-scale n_dT = %v, want positive", res.ChordScale.NdT)
	}
}

func TestSensitivityPropagatesFailure(t *testing.T) {
	s := NewSolver(testPolar())
	a := NewAnalyzer(s)

	in := hoverInputs(450, 6)
	in.Cfg.MachMax = 0.1 // baseline already out of range

	res, err := a.Compute(in, DefaultSensitivityConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Code != errs.OutOfRange {
		t.Fatalf("code = %v, want OutOfRange", res.Code)
	}
}

func TestSensitivityConfigValidation(t *testing.T) {
	s := NewSolver(testPolar())
	a := NewAnalyzer(s)

	cfg := DefaultSensitivityConfig()
	cfg.HOmegaRel = 0
	if _, err := a.Compute(hoverInputs(350, 6), cfg); errs.KindOf(err) != errs.InvalidConfig {
		t.Errorf("want InvalidConfig, got %v", err)
	}
}
