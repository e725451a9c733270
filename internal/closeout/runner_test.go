package closeout

import (
	"math"
	"testing"

	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
	"github.com/skylift/rotoreval/internal/polar"
)

func runnerGeometry() bemt.RotorGeometry {
	chords := []float64{0.06, 0.06, 0.055, 0.05, 0.045}
	twistsDeg := []float64{12, 10, 8, 6, 4}
	radii := []float64{0.10, 0.20, 0.30, 0.40, 0.48}
	stations := make([]bemt.BladeStation, len(radii))
	for i := range radii {
		stations[i] = bemt.BladeStation{
			RM: radii[i], ChordM: chords[i], TwistRad: numeric.Deg2Rad(twistsDeg[i]),
		}
	}
	return bemt.RotorGeometry{
		BladeCount: 2, RadiusM: 0.5, HubRadiusM: 0.06,
		TipLoss: bemt.TipLossPrandtl, Stations: stations,
	}
}

func runnerCase(id string) Case {
	return Case{
		CaseID: id,
		Hover: bemt.Inputs{
			Geom: runnerGeometry(),
			Env:  bemt.DefaultEnvironment(),
			Op: bemt.OperatingPoint{
				Mode: bemt.ModeHover, OmegaRadS: 400,
				CollectiveOffsetRad: numeric.Deg2Rad(6),
				TargetThrustN:       numeric.Unset(),
			},
			Cfg: bemt.DefaultSolverConfig(),
		},
	}
}

func TestRunnerProducesRows(t *testing.T) {
	r := NewRunner(bemt.UniformSampler{P: polar.DefaultLinear()})

	c := runnerCase("alpha")
	c.RunForward = true
	c.VInplaneMps = 10
	c.ForwardCfg = bemt.DefaultForwardConfig()
	c.RunSensitivity = true
	c.SensCfg = bemt.DefaultSensitivityConfig()

	rows, err := r.Run([]Case{c, runnerCase("beta")}, 1.2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}

	a := rows[0]
	if a.CaseID != "alpha" || a.KT != 1.2 {
		t.Errorf("identity: %s kT=%v", a.CaseID, a.KT)
	}
	if a.HoverCode != errs.Ok || !(a.HoverTN > 0) || !(a.HoverPW > 0) {
		t.Errorf("hover fields: %+v", a)
	}
	wantArea := math.Pi * 0.25
	if math.Abs(a.AM2-wantArea) > 1e-12 {
		t.Errorf("area = %v", a.AM2)
	}
	if math.Abs(a.DLNm2-a.HoverTN/wantArea) > 1e-9 {
		t.Errorf("disk loading = %v", a.DLNm2)
	}
	if a.FwdCode != errs.Ok || !(a.FwdTN > 0) {
		t.Errorf("forward fields: code=%v T=%v", a.FwdCode, a.FwdTN)
	}
	if !numeric.IsSet(a.SensOmegaNdT) || !(a.SensOmegaNdT > 0) {
		t.Errorf("sensitivities not populated: %v", a.SensOmegaNdT)
	}

	// Case without forward/sensitivity keeps those fields unset.
	b := rows[1]
	if numeric.IsSet(b.VInplaneMps) || numeric.IsSet(b.FwdTN) {
		t.Errorf("forward fields must stay unset: %v %v", b.VInplaneMps, b.FwdTN)
	}
	if numeric.IsSet(b.SensOmegaNdT) {
		t.Error("sensitivity fields must stay unset")
	}
}

func TestRunnerRejectsBadCase(t *testing.T) {
	r := NewRunner(bemt.UniformSampler{P: polar.DefaultLinear()})

	c := runnerCase("")
	if _, err := r.Run([]Case{c}, 1.2); err == nil {
		t.Error("empty case id must fail")
	}
	if _, err := r.Run([]Case{runnerCase("x")}, 0); err == nil {
		t.Error("non-positive kT must fail")
	}
}
