package drag

import (
	"math"
	"testing"

	"github.com/skylift/rotoreval/internal/errs"
)

func baseItems() []Item {
	return []Item{
		{ID: "fuselage", Group: "body", CdSM2: 0.05, Interference: 1.0},
		{ID: "boom.L", Group: "booms", Cd: 0.8, SRefM2: 0.01, Interference: 1.1},
		{ID: "boom.R", Group: "booms", Cd: 0.8, SRefM2: 0.01, Interference: 1.1},
		{ID: "gear", Group: "landing_gear", CdSM2: 0.012, Interference: 1.0},
	}
}

func TestTotalsAndEffectiveCdS(t *testing.T) {
	total, err := Totals(baseItems())
	if err != nil {
		t.Fatal(err)
	}
	want := 0.05 + 2*0.8*0.01*1.1 + 0.012
	if math.Abs(total-want) > 1e-12 {
		t.Errorf("total = %v, want %v", total, want)
	}

	// CdS overrides Cd*Sref when positive.
	it := Item{ID: "x", Cd: 10, SRefM2: 10, CdSM2: 0.02, Interference: 1}
	if it.EffectiveCdS() != 0.02 {
		t.Errorf("CdS override = %v", it.EffectiveCdS())
	}
}

func TestParasitePower(t *testing.T) {
	rho, v, cds := 1.225, 20.0, 0.1
	d := ParasiteDragN(rho, v, cds)
	wantD := 0.5 * rho * v * v * cds
	if math.Abs(d-wantD) > 1e-12 {
		t.Errorf("drag = %v, want %v", d, wantD)
	}
	if p := ParasitePowerW(rho, v, cds); math.Abs(p-wantD*v) > 1e-9 {
		t.Errorf("power = %v, want %v", p, wantD*v)
	}
	if ParasiteDragN(rho, 0, cds) != 0 {
		t.Error("zero speed gives zero drag")
	}
}

func TestCompare(t *testing.T) {
	baseline := baseItems()
	candidate := []Item{
		{ID: "fuselage", Group: "body", CdSM2: 0.05, Interference: 1.0},
		{ID: "gear", Group: "landing_gear", CdSM2: 0.012, Interference: 1.0},
	}

	d, err := Compare(baseline, candidate, 1.225, 25)
	if err != nil {
		t.Fatal(err)
	}
	if !(d.DCdSM2 < 0) {
		t.Errorf("removing booms should reduce CdS, delta = %v", d.DCdSM2)
	}
	if !(d.DPowerW < 0) {
		t.Errorf("parasite power delta = %v, want negative", d.DPowerW)
	}
	if d.VTargetMps != 25 {
		t.Errorf("target speed echoed as %v", d.VTargetMps)
	}
}

func TestBoomRemovalConsistency(t *testing.T) {
	baseline := baseItems()

	// Consistent: booms removed, total decreased.
	candidate := []Item{
		{ID: "fuselage", Group: "body", CdSM2: 0.05, Interference: 1.0},
		{ID: "gear", Group: "landing_gear", CdSM2: 0.012, Interference: 1.0},
	}
	chk, err := CheckBoomRemoval(baseline, candidate, "booms", 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	if !chk.OK || chk.Code != errs.Ok {
		t.Errorf("consistent removal flagged: %+v", chk)
	}

	// Inconsistent: booms removed but the total grew.
	inflated := append([]Item{}, candidate...)
	inflated[0].CdSM2 = 0.5
	chk, err = CheckBoomRemoval(baseline, inflated, "booms", 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	if chk.OK || chk.Code != errs.InvalidInput {
		t.Errorf("inconsistent removal passed: %+v", chk)
	}

	// Inconsistent: boom group itself increased.
	grown := append([]Item{}, baseline...)
	grown[1].SRefM2 = 0.05
	chk, err = CheckBoomRemoval(baseline, grown, "booms", 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	if chk.OK {
		t.Errorf("boom growth passed: %+v", chk)
	}
}
