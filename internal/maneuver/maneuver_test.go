package maneuver

import (
	"math"
	"testing"
)

func quadRotors() []RotorAuthority {
	// Symmetric quad, arms 0.3 m, 100 N max thrust each, kQ = 0.02.
	var out []RotorAuthority
	pos := [][2]float64{{0.3, 0.3}, {0.3, -0.3}, {-0.3, 0.3}, {-0.3, -0.3}}
	spin := []int{1, -1, -1, 1}
	ids := []string{"fr", "fl", "rr", "rl"}
	for i := range pos {
		out = append(out, RotorAuthority{
			ID: ids[i], XM: pos[i][0], YM: pos[i][1],
			TMaxN: 100, KQPerT: 0.02, SpinDir: spin[i],
		})
	}
	return out
}

func TestComputeMoments(t *testing.T) {
	m, err := Compute(quadRotors(),
		InertiaDiag{Ixx: 0.5, Iyy: 0.5, Izz: 0.9},
		Requirements{YawMomentNm: 2, RollMomentNm: 9, PitchMomentNm: 9, MassKg: 10},
		DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	// Roll: 4 rotors * 0.15*100 N * 0.3 m.
	wantRoll := 4 * 0.15 * 100 * 0.3
	if math.Abs(m.RollMomentMaxNm-wantRoll) > 1e-9 {
		t.Errorf("roll moment = %v, want %v", m.RollMomentMaxNm, wantRoll)
	}
	// Yaw: half the torque sum, 0.5 * 4 * 0.02*100.
	wantYaw := 0.5 * 4 * 0.02 * 100
	if math.Abs(m.YawMomentMaxNm-wantYaw) > 1e-9 {
		t.Errorf("yaw moment = %v, want %v", m.YawMomentMaxNm, wantYaw)
	}

	if math.Abs(m.RollMargin-wantRoll/9) > 1e-9 {
		t.Errorf("roll margin = %v", m.RollMargin)
	}
	if math.Abs(m.YawMargin-wantYaw/2) > 1e-9 {
		t.Errorf("yaw margin = %v", m.YawMargin)
	}
	if math.Abs(m.RollAlphaMax-wantRoll/0.5) > 1e-9 {
		t.Errorf("roll alpha = %v", m.RollAlphaMax)
	}
}

func TestTurnRadius(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VTurnMps = 12
	m, err := Compute(quadRotors(),
		InertiaDiag{Ixx: 0.5, Iyy: 0.5, Izz: 0.9},
		Requirements{MassKg: 10},
		cfg)
	if err != nil {
		t.Fatal(err)
	}
	wantALat := 0.25 * 400 / 10.0
	if math.Abs(m.ALatMaxMps2-wantALat) > 1e-9 {
		t.Errorf("a_lat = %v, want %v", m.ALatMaxMps2, wantALat)
	}
	wantRadius := 12.0 * 12.0 / wantALat
	if math.Abs(m.TurnRadiusM-wantRadius) > 1e-9 {
		t.Errorf("turn radius = %v, want %v", m.TurnRadiusM, wantRadius)
	}
}

func TestValidation(t *testing.T) {
	bad := quadRotors()
	bad[0].SpinDir = 0
	if _, err := Compute(bad, InertiaDiag{Ixx: 1, Iyy: 1, Izz: 1}, Requirements{}, DefaultConfig()); err == nil {
		t.Error("spin_dir 0 must fail")
	}
	if _, err := Compute(quadRotors(), InertiaDiag{Ixx: 0, Iyy: 1, Izz: 1}, Requirements{}, DefaultConfig()); err == nil {
		t.Error("zero inertia must fail")
	}
	cfg := DefaultConfig()
	cfg.ThrustHeadroomFrac = 0.9
	if _, err := Compute(quadRotors(), InertiaDiag{Ixx: 1, Iyy: 1, Izz: 1}, Requirements{}, cfg); err == nil {
		t.Error("headroom above 0.5 must fail")
	}
}

func TestQFromFixedBounds(t *testing.T) {
	r := RotorAuthority{ID: "x", TMaxN: 10, QMinNm: 1, QMaxNm: 3, SpinDir: 1}
	if r.QMaxAbs() != 3 {
		t.Errorf("QMaxAbs = %v, want fixed bound 3", r.QMaxAbs())
	}
	r.KQPerT = 0.5
	if r.QMaxAbs() != 5 {
		t.Errorf("QMaxAbs = %v, want kQ*Tmax 5", r.QMaxAbs())
	}
}
