package rotor

import (
	"math"
	"testing"

	"github.com/skylift/rotoreval/internal/numeric"
)

func TestEffectiveDiskAreaDistributed(t *testing.T) {
	disks := []Disk{
		{ID: "r1", RadiusM: 0.5},
		{ID: "r2", RadiusM: 0.5},
		{ID: "r3", RadiusM: 0.5},
		{ID: "r4", RadiusM: 0.5},
	}
	res, err := EffectiveDiskArea(disks, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := 4 * math.Pi * 0.25
	if math.Abs(res.ATotalM2-want) > 1e-12 {
		t.Errorf("A_total = %v, want %v", res.ATotalM2, want)
	}
	if res.DiskCount != 4 {
		t.Errorf("disk count = %d", res.DiskCount)
	}
}

func TestEffectiveDiskAreaCoaxialGroup(t *testing.T) {
	// A coaxial stack shares one footprint: the group contributes its
	// largest member once.
	disks := []Disk{
		{ID: "upper", RadiusM: 0.5, OverlapGroup: "stack1"},
		{ID: "lower", RadiusM: 0.45, OverlapGroup: "stack1"},
		{ID: "tail", RadiusM: 0.2},
	}
	res, err := EffectiveDiskArea(disks, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Pi*0.5*0.5 + math.Pi*0.2*0.2
	if math.Abs(res.ATotalM2-want) > 1e-12 {
		t.Errorf("A_total = %v, want %v", res.ATotalM2, want)
	}
	if res.DiskCount != 2 {
		t.Errorf("disk count = %d, want 2 footprints", res.DiskCount)
	}
}

func TestEffectiveDiskAreaPairOverlapAndFloor(t *testing.T) {
	disks := []Disk{
		{ID: "a", RadiusM: 0.5},
		{ID: "b", RadiusM: 0.4},
	}
	res, err := EffectiveDiskArea(disks, []PairOverlap{{DiskA: "a", DiskB: "b", Fraction: 0.25}})
	if err != nil {
		t.Fatal(err)
	}
	smaller := math.Pi * 0.4 * 0.4
	want := math.Pi*0.25 + smaller - 0.25*smaller
	if math.Abs(res.ATotalM2-want) > 1e-12 {
		t.Errorf("A_total = %v, want %v", res.ATotalM2, want)
	}

	// Floors at zero with full mutual overlap of identical disks.
	same := []Disk{{ID: "a", RadiusM: 0.1}, {ID: "b", RadiusM: 0.1}}
	res, err = EffectiveDiskArea(same, []PairOverlap{
		{DiskA: "a", DiskB: "b", Fraction: 1},
		{DiskA: "b", DiskB: "a", Fraction: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ATotalM2 != 0 {
		t.Errorf("A_total = %v, want floor at 0", res.ATotalM2)
	}
}

func TestEffectiveDiskAreaRejects(t *testing.T) {
	if _, err := EffectiveDiskArea(nil, nil); err == nil {
		t.Error("empty disk list must fail")
	}
	if _, err := EffectiveDiskArea([]Disk{{ID: "a", RadiusM: 0.1}, {ID: "a", RadiusM: 0.1}}, nil); err == nil {
		t.Error("duplicate id must fail")
	}
	if _, err := EffectiveDiskArea([]Disk{{ID: "a", RadiusM: 0.1}},
		[]PairOverlap{{DiskA: "a", DiskB: "ghost", Fraction: 0.1}}); err == nil {
		t.Error("unknown overlap disk must fail")
	}
}

func TestDiskLoading(t *testing.T) {
	if dl := DiskLoading(100, 2); dl != 50 {
		t.Errorf("DL = %v", dl)
	}
	if numeric.IsSet(DiskLoading(100, 0)) {
		t.Error("zero area must give unset")
	}
	if numeric.IsSet(DiskLoading(numeric.Unset(), 2)) {
		t.Error("unset thrust must give unset")
	}
}

func TestIdealInducedPower(t *testing.T) {
	p, err := IdealInducedPower(1000, 1.225, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Pow(1000, 1.5) / math.Sqrt(2*1.225)
	if math.Abs(p-want) > 1e-9 {
		t.Errorf("P_ideal = %v, want %v", p, want)
	}
	if _, err := IdealInducedPower(-1, 1.225, 1); err == nil {
		t.Error("negative thrust must fail")
	}
}
