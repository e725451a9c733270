// Package rotor derives disk-level metrics: effective total disk area with
// overlap groups, disk loading, and ideal induced hover power from
// momentum theory.
package rotor

import (
	"math"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Disk is one actuator disk. Disks sharing an OverlapGroup (e.g. the two
// stages of a coaxial stack) contribute only the largest area within the
// group.
type Disk struct {
	ID           string  `yaml:"id"`
	RadiusM      float64 `yaml:"radius_m"`
	OverlapGroup string  `yaml:"overlap_group"`
}

// Validate rejects malformed disks.
func (d *Disk) Validate() error {
	if d.ID == "" {
		return errs.New(errs.InvalidInput, "disk id empty")
	}
	if !numeric.IsFinite(d.RadiusM) || d.RadiusM <= 0 {
		return errs.Newf(errs.InvalidInput, "disk %s radius must be > 0", d.ID)
	}
	return nil
}

// AreaM2 returns pi*r^2.
func (d *Disk) AreaM2() float64 {
	return math.Pi * d.RadiusM * d.RadiusM
}

// PairOverlap subtracts a caller-supplied overlap fraction of the smaller
// disk between two distinct disks.
type PairOverlap struct {
	DiskA    string  `yaml:"disk_a"`
	DiskB    string  `yaml:"disk_b"`
	Fraction float64 `yaml:"fraction"` // of the smaller disk's area, in [0,1]
}

// AreaResult is the effective-disk-area summary.
type AreaResult struct {
	ATotalM2  float64
	DiskCount int
}

// EffectiveDiskArea sums per-disk areas; overlap groups contribute their
// maximum member, and pairwise overlap fractions are subtracted. The
// result is floored at zero.
func EffectiveDiskArea(disks []Disk, overlaps []PairOverlap) (AreaResult, error) {
	if len(disks) == 0 {
		return AreaResult{}, errs.New(errs.InvalidInput, "no disks supplied")
	}

	byID := make(map[string]*Disk, len(disks))
	groupMax := make(map[string]float64)
	total := 0.0
	counted := 0

	for i := range disks {
		d := &disks[i]
		if err := d.Validate(); err != nil {
			return AreaResult{}, err
		}
		if _, dup := byID[d.ID]; dup {
			return AreaResult{}, errs.Newf(errs.InvalidInput, "duplicate disk id %s", d.ID)
		}
		byID[d.ID] = d

		if d.OverlapGroup == "" {
			total += d.AreaM2()
			counted++
			continue
		}
		if d.AreaM2() > groupMax[d.OverlapGroup] {
			groupMax[d.OverlapGroup] = d.AreaM2()
		}
	}
	for _, a := range groupMax {
		total += a
		counted++
	}

	for _, ov := range overlaps {
		a, okA := byID[ov.DiskA]
		b, okB := byID[ov.DiskB]
		if !okA || !okB {
			return AreaResult{}, errs.Newf(errs.InvalidInput, "overlap references unknown disk %s/%s", ov.DiskA, ov.DiskB)
		}
		if !numeric.IsFinite(ov.Fraction) || ov.Fraction < 0 || ov.Fraction > 1 {
			return AreaResult{}, errs.New(errs.InvalidInput, "overlap fraction must be in [0,1]")
		}
		smaller := math.Min(a.AreaM2(), b.AreaM2())
		total -= ov.Fraction * smaller
	}

	if total < 0 {
		total = 0
	}
	return AreaResult{ATotalM2: total, DiskCount: counted}, nil
}

// DiskLoading returns T/A, or unset when either input is unusable.
func DiskLoading(thrustN, areaM2 float64) float64 {
	if !numeric.IsFinite(thrustN) || !numeric.IsFinite(areaM2) || areaM2 <= 0 {
		return numeric.Unset()
	}
	return thrustN / areaM2
}

// IdealInducedPower returns T^(3/2)/sqrt(2 rho A), the momentum-theory
// floor for hover power.
func IdealInducedPower(thrustN, rho, areaM2 float64) (float64, error) {
	if !numeric.IsFinite(thrustN) || thrustN <= 0 {
		return 0, errs.New(errs.InvalidInput, "thrust must be > 0")
	}
	if !numeric.IsFinite(rho) || rho <= 0 {
		return 0, errs.New(errs.InvalidInput, "rho must be > 0")
	}
	if !numeric.IsFinite(areaM2) || areaM2 <= 0 {
		return 0, errs.New(errs.InvalidInput, "area must be > 0")
	}
	return math.Pow(thrustN, 1.5) / math.Sqrt(2*rho*areaM2), nil
}
