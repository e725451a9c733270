// Package drag models parasite drag: itemized CdS with interference
// factors, totals, drag/power at speed, table comparison, and the
// boom-removal consistency check.
package drag

import (
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Item is one drag contributor. When CdSM2 > 0 it overrides Cd*SRefM2.
type Item struct {
	ID     string  `yaml:"id"`
	Group  string  `yaml:"group"`
	Cd     float64 `yaml:"cd"`
	SRefM2 float64 `yaml:"s_ref_m2"`
	CdSM2  float64 `yaml:"cds_m2"`

	Interference float64 `yaml:"interference"`
}

// Validate rejects malformed items.
func (it *Item) Validate() error {
	if it.ID == "" {
		return errs.New(errs.InvalidInput, "drag item id empty")
	}
	if !numeric.IsFinite(it.Cd) || it.Cd < 0 {
		return errs.Newf(errs.InvalidInput, "drag item %s: cd invalid", it.ID)
	}
	if !numeric.IsFinite(it.SRefM2) || it.SRefM2 < 0 {
		return errs.Newf(errs.InvalidInput, "drag item %s: s_ref invalid", it.ID)
	}
	if !numeric.IsFinite(it.CdSM2) || it.CdSM2 < 0 {
		return errs.Newf(errs.InvalidInput, "drag item %s: cds invalid", it.ID)
	}
	if !numeric.IsFinite(it.Interference) || it.Interference < 0 {
		return errs.Newf(errs.InvalidInput, "drag item %s: interference invalid", it.ID)
	}
	return nil
}

// EffectiveCdS returns the item's CdS after the interference factor.
func (it *Item) EffectiveCdS() float64 {
	base := it.CdSM2
	if base <= 0 {
		base = it.Cd * it.SRefM2
	}
	eff := base * it.Interference
	if !numeric.IsFinite(eff) || eff < 0 {
		return 0
	}
	return eff
}

// Totals sums the effective CdS of a drag table.
func Totals(items []Item) (float64, error) {
	sum := 0.0
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return 0, err
		}
		sum += items[i].EffectiveCdS()
	}
	if !numeric.IsFinite(sum) || sum < 0 {
		sum = 0
	}
	return sum, nil
}

// GroupCdS sums the effective CdS of items in one group.
func GroupCdS(items []Item, group string) (float64, error) {
	sum := 0.0
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return 0, err
		}
		if items[i].Group == group {
			sum += items[i].EffectiveCdS()
		}
	}
	if !numeric.IsFinite(sum) || sum < 0 {
		sum = 0
	}
	return sum, nil
}

// ParasiteDragN returns 0.5 rho V^2 CdS, zero for degenerate inputs.
func ParasiteDragN(rho, vMps, cdsM2 float64) float64 {
	if !numeric.IsFinite(rho) || !numeric.IsFinite(vMps) || !numeric.IsFinite(cdsM2) {
		return 0
	}
	if rho <= 0 || vMps <= 0 || cdsM2 <= 0 {
		return 0
	}
	d := 0.5 * rho * vMps * vMps * cdsM2
	if !numeric.IsFinite(d) || d < 0 {
		return 0
	}
	return d
}

// ParasitePowerW returns drag times speed.
func ParasitePowerW(rho, vMps, cdsM2 float64) float64 {
	p := ParasiteDragN(rho, vMps, cdsM2) * vMps
	if !numeric.IsFinite(p) || p < 0 {
		return 0
	}
	return p
}

// Delta compares a baseline and candidate drag table at a target speed.
type Delta struct {
	CdSBaseM2 float64
	CdSCandM2 float64
	DCdSM2    float64

	VTargetMps float64
	DBaseN     float64
	DCandN     float64
	DDragN     float64

	PBaseW float64
	PCandW float64
	DPowerW float64
}

// Compare computes totals and per-speed deltas; vTargetMps <= 0 skips the
// drag/power evaluation.
func Compare(baseline, candidate []Item, rho, vTargetMps float64) (Delta, error) {
	if !numeric.IsFinite(rho) || rho <= 0 || rho >= 5 {
		return Delta{}, errs.New(errs.InvalidEnvironment, "rho invalid")
	}

	var d Delta
	var err error
	if d.CdSBaseM2, err = Totals(baseline); err != nil {
		return Delta{}, err
	}
	if d.CdSCandM2, err = Totals(candidate); err != nil {
		return Delta{}, err
	}
	d.DCdSM2 = d.CdSCandM2 - d.CdSBaseM2
	if !numeric.IsFinite(d.DCdSM2) {
		d.DCdSM2 = 0
	}

	if numeric.IsFinite(vTargetMps) && vTargetMps > 0 {
		d.VTargetMps = vTargetMps
		d.DBaseN = ParasiteDragN(rho, vTargetMps, d.CdSBaseM2)
		d.DCandN = ParasiteDragN(rho, vTargetMps, d.CdSCandM2)
		d.DDragN = d.DCandN - d.DBaseN
		d.PBaseW = ParasitePowerW(rho, vTargetMps, d.CdSBaseM2)
		d.PCandW = ParasitePowerW(rho, vTargetMps, d.CdSCandM2)
		d.DPowerW = d.PCandW - d.PBaseW
	}
	return d, nil
}

// BoomCheck is the result of the boom-removal consistency test.
type BoomCheck struct {
	Code errs.Kind

	CdSBoomsBaseM2 float64
	CdSBoomsCandM2 float64
	DCdSBoomsM2    float64
	DCdSTotalM2    float64

	OK      bool
	Message string
}

// CheckBoomRemoval flags the inconsistent case where the boom group lost
// drag but the total increased, or where the boom group itself grew.
func CheckBoomRemoval(baseline, candidate []Item, boomGroup string, toleranceM2 float64) (BoomCheck, error) {
	if boomGroup == "" {
		boomGroup = "booms"
	}
	if !numeric.IsFinite(toleranceM2) || toleranceM2 < 0 {
		return BoomCheck{}, errs.New(errs.InvalidInput, "tolerance invalid")
	}

	var out BoomCheck
	var err error
	tb, err := Totals(baseline)
	if err != nil {
		return BoomCheck{}, err
	}
	tc, err := Totals(candidate)
	if err != nil {
		return BoomCheck{}, err
	}
	if out.CdSBoomsBaseM2, err = GroupCdS(baseline, boomGroup); err != nil {
		return BoomCheck{}, err
	}
	if out.CdSBoomsCandM2, err = GroupCdS(candidate, boomGroup); err != nil {
		return BoomCheck{}, err
	}
	out.DCdSBoomsM2 = out.CdSBoomsCandM2 - out.CdSBoomsBaseM2
	out.DCdSTotalM2 = tc - tb

	if out.DCdSBoomsM2 > toleranceM2 {
		out.OK = false
		out.Code = errs.InvalidInput
		out.Message = "boom CdS increased; check grouping or sign errors"
		return out, nil
	}

	boomDrop := -out.DCdSBoomsM2
	if boomDrop > 1e-6 && out.DCdSTotalM2 > 1e-6 {
		out.OK = false
		out.Code = errs.InvalidInput
		out.Message = "total CdS increased while booms decreased; verify other component CdS changes"
		return out, nil
	}

	out.OK = true
	out.Code = errs.Ok
	return out, nil
}
