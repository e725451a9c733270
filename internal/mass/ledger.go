// Package mass implements the itemized mass ledger: totals with a
// mass-weighted CG and parallel-axis diagonal inertia, ledger comparison,
// and per-item deltas joined by id.
package mass

import (
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Vec3 is a position in the vehicle frame.
type Vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Add returns a + b.
func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Scale returns a * s.
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

// InertiaDiag holds the diagonal of an inertia tensor.
type InertiaDiag struct {
	Ixx float64 `yaml:"ixx"`
	Iyy float64 `yaml:"iyy"`
	Izz float64 `yaml:"izz"`
}

// Add returns the element-wise sum.
func (a InertiaDiag) Add(b InertiaDiag) InertiaDiag {
	return InertiaDiag{a.Ixx + b.Ixx, a.Iyy + b.Iyy, a.Izz + b.Izz}
}

// Item is one ledger component with a local CG and optional diagonal
// local inertia about it.
type Item struct {
	ID     string  `yaml:"id"`
	Group  string  `yaml:"group"`
	MassKg float64 `yaml:"mass_kg"`
	CGM    Vec3    `yaml:"cg_m"`

	ILocal InertiaDiag `yaml:"i_local_kg_m2"`

	Note string `yaml:"note"`
}

// Validate rejects malformed items.
func (it *Item) Validate() error {
	if it.ID == "" {
		return errs.New(errs.InvalidInput, "mass item id empty")
	}
	if !numeric.IsFinite(it.MassKg) || it.MassKg < 0 {
		return errs.Newf(errs.InvalidInput, "mass item %s: mass invalid", it.ID)
	}
	if !numeric.IsFinite(it.CGM.X) || !numeric.IsFinite(it.CGM.Y) || !numeric.IsFinite(it.CGM.Z) {
		return errs.Newf(errs.InvalidInput, "mass item %s: cg invalid", it.ID)
	}
	for _, v := range []float64{it.ILocal.Ixx, it.ILocal.Iyy, it.ILocal.Izz} {
		if !numeric.IsFinite(v) || v < 0 {
			return errs.Newf(errs.InvalidInput, "mass item %s: local inertia invalid", it.ID)
		}
	}
	return nil
}

// Totals is the combined mass, CG, and inertia about the combined CG.
type Totals struct {
	MassKg float64
	CGM    Vec3
	IKgM2  InertiaDiag
}

func parallelAxisDiag(m float64, r Vec3) InertiaDiag {
	x2, y2, z2 := r.X*r.X, r.Y*r.Y, r.Z*r.Z
	return InertiaDiag{
		Ixx: m * (y2 + z2),
		Iyy: m * (x2 + z2),
		Izz: m * (x2 + y2),
	}
}

// ComputeTotals aggregates a ledger. Zero-mass items are skipped.
func ComputeTotals(items []Item) (Totals, error) {
	var t Totals
	var m1 Vec3

	for i := range items {
		it := &items[i]
		if err := it.Validate(); err != nil {
			return Totals{}, err
		}
		if it.MassKg <= 0 {
			continue
		}
		t.MassKg += it.MassKg
		m1 = m1.Add(it.CGM.Scale(it.MassKg))
	}
	if !numeric.IsFinite(t.MassKg) {
		t.MassKg = 0
	}
	if t.MassKg > 0 {
		t.CGM = m1.Scale(1.0 / t.MassKg)
	}

	var itot InertiaDiag
	for i := range items {
		it := &items[i]
		if it.MassKg <= 0 {
			continue
		}
		r := it.CGM.Sub(t.CGM)
		itot = itot.Add(it.ILocal)
		itot = itot.Add(parallelAxisDiag(it.MassKg, r))
	}
	for _, p := range []*float64{&itot.Ixx, &itot.Iyy, &itot.Izz} {
		if !numeric.IsFinite(*p) || *p < 0 {
			*p = 0
		}
	}
	t.IKgM2 = itot
	return t, nil
}

// Delta compares two ledgers and derives payload-ratio impacts.
type Delta struct {
	Base Totals
	Cand Totals

	DMassKg float64
	DCGM    Vec3
	DIKgM2  InertiaDiag

	PayloadKg float64

	RatioPayloadToEmptyBase float64
	RatioPayloadToEmptyCand float64
	DRatioPayloadToEmpty    float64

	GrossBaseKg float64
	GrossCandKg float64

	RatioPayloadToGrossBase float64
	RatioPayloadToGrossCand float64
}

// CompareLedgers computes totals for both sides, their deltas, and the
// payload ratios for the given payload mass.
func CompareLedgers(baseline, candidate []Item, payloadKg float64) (Delta, error) {
	if !numeric.IsFinite(payloadKg) || payloadKg < 0 {
		return Delta{}, errs.New(errs.InvalidInput, "payload mass invalid")
	}

	var d Delta
	var err error
	if d.Base, err = ComputeTotals(baseline); err != nil {
		return Delta{}, err
	}
	if d.Cand, err = ComputeTotals(candidate); err != nil {
		return Delta{}, err
	}

	d.DMassKg = d.Cand.MassKg - d.Base.MassKg
	d.DCGM = d.Cand.CGM.Sub(d.Base.CGM)
	d.DIKgM2 = InertiaDiag{
		Ixx: d.Cand.IKgM2.Ixx - d.Base.IKgM2.Ixx,
		Iyy: d.Cand.IKgM2.Iyy - d.Base.IKgM2.Iyy,
		Izz: d.Cand.IKgM2.Izz - d.Base.IKgM2.Izz,
	}

	d.PayloadKg = payloadKg
	d.RatioPayloadToEmptyBase = numeric.SafeDiv(payloadKg, d.Base.MassKg, 0)
	d.RatioPayloadToEmptyCand = numeric.SafeDiv(payloadKg, d.Cand.MassKg, 0)
	d.DRatioPayloadToEmpty = d.RatioPayloadToEmptyCand - d.RatioPayloadToEmptyBase

	d.GrossBaseKg = d.Base.MassKg + payloadKg
	d.GrossCandKg = d.Cand.MassKg + payloadKg
	d.RatioPayloadToGrossBase = numeric.SafeDiv(payloadKg, d.GrossBaseKg, 0)
	d.RatioPayloadToGrossCand = numeric.SafeDiv(payloadKg, d.GrossCandKg, 0)

	return d, nil
}

// ItemDelta is one per-id comparison row.
type ItemDelta struct {
	ID       string
	Group    string
	MassBase float64
	MassCand float64
	DMassKg  float64
	CGBase   Vec3
	CGCand   Vec3
	DCGM     Vec3
}

func findItem(items []Item, id string) *Item {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

// ItemizedDeltas joins the two ledgers by id: baseline order first, then
// candidate-only items in candidate order.
func ItemizedDeltas(baseline, candidate []Item) []ItemDelta {
	out := make([]ItemDelta, 0, len(baseline)+len(candidate))

	push := func(id string, b, c *Item) {
		var d ItemDelta
		d.ID = id
		if b != nil {
			d.Group = b.Group
			d.MassBase = numeric.NonNegOr(b.MassKg, 0)
			d.CGBase = b.CGM
		}
		if c != nil {
			if d.Group == "" {
				d.Group = c.Group
			}
			d.MassCand = numeric.NonNegOr(c.MassKg, 0)
			d.CGCand = c.CGM
		}
		d.DMassKg = d.MassCand - d.MassBase
		d.DCGM = d.CGCand.Sub(d.CGBase)
		out = append(out, d)
	}

	for i := range baseline {
		push(baseline[i].ID, &baseline[i], findItem(candidate, baseline[i].ID))
	}
	for i := range candidate {
		if findItem(baseline, candidate[i].ID) == nil {
			push(candidate[i].ID, nil, &candidate[i])
		}
	}
	return out
}
