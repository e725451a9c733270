package polar

import (
	"math"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Linear is the thin-airfoil model: Cl = cl0 + cla*alpha with a soft stall
// clamp on alpha, Cd = cd0 + k*Cl^2, both clamped into configured bounds.
type Linear struct {
	Cl0 float64 `yaml:"cl0"`
	ClA float64 `yaml:"cla"` // per radian

	Cd0 float64 `yaml:"cd0"`
	K   float64 `yaml:"k"` // induced-drag quadratic factor

	StallRad float64 `yaml:"stall_rad"` // |alpha| beyond this is clamped

	ClMin float64 `yaml:"cl_min"`
	ClMax float64 `yaml:"cl_max"`
	CdMin float64 `yaml:"cd_min"`
	CdMax float64 `yaml:"cd_max"`
}

// DefaultLinear returns a generic low-Re section model.
func DefaultLinear() Linear {
	return Linear{
		Cl0:      0.0,
		ClA:      2 * math.Pi,
		Cd0:      0.012,
		K:        0.02,
		StallRad: numeric.Deg2Rad(15),
		ClMin:    -1.4,
		ClMax:    1.6,
		CdMin:    0.004,
		CdMax:    1.5,
	}
}

// Validate checks the model parameters once at construction time.
func (p Linear) Validate() error {
	for _, v := range []float64{p.Cl0, p.ClA, p.Cd0, p.K, p.StallRad, p.ClMin, p.ClMax, p.CdMin, p.CdMax} {
		if !numeric.IsFinite(v) {
			return errs.New(errs.InvalidInput, "linear polar: non-finite parameter")
		}
	}
	if p.StallRad <= 0 {
		return errs.New(errs.InvalidInput, "linear polar: stall_rad must be > 0")
	}
	if p.ClMin > p.ClMax {
		return errs.New(errs.InvalidInput, "linear polar: cl bounds inverted")
	}
	if p.CdMin > p.CdMax || p.CdMin < 0 {
		return errs.New(errs.InvalidInput, "linear polar: cd bounds invalid")
	}
	return nil
}

// Sample implements Polar.
func (p Linear) Sample(q Query) (Output, error) {
	if err := q.validate(); err != nil {
		return Output{}, err
	}
	aoa := numeric.Clamp(q.AoARad, -p.StallRad, p.StallRad)
	cl := numeric.Clamp(p.Cl0+p.ClA*aoa, p.ClMin, p.ClMax)
	cd := numeric.Clamp(p.Cd0+p.K*cl*cl, p.CdMin, p.CdMax)
	return Output{Cl: cl, Cd: cd}, nil
}
