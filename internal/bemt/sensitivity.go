package bemt

import (
	"math"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// SensitivityConfig sets the finite-difference steps. Relative steps apply
// to omega, rho, radius scale, and chord scale; the collective step is
// absolute radians.
type SensitivityConfig struct {
	HOmegaRel         float64 `yaml:"h_omega_rel"`
	HRhoRel           float64 `yaml:"h_rho_rel"`
	HRadiusRel        float64 `yaml:"h_radius_rel"`
	HChordRel         float64 `yaml:"h_chord_rel"`
	HCollectiveAbsRad float64 `yaml:"h_collective_abs_rad"`

	CentralDifference bool `yaml:"central_difference"`
	AllowTrim         bool `yaml:"allow_trim"`
}

// DefaultSensitivityConfig returns central differences with 1% relative
// steps.
func DefaultSensitivityConfig() SensitivityConfig {
	return SensitivityConfig{
		HOmegaRel:         0.01,
		HRhoRel:           0.01,
		HRadiusRel:        0.01,
		HChordRel:         0.01,
		HCollectiveAbsRad: numeric.Deg2Rad(0.25),
		CentralDifference: true,
	}
}

// Validate rejects malformed steps with InvalidConfig.
func (c *SensitivityConfig) Validate() error {
	for _, v := range []float64{c.HOmegaRel, c.HRhoRel, c.HRadiusRel, c.HChordRel, c.HCollectiveAbsRad} {
		if !numeric.IsFinite(v) || v <= 0 {
			return errs.New(errs.InvalidConfig, "sensitivity step must be finite and > 0")
		}
	}
	return nil
}

// Normalized is one pair of normalized derivatives:
// n_dT = (x/T) dT/dx and n_dP = (x/P) dP/dx.
type Normalized struct {
	NdT float64
	NdP float64
}

// SensitivityResult carries the five normalized derivative pairs.
type SensitivityResult struct {
	Code errs.Kind

	Omega       Normalized
	Collective  Normalized
	Rho         Normalized
	RadiusScale Normalized
	ChordScale  Normalized
}

// UnsetSensitivity returns a result with every derivative unset.
func UnsetSensitivity() SensitivityResult {
	n := Normalized{NdT: numeric.Unset(), NdP: numeric.Unset()}
	return SensitivityResult{Code: errs.Ok, Omega: n, Collective: n, Rho: n, RadiusScale: n, ChordScale: n}
}

// Analyzer computes central-difference sensitivities about a baseline
// hover solve.
type Analyzer struct {
	solver *Solver
}

// NewAnalyzer wraps an existing solver.
func NewAnalyzer(s *Solver) *Analyzer {
	return &Analyzer{solver: s}
}

func relStep(base, rel float64) float64 {
	mag := math.Abs(base)
	s := rel
	if mag > 1e-12 {
		s = mag * rel
	}
	if !numeric.IsFinite(s) || s <= 0 {
		return rel
	}
	return s
}

func normFrom(x, t0, p0, dTdx, dPdx float64) Normalized {
	n := Normalized{
		NdT: numeric.SafeDiv(x*dTdx, t0, 0),
		NdP: numeric.SafeDiv(x*dPdx, p0, 0),
	}
	if !numeric.IsFinite(n.NdT) {
		n.NdT = 0
	}
	if !numeric.IsFinite(n.NdP) {
		n.NdP = 0
	}
	return n
}

func (a *Analyzer) solve(in Inputs, allowTrim bool) (Result, error) {
	if !allowTrim {
		in.Op.TargetThrustN = numeric.Unset()
	}
	return a.solver.Solve(in)
}

// mutate applies one perturbation to a copy of the inputs.
type mutate func(in *Inputs, delta float64)

func (a *Analyzer) derivative(in Inputs, cfg *SensitivityConfig, base *Result,
	step float64, apply mutate) (dTdx, dPdx float64, code errs.Kind, err error) {

	plus := in
	apply(&plus, step)
	rp, err := a.solve(plus, cfg.AllowTrim)
	if err != nil {
		return 0, 0, errs.KindOf(err), err
	}
	if rp.Code != errs.Ok {
		return 0, 0, rp.Code, nil
	}

	if !cfg.CentralDifference {
		return (rp.ThrustN - base.ThrustN) / step, (rp.PowerW - base.PowerW) / step, errs.Ok, nil
	}

	minus := in
	apply(&minus, -step)
	rm, err := a.solve(minus, cfg.AllowTrim)
	if err != nil {
		return 0, 0, errs.KindOf(err), err
	}
	if rm.Code != errs.Ok {
		return 0, 0, rm.Code, nil
	}
	return (rp.ThrustN - rm.ThrustN) / (2 * step), (rp.PowerW - rm.PowerW) / (2 * step), errs.Ok, nil
}

// Compute runs the baseline and the five perturbation pairs. Any failed
// perturbed solve propagates its status code and leaves the derivatives
// of that axis and of the axes after it unset; axes already computed keep
// their values.
func (a *Analyzer) Compute(in Inputs, cfg SensitivityConfig) (SensitivityResult, error) {
	if err := in.Validate(); err != nil {
		return SensitivityResult{}, err
	}
	if err := cfg.Validate(); err != nil {
		return SensitivityResult{}, err
	}

	out := UnsetSensitivity()

	base, err := a.solve(in, cfg.AllowTrim)
	if err != nil {
		return out, err
	}
	if base.Code != errs.Ok {
		out.Code = base.Code
		return out, nil
	}
	t0, p0 := base.ThrustN, base.PowerW

	type axis struct {
		step  float64
		x     float64
		apply mutate
		dst   *Normalized
	}
	axes := []axis{
		{
			step: relStep(in.Op.OmegaRadS, cfg.HOmegaRel),
			x:    in.Op.OmegaRadS,
			apply: func(p *Inputs, d float64) {
				p.Op.OmegaRadS = math.Max(1e-6, p.Op.OmegaRadS+d)
			},
			dst: &out.Omega,
		},
		{
			step: relStep(in.Env.Rho, cfg.HRhoRel),
			x:    in.Env.Rho,
			apply: func(p *Inputs, d float64) {
				p.Env.Rho = math.Max(1e-6, p.Env.Rho+d)
			},
			dst: &out.Rho,
		},
		{
			step: cfg.HRadiusRel,
			x:    1.0,
			apply: func(p *Inputs, d float64) {
				p.Geom = p.Geom.Scaled(math.Max(0.1, 1.0+d), 1.0)
			},
			dst: &out.RadiusScale,
		},
		{
			step: cfg.HChordRel,
			x:    1.0,
			apply: func(p *Inputs, d float64) {
				p.Geom = p.Geom.Scaled(1.0, math.Max(0.1, 1.0+d))
			},
			dst: &out.ChordScale,
		},
		{
			step: cfg.HCollectiveAbsRad,
			x:    in.Op.CollectiveOffsetRad,
			apply: func(p *Inputs, d float64) {
				p.Op.CollectiveOffsetRad += d
			},
			dst: &out.Collective,
		},
	}

	for _, ax := range axes {
		dTdx, dPdx, code, err := a.derivative(in, &cfg, &base, ax.step, ax.apply)
		if err != nil {
			return out, err
		}
		if code != errs.Ok {
			out.Code = code
			return out, nil
		}
		*ax.dst = normFrom(ax.x, t0, p0, dTdx, dPdx)
	}

	out.Code = errs.Ok
	return out, nil
}
