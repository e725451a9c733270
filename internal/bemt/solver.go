package bemt

import (
	"errors"
	"math"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
	"github.com/skylift/rotoreval/internal/polar"
)

// Solver runs hover and trim solves against a section sampler.
type Solver struct {
	sampler SectionSampler
}

// NewSolver builds a solver over a single polar.
func NewSolver(p polar.Polar) *Solver {
	return &Solver{sampler: UniformSampler{P: p}}
}

// NewSolverWithSampler builds a solver over a radius-aware sampler.
func NewSolverWithSampler(s SectionSampler) *Solver {
	return &Solver{sampler: s}
}

// stationDr returns the midpoint spacing for station i, one-sided at the
// ends.
func stationDr(g *RotorGeometry, i int) float64 {
	st := g.Stations
	n := len(st)
	if n < 2 {
		return 0
	}
	switch {
	case i == 0:
		return math.Max(0, st[1].RM-st[0].RM)
	case i+1 >= n:
		return math.Max(0, st[n-1].RM-st[n-2].RM)
	default:
		return math.Max(0, 0.5*((st[i+1].RM-st[i].RM)+(st[i].RM-st[i-1].RM)))
	}
}

// prandtlTipLoss returns Prandtl's F in [minF, 1], guarded near the
// singular limits.
func prandtlTipLoss(b int, r, radius, phiRad, minF float64) float64 {
	if b < 2 {
		return 1
	}
	if !(radius > 0) || !(r > 0) || !(r < radius) {
		return 1
	}
	s := math.Abs(math.Sin(phiRad))
	if !(s > 1e-6) {
		return 1
	}
	f := (float64(b) / 2.0) * (radius - r) / (r * s)
	if !numeric.IsFinite(f) || f <= 0 {
		return 1
	}
	e := math.Exp(-math.Min(50, f))
	F := (2.0 / math.Pi) * math.Acos(numeric.Clamp(e, 0, 1))
	if !numeric.IsFinite(F) {
		return 1
	}
	return numeric.Clamp(F, minF, 1)
}

// inducedUpdate solves the hover momentum quadratic
// 2*rho*A*vi^2 + 2*rho*A*vax*vi - T = 0 for the non-negative root.
func inducedUpdate(thrustN, rho, area, vax float64) float64 {
	if !numeric.IsFinite(thrustN) || thrustN <= 0 {
		return 0
	}
	if !numeric.IsFinite(rho) || rho <= 0 || !numeric.IsFinite(area) || area <= 0 {
		return 0
	}
	if !numeric.IsFinite(vax) {
		vax = 0
	}
	disc := vax*vax + numeric.SafeDiv(2*thrustN, rho*area, 0)
	if !numeric.IsFinite(disc) || disc < 0 {
		return 0
	}
	vi := 0.5 * (-vax + math.Sqrt(disc))
	if !numeric.IsFinite(vi) || vi < 0 {
		return 0
	}
	return vi
}

// figureOfMerit returns P_ideal/P clamped to [0, 1.5]; zero when thrust or
// power is non-positive.
func figureOfMerit(thrustN, powerW, rho, area float64) float64 {
	if !numeric.IsFinite(thrustN) || !numeric.IsFinite(powerW) ||
		!numeric.IsFinite(rho) || !numeric.IsFinite(area) {
		return 0
	}
	if thrustN <= 0 || powerW <= 0 || rho <= 0 || area <= 0 {
		return 0
	}
	pIdeal := math.Pow(thrustN, 1.5) / math.Sqrt(2*rho*area)
	if !numeric.IsFinite(pIdeal) || pIdeal <= 0 {
		return 0
	}
	return numeric.Clamp(pIdeal/powerW, 0, 1.5)
}

// domainGuard enforces the fail-fast Mach/Reynolds limits.
func domainGuard(cfg *SolverConfig, rM, re, mach float64) error {
	if cfg.MachMax > 0 && numeric.IsFinite(mach) && mach > cfg.MachMax {
		return errs.Newf(errs.OutOfRange, "mach %.4f above max %.4f at r=%.4f", mach, cfg.MachMax, rM)
	}
	if cfg.ReynoldsMin > 0 && numeric.IsFinite(re) && re < cfg.ReynoldsMin {
		return errs.Newf(errs.OutOfRange, "reynolds %.1f below min %.1f at r=%.4f", re, cfg.ReynoldsMin, rM)
	}
	if cfg.ReynoldsMax > 0 && numeric.IsFinite(re) && re > cfg.ReynoldsMax {
		return errs.Newf(errs.OutOfRange, "reynolds %.1f above max %.1f at r=%.4f", re, cfg.ReynoldsMax, rM)
	}
	return nil
}

// solveAtCollective runs the induced-velocity fixed point for one fixed
// collective.
func (s *Solver) solveAtCollective(in *Inputs, collectiveRad, viInit float64) Result {
	out := NewResult()
	out.CollectiveRad = collectiveRad
	out.Stations = make([]StationResult, len(in.Geom.Stations))

	area := in.Geom.DiskAreaM2()
	vAxFree := in.Op.VInfMps * math.Cos(in.Op.InflowAngleRad)
	vi := numeric.NonNegOr(viInit, 1.0)

	for it := 0; it < in.Cfg.MaxIterInflow; it++ {
		out.InflowIters = it + 1

		var thrust, torque float64

		for i := range in.Geom.Stations {
			bs := &in.Geom.Stations[i]

			sr := StationResult{RM: bs.RM}
			sr.DrM = math.Max(in.Cfg.MinDrM, stationDr(&in.Geom, i))

			vax := vAxFree + vi
			vtan := in.Op.OmegaRadS * bs.RM
			vrel := math.Sqrt(math.Max(0, vax*vax+vtan*vtan))

			sr.VAxialMps = vax
			sr.VTanMps = vtan
			sr.VRelMps = vrel

			phi := math.Atan2(math.Abs(vax), math.Max(1e-9, math.Abs(vtan)))
			sr.PhiRad = numeric.Clamp(phi, in.Cfg.MinPhiRad, in.Cfg.MaxPhiRad)

			theta := bs.TwistRad + collectiveRad
			sr.AoARad = numeric.Clamp(theta-sr.PhiRad, in.Cfg.MinAoARad, in.Cfg.MaxAoARad)

			sr.Reynolds = numeric.SafeDiv(in.Env.Rho*vrel*bs.ChordM, in.Env.Mu, 0)
			sr.Mach = numeric.SafeDiv(vrel, in.Env.SpeedOfSound, 0)

			if err := domainGuard(&in.Cfg, bs.RM, sr.Reynolds, sr.Mach); err != nil {
				out.Code = errs.OutOfRange
				out.Message = err.(*errs.Error).Msg
				return out
			}

			po, err := s.sampler.SampleAt(bs.RM, polar.Query{
				AoARad:   sr.AoARad,
				Reynolds: sr.Reynolds,
				Mach:     sr.Mach,
			})
			if err != nil {
				var te *errs.Error
				if errors.As(err, &te) {
					out.Code = te.Kind
					out.Message = te.Msg
				} else {
					out.Code = errs.MissingPolarData
					out.Message = err.Error()
				}
				return out
			}
			sr.Cl = po.Cl
			sr.Cd = po.Cd

			sr.TipLossF = 1.0
			if in.Geom.TipLoss == TipLossPrandtl {
				sr.TipLossF = prandtlTipLoss(in.Geom.BladeCount, bs.RM, in.Geom.RadiusM, sr.PhiRad, in.Cfg.MinTipLossF)
			}

			q := 0.5 * in.Env.Rho * vrel * vrel
			lp := q * bs.ChordM * sr.Cl
			dp := q * bs.ChordM * sr.Cd

			sinPhi, cosPhi := math.Sincos(sr.PhiRad)
			dTBlade := (lp*cosPhi - dp*sinPhi) * sr.DrM * sr.TipLossF
			dQBlade := (lp*sinPhi + dp*cosPhi) * bs.RM * sr.DrM * sr.TipLossF

			sr.DTn = dTBlade * float64(in.Geom.BladeCount)
			sr.DQNm = dQBlade * float64(in.Geom.BladeCount)

			if !numeric.IsFinite(sr.DTn) || !numeric.IsFinite(sr.DQNm) {
				out.Code = errs.NumericalFailure
				out.Message = "non-finite sectional loads at r=" + fmtRadius(bs.RM)
				return out
			}

			thrust += sr.DTn
			torque += sr.DQNm
			out.Stations[i] = sr
		}

		out.ThrustN = math.Max(0, thrust)
		out.TorqueNm = math.Max(0, torque)
		out.PowerW = out.TorqueNm * in.Op.OmegaRadS

		viNew := inducedUpdate(out.ThrustN, in.Env.Rho, area, vAxFree)
		resid := math.Abs(viNew - vi)
		out.Residual = resid

		if numeric.IsFinite(resid) && resid <= in.Cfg.TolInflow {
			vi = viNew
			out.InducedVelocityMps = vi
			out.FigureOfMerit = 0
			if in.Op.Mode == ModeHover && math.Abs(in.Op.VInfMps) <= 1e-6 {
				out.FigureOfMerit = figureOfMerit(out.ThrustN, out.PowerW, in.Env.Rho, area)
			}
			computeCoeffs(&out, in.Env.Rho, area, in.Op.OmegaRadS, in.Geom.RadiusM)
			computePropEff(&out, vAxFree)
			return out
		}

		relaxed := (1-in.Cfg.InflowRelax)*vi + in.Cfg.InflowRelax*viNew
		vi = numeric.Clamp(relaxed, 0, 250)
	}

	out.Code = errs.NonConverged
	out.Message = "inflow iteration did not converge"
	out.InducedVelocityMps = vi
	out.FigureOfMerit = 0
	computeCoeffs(&out, in.Env.Rho, area, in.Op.OmegaRadS, in.Geom.RadiusM)
	return out
}

func fmtRadius(r float64) string {
	// Fixed short formatting so error strings stay deterministic.
	return trimFloat(r)
}

// computeCoeffs fills the non-dimensional coefficients when the reference
// quantities are usable.
func computeCoeffs(out *Result, rho, area, omega, radius float64) {
	if rho <= 0 || area <= 0 || omega <= 0 || radius <= 0 {
		return
	}
	vtip := omega * radius
	denT := rho * area * vtip * vtip
	denQ := rho * area * radius * vtip * vtip
	denP := rho * area * vtip * vtip * vtip
	if denT > 0 && numeric.IsSet(out.ThrustN) {
		out.Ct = out.ThrustN / denT
	}
	if denQ > 0 && numeric.IsSet(out.TorqueNm) {
		out.Cq = out.TorqueNm / denQ
	}
	if denP > 0 && numeric.IsSet(out.PowerW) {
		out.Cp = out.PowerW / denP
	}
}

// computePropEff fills the forward propulsive efficiency proxy T*V/P.
func computePropEff(out *Result, vAxial float64) {
	out.PropEff = 0
	if vAxial > 1e-9 && numeric.IsSet(out.PowerW) && out.PowerW > 1e-9 {
		out.PropEff = numeric.Clamp(out.ThrustN*vAxial/out.PowerW, 0, 2)
	}
}

// Solve runs a hover solve, trimming collective to the target thrust when
// the operating point carries one. Validation failures are returned as
// errors; algorithmic statuses travel inside the result.
func (s *Solver) Solve(in Inputs) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	if !in.Op.WantsTrim() {
		return s.solveAtCollective(&in, in.Op.CollectiveOffsetRad, 2.0), nil
	}

	target := in.Op.TargetThrustN
	lo, hi := in.Cfg.CollectiveMinRad, in.Cfg.CollectiveMaxRad

	rLo := s.solveAtCollective(&in, lo, 2.0)
	if rLo.Code != errs.Ok {
		return rLo, nil
	}
	rHi := s.solveAtCollective(&in, hi, rLo.InducedVelocityMps)
	if rHi.Code != errs.Ok {
		return rHi, nil
	}

	f := func(r *Result) float64 { return r.ThrustN - target }

	fLo, fHi := f(&rLo), f(&rHi)
	if fLo*fHi > 0 {
		best := rLo
		if math.Abs(fHi) < math.Abs(fLo) {
			best = rHi
		}
		best.Code = errs.OutOfRange
		best.Message = "target thrust outside collective bracket"
		return best, nil
	}

	a, b := lo, hi
	ra, rb := rLo, rHi

	for it := 0; it < in.Cfg.MaxIterTrim; it++ {
		mid := 0.5 * (a + b)
		viInit := 0.5 * (ra.InducedVelocityMps + rb.InducedVelocityMps)

		rm := s.solveAtCollective(&in, mid, viInit)
		rm.TrimIters = it + 1
		if rm.Code != errs.Ok {
			return rm, nil
		}

		fm := f(&rm)
		if math.Abs(fm) <= in.Cfg.TolTrimN {
			return rm, nil
		}

		if f(&ra)*fm <= 0 {
			b, rb = mid, rm
		} else {
			a, ra = mid, rm
		}
	}

	best := ra
	if math.Abs(f(&rb)) < math.Abs(f(&ra)) {
		best = rb
	}
	best.Code = errs.NonConverged
	best.Message = "trim bisection exhausted iterations"
	return best, nil
}
