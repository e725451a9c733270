package bemt

import (
	"errors"
	"math"
	"strconv"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
	"github.com/skylift/rotoreval/internal/polar"
)

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// ForwardSolver runs the azimuthal-sweep forward-flight solve with a
// swirl-free scalar induced-velocity closure.
type ForwardSolver struct {
	sampler SectionSampler
}

// NewForwardSolver builds a forward solver over a single polar.
func NewForwardSolver(p polar.Polar) *ForwardSolver {
	return &ForwardSolver{sampler: UniformSampler{P: p}}
}

// NewForwardSolverWithSampler builds a forward solver over a radius-aware
// sampler.
func NewForwardSolverWithSampler(s SectionSampler) *ForwardSolver {
	return &ForwardSolver{sampler: s}
}

// Solve sweeps nPsi azimuths per station and iterates the scalar induced
// velocity vi_new = T / (2 rho A sqrt((Vax+vi)^2 + Vip^2)). Sectional
// loads are averaged over the revolution so the total thrust is the
// per-rev mean regardless of nPsi.
func (s *ForwardSolver) Solve(geom RotorGeometry, env Environment, op OperatingPoint,
	cfg SolverConfig, vInplaneMps float64, fcfg ForwardConfig) (ForwardResult, error) {

	if err := geom.Validate(); err != nil {
		return ForwardResult{}, err
	}
	if err := env.Validate(); err != nil {
		return ForwardResult{}, err
	}
	if err := op.Validate(); err != nil {
		return ForwardResult{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ForwardResult{}, err
	}
	if err := fcfg.Validate(); err != nil {
		return ForwardResult{}, err
	}
	if !numeric.IsFinite(vInplaneMps) || vInplaneMps < 0 || vInplaneMps >= 250 {
		return ForwardResult{}, errs.New(errs.InvalidInput, "v_inplane_mps must be in [0, 250)")
	}

	out := NewForwardResult()
	out.VInplaneMps = vInplaneMps

	area := geom.DiskAreaM2()
	vi := 2.0
	dpsi := 2 * math.Pi / float64(fcfg.NPsi)
	azWeight := 1.0 / float64(fcfg.NPsi)

	for it := 0; it < fcfg.MaxIterVi; it++ {
		out.ViIters = it + 1

		var thrust, torque float64

		for i := range geom.Stations {
			bs := &geom.Stations[i]
			r := bs.RM
			dr := math.Max(cfg.MinDrM, stationDr(&geom, i))

			for k := 0; k < fcfg.NPsi; k++ {
				psi := (float64(k) + 0.5) * dpsi

				// Advancing/retreating in-plane component on the local
				// tangential direction.
				vtan := op.OmegaRadS*r + vInplaneMps*math.Cos(psi)
				vax := fcfg.VAxialMps + vi
				vrel := math.Sqrt(math.Max(0, vax*vax+vtan*vtan))

				phi := math.Atan2(math.Abs(vax), math.Max(1e-9, math.Abs(vtan)))
				phiC := numeric.Clamp(phi, cfg.MinPhiRad, cfg.MaxPhiRad)

				theta := bs.TwistRad + op.CollectiveOffsetRad
				aoa := numeric.Clamp(theta-phiC, cfg.MinAoARad, cfg.MaxAoARad)

				re := numeric.SafeDiv(env.Rho*vrel*bs.ChordM, env.Mu, 0)
				mach := numeric.SafeDiv(vrel, env.SpeedOfSound, 0)

				if err := domainGuard(&cfg, r, re, mach); err != nil {
					out.Code = errs.OutOfRange
					var te *errs.Error
					if errors.As(err, &te) {
						out.Message = te.Msg
					}
					return out, nil
				}

				po, err := s.sampler.SampleAt(r, polar.Query{AoARad: aoa, Reynolds: re, Mach: mach})
				if err != nil {
					var te *errs.Error
					if errors.As(err, &te) {
						out.Code = te.Kind
						out.Message = te.Msg
					} else {
						out.Code = errs.MissingPolarData
						out.Message = err.Error()
					}
					return out, nil
				}
				cl, cd := po.Cl, po.Cd
				if !numeric.IsFinite(cl) {
					cl = 0
				}
				if !numeric.IsFinite(cd) || cd < 0 {
					cd = 0
				}

				f := 1.0
				if geom.TipLoss == TipLossPrandtl {
					f = prandtlTipLoss(geom.BladeCount, r, geom.RadiusM, phiC, cfg.MinTipLossF)
				}

				qdyn := 0.5 * env.Rho * vrel * vrel
				lp := qdyn * bs.ChordM * cl
				dp := qdyn * bs.ChordM * cd

				sinPhi, cosPhi := math.Sincos(phiC)
				dTBlade := (lp*cosPhi - dp*sinPhi) * dr * f
				dQBlade := (lp*sinPhi + dp*cosPhi) * r * dr * f

				dT := dTBlade * float64(geom.BladeCount) * azWeight
				dQ := dQBlade * float64(geom.BladeCount) * azWeight

				if !numeric.IsFinite(dT) || !numeric.IsFinite(dQ) {
					out.Code = errs.NumericalFailure
					out.Message = "non-finite sectional loads at r=" + trimFloat(r)
					return out, nil
				}

				thrust += dT
				torque += dQ
			}
		}

		out.ThrustN = math.Max(0, thrust)
		out.TorqueNm = math.Max(0, torque)
		out.PowerW = out.TorqueNm * op.OmegaRadS

		vax := fcfg.VAxialMps + vi
		veff := math.Sqrt(math.Max(1e-12, vax*vax+vInplaneMps*vInplaneMps))
		viNew := numeric.SafeDiv(out.ThrustN, 2*env.Rho*area*veff, 0)

		resid := math.Abs(viNew - vi)
		out.Residual = resid
		if numeric.IsFinite(resid) && resid <= fcfg.TolVi {
			out.InducedVelocityMps = viNew
			return out, nil
		}

		relaxed := (1-fcfg.RelaxVi)*vi + fcfg.RelaxVi*viNew
		vi = math.Max(0, relaxed)
	}

	out.Code = errs.NonConverged
	out.Message = "induced-velocity iteration did not converge"
	out.InducedVelocityMps = vi
	return out, nil
}
