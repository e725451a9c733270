package closeout

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/bemt/cache"
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
	"github.com/skylift/rotoreval/internal/rotor"
)

// SolveObserver receives per-solve telemetry. The monitor metrics
// registry implements it.
type SolveObserver interface {
	SolveObserved(mode, result string, seconds float64)
}

// Case is one fully specified evaluation identified by a stable case id.
type Case struct {
	CaseID string

	Hover bemt.Inputs

	RunForward  bool
	VInplaneMps float64
	ForwardCfg  bemt.ForwardConfig

	RunSensitivity bool
	SensCfg        bemt.SensitivityConfig
}

// Runner turns cases into closeout rows.
type Runner struct {
	hover   *bemt.Solver
	forward *bemt.ForwardSolver
	sens    *bemt.Analyzer

	cached   *cache.CachedSolver
	observer SolveObserver
}

// NewRunner wires the three solvers over one section sampler.
func NewRunner(sampler bemt.SectionSampler) *Runner {
	hover := bemt.NewSolverWithSampler(sampler)
	return &Runner{
		hover:   hover,
		forward: bemt.NewForwardSolverWithSampler(sampler),
		sens:    bemt.NewAnalyzer(hover),
	}
}

// NewRunnerWithCache routes hover and forward solves through the cached
// solver; sensitivities keep the raw solver (perturbed inputs rarely
// share a key).
func NewRunnerWithCache(sampler bemt.SectionSampler, cached *cache.CachedSolver) *Runner {
	r := NewRunner(sampler)
	r.cached = cached
	return r
}

// SetObserver attaches per-solve telemetry.
func (r *Runner) SetObserver(o SolveObserver) {
	r.observer = o
}

func (r *Runner) observe(mode string, code errs.Kind, started time.Time) {
	if r.observer != nil {
		r.observer.SolveObserved(mode, code.String(), time.Since(started).Seconds())
	}
}

func (r *Runner) solveHover(in bemt.Inputs) (bemt.Result, error) {
	started := time.Now()
	var res bemt.Result
	var err error
	if r.cached != nil {
		res, err = r.cached.Solve(in)
	} else {
		res, err = r.hover.Solve(in)
	}
	if err == nil {
		r.observe("hover", res.Code, started)
	}
	return res, err
}

func (r *Runner) solveForward(in bemt.Inputs, vInplaneMps float64, fcfg bemt.ForwardConfig) (bemt.ForwardResult, error) {
	started := time.Now()
	var res bemt.ForwardResult
	var err error
	if r.cached != nil {
		res, err = r.cached.SolveForward(in, vInplaneMps, fcfg)
	} else {
		res, err = r.forward.Solve(in.Geom, in.Env, in.Op, in.Cfg, vInplaneMps, fcfg)
	}
	if err == nil {
		r.observe("forward", res.Code, started)
	}
	return res, err
}

// Run evaluates every case: hover (with optional trim), the optional
// forward solve, and the optional sensitivities. kTForSizing is echoed
// into each row for downstream sizing.
func (r *Runner) Run(cases []Case, kTForSizing float64) ([]Row, error) {
	if !numeric.IsFinite(kTForSizing) || kTForSizing <= 0 {
		return nil, errs.New(errs.InvalidInput, "kT for sizing must be > 0")
	}

	rows := make([]Row, 0, len(cases))
	for i := range cases {
		c := &cases[i]
		if c.CaseID == "" {
			return nil, errs.New(errs.InvalidInput, "case id empty")
		}
		if err := c.Hover.Validate(); err != nil {
			return nil, err
		}
		if c.RunForward {
			if err := c.ForwardCfg.Validate(); err != nil {
				return nil, err
			}
			if !numeric.IsFinite(c.VInplaneMps) || c.VInplaneMps < 0 {
				return nil, errs.Newf(errs.InvalidInput, "case %s: v_inplane invalid", c.CaseID)
			}
		}
		if c.RunSensitivity {
			if err := c.SensCfg.Validate(); err != nil {
				return nil, err
			}
		}

		row := NewRow(c.CaseID)
		row.KT = kTForSizing

		hover, err := r.solveHover(c.Hover)
		if err != nil {
			return nil, err
		}
		row.HoverCode = hover.Code
		row.HoverTN = hover.ThrustN
		row.HoverQNm = hover.TorqueNm
		row.HoverPW = hover.PowerW
		row.HoverViMps = hover.InducedVelocityMps
		row.HoverFM = hover.FigureOfMerit
		row.HoverCollectiveRad = hover.CollectiveRad
		row.HoverInflowIters = hover.InflowIters
		row.HoverTrimIters = hover.TrimIters

		area := c.Hover.Geom.DiskAreaM2()
		row.AM2 = area
		row.DLNm2 = rotor.DiskLoading(row.HoverTN, area)

		if c.RunForward {
			fwd, err := r.solveForward(c.Hover, c.VInplaneMps, c.ForwardCfg)
			if err != nil {
				return nil, err
			}
			row.FwdCode = fwd.Code
			row.VInplaneMps = c.VInplaneMps
			row.FwdTN = fwd.ThrustN
			row.FwdQNm = fwd.TorqueNm
			row.FwdPW = fwd.PowerW
			row.FwdViMps = fwd.InducedVelocityMps
		} else {
			row.FwdCode = errs.Ok
		}

		if c.RunSensitivity && hover.Code == errs.Ok {
			sr, err := r.sens.Compute(c.Hover, c.SensCfg)
			if err != nil {
				return nil, err
			}
			if sr.Code != errs.Ok {
				log.Warn().Str("case_id", c.CaseID).Str("code", sr.Code.String()).
					Msg("sensitivity computation failed; derivatives left unset")
			} else {
				row.SensOmegaNdT = sr.Omega.NdT
				row.SensOmegaNdP = sr.Omega.NdP
				row.SensCollectiveNdT = sr.Collective.NdT
				row.SensCollectiveNdP = sr.Collective.NdP
				row.SensRhoNdT = sr.Rho.NdT
				row.SensRhoNdP = sr.Rho.NdP
				row.SensRadiusNdT = sr.RadiusScale.NdT
				row.SensRadiusNdP = sr.RadiusScale.NdP
				row.SensChordNdT = sr.ChordScale.NdT
				row.SensChordNdP = sr.ChordScale.NdP
			}
		}

		rows = append(rows, row)
	}
	return rows, nil
}
