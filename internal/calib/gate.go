package calib

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// GateThresholds qualify calibration entries before they may correct
// outputs. Relative-error checks are enabled iff their threshold is
// strictly positive.
type GateThresholds struct {
	MinCorrAllow float64 `yaml:"min_corr_allow"`
	MaxCorrAllow float64 `yaml:"max_corr_allow"`

	MaxRelErrThrust float64 `yaml:"max_rel_err_thrust"`
	MaxRelErrPower  float64 `yaml:"max_rel_err_power"`

	MinOKCases int `yaml:"min_ok_cases"`
}

// DefaultGateThresholds accepts corrections in [0.5, 2] and requires three
// surviving cases.
func DefaultGateThresholds() GateThresholds {
	return GateThresholds{
		MinCorrAllow:    0.5,
		MaxCorrAllow:    2.0,
		MaxRelErrThrust: 0.5,
		MaxRelErrPower:  0.5,
		MinOKCases:      3,
	}
}

// Validate rejects malformed thresholds.
func (t *GateThresholds) Validate() error {
	if !numeric.IsFinite(t.MinCorrAllow) || !numeric.IsFinite(t.MaxCorrAllow) ||
		t.MinCorrAllow <= 0 || t.MaxCorrAllow <= t.MinCorrAllow {
		return errs.New(errs.InvalidConfig, "calibration gate bounds invalid")
	}
	if !numeric.IsFinite(t.MaxRelErrThrust) || t.MaxRelErrThrust < 0 {
		return errs.New(errs.InvalidConfig, "max_rel_err_thrust invalid")
	}
	if !numeric.IsFinite(t.MaxRelErrPower) || t.MaxRelErrPower < 0 {
		return errs.New(errs.InvalidConfig, "max_rel_err_power invalid")
	}
	if t.MinOKCases < 1 {
		return errs.New(errs.InvalidConfig, "min_ok_cases must be >= 1")
	}
	return nil
}

// GateResult splits entries into accepted and rejected. When fewer than
// MinOKCases survive, Code is NonConverged and the accepted set is
// cleared so it cannot be applied by mistake.
type GateResult struct {
	Code    errs.Kind
	Message string

	Total    int
	OK       int
	Rejected int

	Accepted        []Entry
	RejectedEntries []Entry
}

func relErr(num, den float64) float64 {
	if !numeric.IsFinite(num) || !numeric.IsFinite(den) || den <= 0 {
		return math.Inf(1)
	}
	return math.Abs(num-den) / den
}

// GateObserver receives the accepted/rejected split of a gating pass. The
// monitor metrics registry implements it.
type GateObserver interface {
	CalibrationGate(accepted, rejected int)
}

// Gate filters the table. Error-state entries never reach the accepted
// set.
func Gate(table Table, thr GateThresholds) (GateResult, error) {
	return GateObserved(table, thr, nil)
}

// GateObserved is Gate with per-pass telemetry.
func GateObserved(table Table, thr GateThresholds, obs GateObserver) (GateResult, error) {
	if err := thr.Validate(); err != nil {
		return GateResult{}, err
	}

	res := GateResult{Total: len(table.Entries)}

	for _, in := range table.Entries {
		e := in

		if e.Code != errs.Ok {
			res.RejectedEntries = append(res.RejectedEntries, e)
			continue
		}

		if !numeric.IsFinite(e.CorrectionThrust) || !numeric.IsFinite(e.CorrectionPower) ||
			e.CorrectionThrust < thr.MinCorrAllow || e.CorrectionThrust > thr.MaxCorrAllow ||
			e.CorrectionPower < thr.MinCorrAllow || e.CorrectionPower > thr.MaxCorrAllow {
			e.Code = errs.InvalidInput
			e.Message = "correction outside gating bounds"
			res.RejectedEntries = append(res.RejectedEntries, e)
			continue
		}

		if thr.MaxRelErrThrust > 0 {
			if !(relErr(e.TCfdN, e.TBemtN) <= thr.MaxRelErrThrust) {
				e.Code = errs.InvalidInput
				e.Message = "thrust relative error too high"
				res.RejectedEntries = append(res.RejectedEntries, e)
				continue
			}
		}
		if thr.MaxRelErrPower > 0 {
			if !(relErr(e.PCfdW, e.PBemtW) <= thr.MaxRelErrPower) {
				e.Code = errs.InvalidInput
				e.Message = "power relative error too high"
				res.RejectedEntries = append(res.RejectedEntries, e)
				continue
			}
		}

		res.Accepted = append(res.Accepted, e)
	}

	res.OK = len(res.Accepted)
	res.Rejected = len(res.RejectedEntries)
	if obs != nil {
		obs.CalibrationGate(res.OK, res.Rejected)
	}

	if res.OK < thr.MinOKCases {
		res.Code = errs.NonConverged
		res.Message = "Insufficient CFD samples after gating"
		res.Accepted = nil
		log.Warn().Int("ok", res.OK).Int("min", thr.MinOKCases).
			Msg("calibration disabled: not enough accepted cases")
	} else {
		res.Code = errs.Ok
		res.Message = "OK"
	}
	return res, nil
}
