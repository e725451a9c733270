package closeout

import (
	"fmt"

	"github.com/skylift/rotoreval/internal/drag"
	"github.com/skylift/rotoreval/internal/maneuver"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Verdict is the terminal gate outcome with precedence
// NoGo > NeedsData > Warn > Go.
type Verdict uint8

const (
	VerdictGo Verdict = iota
	VerdictWarn
	VerdictNeedsData
	VerdictNoGo
)

// String renders the verdict for artifacts.
func (v Verdict) String() string {
	switch v {
	case VerdictGo:
		return "Go"
	case VerdictWarn:
		return "Warn"
	case VerdictNeedsData:
		return "NeedsData"
	case VerdictNoGo:
		return "NoGo"
	default:
		return "Unknown"
	}
}

// MaxVerdict returns the stricter of two verdicts under the precedence
// order.
func MaxVerdict(a, b Verdict) Verdict {
	if b > a {
		return b
	}
	return a
}

// AggregateVerdicts folds a status list under the precedence order.
func AggregateVerdicts(vs []Verdict) Verdict {
	out := VerdictGo
	for _, v := range vs {
		out = MaxVerdict(out, v)
	}
	return out
}

// CheckStatus is the outcome of one gate check.
type CheckStatus uint8

const (
	CheckPass CheckStatus = iota
	CheckFail
	CheckUnknown
	CheckNeedsData
)

// String renders the status for artifacts.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "Pass"
	case CheckFail:
		return "Fail"
	case CheckUnknown:
		return "Unknown"
	case CheckNeedsData:
		return "NeedsData"
	default:
		return "Unknown"
	}
}

// GateCheck is one evaluated gate.
type GateCheck struct {
	ID        string
	Status    CheckStatus
	Pass      bool
	Value     float64
	Threshold float64
	Note      string
}

// GateReport is the ordered per-case gate outcome.
type GateReport struct {
	CaseID  string
	Verdict Verdict
	Checks  []GateCheck
}

// OK reports a clean Go.
func (r *GateReport) OK() bool {
	return r.Verdict == VerdictGo
}

// FailedChecks returns the failing checks in order.
func (r *GateReport) FailedChecks() []GateCheck {
	var out []GateCheck
	for _, c := range r.Checks {
		if c.Status == CheckFail {
			out = append(out, c)
		}
	}
	return out
}

// NeedsDataChecks returns the checks starved of input.
func (r *GateReport) NeedsDataChecks() []GateCheck {
	var out []GateCheck
	for _, c := range r.Checks {
		if c.Status == CheckNeedsData {
			out = append(out, c)
		}
	}
	return out
}

// gateEnabled implements the unified rule: a gate participates iff its
// threshold is strictly positive and finite.
func gateEnabled(thr float64) bool {
	return numeric.IsFinite(thr) && thr > 0
}

func addCheck(checks *[]GateCheck, id string, status CheckStatus, value, thr float64, note string) {
	*checks = append(*checks, GateCheck{
		ID:        id,
		Status:    status,
		Pass:      status == CheckPass || status == CheckUnknown,
		Value:     value,
		Threshold: thr,
		Note:      note,
	})
}

// gateLeq evaluates value <= thr; disabled gates emit Unknown, unset
// values NeedsData.
func gateLeq(checks *[]GateCheck, id string, value, thr float64, note string) {
	if !gateEnabled(thr) {
		addCheck(checks, id, CheckUnknown, value, thr, "disabled")
		return
	}
	if !numeric.IsFinite(value) {
		addCheck(checks, id, CheckNeedsData, value, thr, "input missing or non-finite")
		return
	}
	if value <= thr {
		addCheck(checks, id, CheckPass, value, thr, "")
		return
	}
	addCheck(checks, id, CheckFail, value, thr, note)
}

// gateGeq evaluates value >= thr; same disabled/unset semantics.
func gateGeq(checks *[]GateCheck, id string, value, thr float64, note string) {
	if !gateEnabled(thr) {
		addCheck(checks, id, CheckUnknown, value, thr, "disabled")
		return
	}
	if !numeric.IsFinite(value) {
		addCheck(checks, id, CheckNeedsData, value, thr, "input missing or non-finite")
		return
	}
	if value >= thr {
		addCheck(checks, id, CheckPass, value, thr, "")
		return
	}
	addCheck(checks, id, CheckFail, value, thr, note)
}

// gateBool evaluates a required boolean condition.
func gateBool(checks *[]GateCheck, id string, ok bool, note string) {
	v := 0.0
	if ok {
		v = 1.0
	}
	if ok {
		addCheck(checks, id, CheckPass, v, 1.0, "")
		return
	}
	addCheck(checks, id, CheckFail, v, 1.0, note)
}

// SyncInput is the rotor synchronization subreport.
type SyncInput struct {
	Present bool
	Margin  float64
	OK      bool
}

// StructInput is the structures/gearbox subreport.
type StructInput struct {
	Present bool
	OK      bool
}

// MissionInput is the mission-scoring subreport.
type MissionInput struct {
	Present    bool
	Score      float64
	TotalTimeS float64
}

// GateInputs is everything the aggregator consumes, assembled from the
// solver, the ledgers, and the ancillary subreports.
type GateInputs struct {
	DMassKg     float64
	MassEmptyKg float64

	ATotalM2 float64
	DLNm2    float64
	PHoverW  float64
	HoverFM  float64

	BaselineDrag  []drag.Item
	CandidateDrag []drag.Item
	Rho           float64

	Maneuver maneuver.Metrics

	Sync       SyncInput
	Structures StructInput
	Mission    MissionInput

	Compliance *ComplianceReport
}

// EvaluateGates runs every gate against the thresholds and aggregates the
// verdict: any failing check forces NoGo; otherwise any starved check
// forces NeedsData.
func EvaluateGates(caseID string, in GateInputs, thr Thresholds) (GateReport, error) {
	if err := thr.Validate(); err != nil {
		return GateReport{}, err
	}

	rep := GateReport{CaseID: caseID}
	checks := &rep.Checks

	// Mass.
	gateLeq(checks, "GATE.MASS.DELTA_MAX_KG", in.DMassKg, thr.DMassMaxKg, "mass delta exceeds max")
	gateLeq(checks, "GATE.MASS.EMPTY_MAX_KG", in.MassEmptyKg, thr.MassEmptyMaxKg, "empty mass exceeds max")

	// Disk area, loading, power, FM.
	gateGeq(checks, "GATE.ROTOR.A_TOTAL_MIN_M2", in.ATotalM2, thr.ATotalMinM2, "total disk area below minimum")
	gateLeq(checks, "GATE.ROTOR.DISK_LOADING_MAX", in.DLNm2, thr.DLMaxNm2, "disk loading exceeds max")
	gateLeq(checks, "GATE.POWER.HOVER_1G_MAX_W", in.PHoverW, thr.PHover1gMaxW, "hover power exceeds max")
	gateGeq(checks, "GATE.ROTOR.FM_MIN", in.HoverFM, thr.FMMin, "figure of merit below minimum")

	// Drag.
	if thr.VDragTargetMps > 0 && (gateEnabled(thr.CdSMaxM2) || gateEnabled(thr.PParasiteMaxW)) {
		dd, err := drag.Compare(in.BaselineDrag, in.CandidateDrag, in.Rho, thr.VDragTargetMps)
		if err != nil {
			return GateReport{}, err
		}
		gateLeq(checks, "GATE.DRAG.CDS_MAX_M2", dd.CdSCandM2, thr.CdSMaxM2, "CdS exceeds max")
		gateLeq(checks, "GATE.DRAG.P_PARASITE_MAX_W", dd.PCandW, thr.PParasiteMaxW, "parasite power exceeds max at target speed")
	} else {
		addCheck(checks, "GATE.DRAG.CDS_MAX_M2", CheckUnknown, numeric.Unset(), thr.CdSMaxM2, "disabled")
		addCheck(checks, "GATE.DRAG.P_PARASITE_MAX_W", CheckUnknown, numeric.Unset(), thr.PParasiteMaxW, "disabled")
	}

	// Maneuverability.
	gateGeq(checks, "GATE.MANEUVER.YAW_MARGIN_MIN", in.Maneuver.YawMargin, thr.YawMarginMin, "yaw margin below minimum")
	gateGeq(checks, "GATE.MANEUVER.ROLL_MARGIN_MIN", in.Maneuver.RollMargin, thr.RollMarginMin, "roll margin below minimum")
	gateGeq(checks, "GATE.MANEUVER.PITCH_MARGIN_MIN", in.Maneuver.PitchMargin, thr.PitchMarginMin, "pitch margin below minimum")
	gateGeq(checks, "GATE.MANEUVER.YAW_ALPHA_MIN", in.Maneuver.YawAlphaMax, thr.YawAlphaMin, "yaw acceleration below minimum")
	gateGeq(checks, "GATE.MANEUVER.ROLL_ALPHA_MIN", in.Maneuver.RollAlphaMax, thr.RollAlphaMin, "roll acceleration below minimum")
	gateGeq(checks, "GATE.MANEUVER.PITCH_ALPHA_MIN", in.Maneuver.PitchAlphaMax, thr.PitchAlphaMin, "pitch acceleration below minimum")
	gateLeq(checks, "GATE.MANEUVER.TURN_RADIUS_MAX_M", in.Maneuver.TurnRadiusM, thr.TurnRadiusMaxM, "turn radius exceeds max")

	// Sync.
	if thr.RequireSyncOK {
		if !in.Sync.Present {
			addCheck(checks, "GATE.SYNC.PRESENT", CheckNeedsData, 0, 1, "sync required but not evaluated")
		} else {
			gateGeq(checks, "GATE.SYNC.MARGIN_MIN", in.Sync.Margin, thr.SyncMarginMin, "sync margin below minimum")
			gateBool(checks, "GATE.SYNC.REPORT_OK", in.Sync.OK, "sync report contains failing checks")
		}
	} else {
		addCheck(checks, "GATE.SYNC.MARGIN_MIN", CheckUnknown, in.Sync.Margin, thr.SyncMarginMin, "not required")
	}

	// Structures.
	if thr.RequireStructOK {
		if !in.Structures.Present {
			addCheck(checks, "GATE.STRUCT.PRESENT", CheckNeedsData, 0, 1, "structures required but not evaluated")
		} else {
			gateBool(checks, "GATE.STRUCT.REPORT_OK", in.Structures.OK, "structures report contains failing checks")
		}
	} else {
		addCheck(checks, "GATE.STRUCT.PRESENT", CheckUnknown, 0, 0, "not required")
	}

	// Mission.
	if in.Mission.Present {
		gateLeq(checks, "GATE.MISSION.SCORE_MAX", in.Mission.Score, thr.MissionScoreMax, "mission score exceeds max")
		gateLeq(checks, "GATE.MISSION.TIME_MAX_S", in.Mission.TotalTimeS, thr.MissionTimeMaxS, "mission time exceeds max")
	} else {
		addCheck(checks, "GATE.MISSION.SCORE_MAX", CheckUnknown, numeric.Unset(), thr.MissionScoreMax, "not evaluated")
		addCheck(checks, "GATE.MISSION.TIME_MAX_S", CheckUnknown, numeric.Unset(), thr.MissionTimeMaxS, "not evaluated")
	}

	// Compliance.
	if thr.RequireComplianceOK {
		if in.Compliance == nil {
			addCheck(checks, "GATE.COMPLIANCE.PRESENT", CheckNeedsData, 0, 1, "compliance required but not evaluated")
		} else {
			gateBool(checks, "GATE.COMPLIANCE.OK", in.Compliance.OK(),
				fmt.Sprintf("compliance fails %d clause(s)", in.Compliance.FailedCount()))
		}
	} else {
		addCheck(checks, "GATE.COMPLIANCE.PRESENT", CheckUnknown, 0, 0, "not required")
	}

	// Aggregate: Fail dominates, then NeedsData.
	rep.Verdict = VerdictGo
	for _, c := range rep.Checks {
		switch c.Status {
		case CheckFail:
			rep.Verdict = MaxVerdict(rep.Verdict, VerdictNoGo)
		case CheckNeedsData:
			rep.Verdict = MaxVerdict(rep.Verdict, VerdictNeedsData)
		}
	}
	return rep, nil
}
