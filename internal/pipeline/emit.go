// Package pipeline glues the engine together: the closeout runner feeding
// gates and artifacts, the gated CFD calibration pipeline, the Monte-Carlo
// probability closeout, and the CFD job manifest builder.
package pipeline

import (
	"strings"

	"github.com/skylift/rotoreval/internal/artifact"
	"github.com/skylift/rotoreval/internal/closeout"
)

// closeoutPrecision is the fixed CSV precision of the closeout family.
const closeoutPrecision = 6

var closeoutHeader = []string{
	"case_id",
	"A_m2", "DL_N_m2",
	"hover_code", "hover_T_N", "hover_Q_Nm", "hover_P_W", "hover_vi_mps",
	"hover_FM", "hover_collective_rad", "hover_inflow_iters", "hover_trim_iters",
	"fwd_code", "V_inplane_mps", "fwd_T_N", "fwd_Q_Nm", "fwd_P_W", "fwd_vi_mps",
	"sens_omega_n_dT", "sens_omega_n_dP",
	"sens_collective_n_dT", "sens_collective_n_dP",
	"sens_rho_n_dT", "sens_rho_n_dP",
	"sens_radius_n_dT", "sens_radius_n_dP",
	"sens_chord_n_dT", "sens_chord_n_dP",
	"kT",
}

func closeoutCells(r *closeout.Row) []string {
	f := func(v float64) string { return artifact.CSVFloat(v, closeoutPrecision) }
	return []string{
		r.CaseID,
		f(r.AM2), f(r.DLNm2),
		artifact.CSVUint(r.HoverCode.Code()), f(r.HoverTN), f(r.HoverQNm), f(r.HoverPW), f(r.HoverViMps),
		f(r.HoverFM), f(r.HoverCollectiveRad), artifact.CSVInt(r.HoverInflowIters), artifact.CSVInt(r.HoverTrimIters),
		artifact.CSVUint(r.FwdCode.Code()), f(r.VInplaneMps), f(r.FwdTN), f(r.FwdQNm), f(r.FwdPW), f(r.FwdViMps),
		f(r.SensOmegaNdT), f(r.SensOmegaNdP),
		f(r.SensCollectiveNdT), f(r.SensCollectiveNdP),
		f(r.SensRhoNdT), f(r.SensRhoNdP),
		f(r.SensRadiusNdT), f(r.SensRadiusNdP),
		f(r.SensChordNdT), f(r.SensChordNdP),
		f(r.KT),
	}
}

// CloseoutCSV emits the closeout table with the stable column order.
func CloseoutCSV(rows []closeout.Row) string {
	w := artifact.NewRowWriter(closeoutHeader...)
	for i := range rows {
		w.Row(closeoutCells(&rows[i])...)
	}
	return w.String()
}

// CorrectedCloseoutCSV emits the closeout columns plus the calibration
// multipliers and corrected values.
func CorrectedCloseoutCSV(rows []closeout.CorrectedRow) string {
	header := append(append([]string{}, closeoutHeader...),
		"cfd_corr_T", "cfd_corr_P",
		"corr_hover_T_N", "corr_hover_P_W", "corr_fwd_T_N", "corr_fwd_P_W")
	w := artifact.NewRowWriter(header...)
	f := func(v float64) string { return artifact.CSVFloat(v, closeoutPrecision) }
	for i := range rows {
		r := &rows[i]
		cells := append(closeoutCells(&r.Row),
			f(r.CfdCorrT), f(r.CfdCorrP),
			f(r.CorrHoverTN), f(r.CorrHoverPW), f(r.CorrFwdTN), f(r.CorrFwdPW))
		w.Row(cells...)
	}
	return w.String()
}

// GonogoCSV emits per-case verdicts with pipe-joined reason lists. The
// reasons are the failing and data-starved checks, in report order.
func GonogoCSV(reports []closeout.GateReport) string {
	w := artifact.NewRowWriter("case_id", "status", "reasons_count", "reasons_keys", "reasons_messages")
	for i := range reports {
		rep := &reports[i]
		var keys, msgs []string
		for _, c := range rep.Checks {
			if c.Status == closeout.CheckFail || c.Status == closeout.CheckNeedsData {
				keys = append(keys, c.ID)
				msgs = append(msgs, c.Note)
			}
		}
		w.Row(rep.CaseID, rep.Verdict.String(), artifact.CSVInt(len(keys)),
			strings.Join(keys, "|"), strings.Join(msgs, "|"))
	}
	return w.String()
}

// GateReportJSON emits one gate report through the canonical writer.
func GateReportJSON(rep *closeout.GateReport, pretty bool) (string, error) {
	opt := artifact.WriterOptions{EmitNullForUnset: true}
	if pretty {
		opt.Pretty = "  "
	}
	w := artifact.NewWriter(opt)
	w.BeginObject()
	w.Key("case_id").String(rep.CaseID)
	w.Key("verdict").String(rep.Verdict.String())
	w.Key("checks").BeginArray()
	for _, c := range rep.Checks {
		w.BeginObject()
		w.Key("id").String(c.ID)
		w.Key("status").String(c.Status.String())
		w.Key("pass").Bool(c.Pass)
		w.Key("value").Float(c.Value)
		w.Key("threshold").Float(c.Threshold)
		w.Key("note").String(c.Note)
		w.EndObject()
	}
	w.EndArray()
	w.EndObject()
	return w.Result()
}
