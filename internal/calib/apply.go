package calib

import (
	"github.com/skylift/rotoreval/internal/closeout"
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

func validCorr(v float64) bool {
	return numeric.IsFinite(v) && v > 0
}

// Apply multiplies hover and forward thrust/power by the matching accepted
// corrections, defaulting to 1 when no entry applies. Unset (NaN) fields
// stay unset: NaN times any multiplier is still NaN.
func Apply(rows []closeout.Row, cal *Table) []closeout.CorrectedRow {
	out := make([]closeout.CorrectedRow, 0, len(rows))

	for _, r := range rows {
		c := closeout.CorrectedRow{Row: r, CfdCorrT: 1, CfdCorrP: 1}

		if r.CaseID != "" && cal != nil {
			if e := cal.Find(r.CaseID); e != nil && e.Code == errs.Ok {
				if validCorr(e.CorrectionThrust) {
					c.CfdCorrT = e.CorrectionThrust
				}
				if validCorr(e.CorrectionPower) {
					c.CfdCorrP = e.CorrectionPower
				}
			}
		}

		c.CorrHoverTN = r.HoverTN * c.CfdCorrT
		c.CorrHoverPW = r.HoverPW * c.CfdCorrP
		c.CorrFwdTN = r.FwdTN * c.CfdCorrT
		c.CorrFwdPW = r.FwdPW * c.CfdCorrP

		out = append(out, c)
	}
	return out
}

// AcceptedTable builds a table holding only the gate's accepted entries.
func AcceptedTable(res *GateResult) Table {
	t := Table{Entries: append([]Entry(nil), res.Accepted...)}
	t.RebuildIndex()
	return t
}
