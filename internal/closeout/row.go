// Package closeout is the gate-aggregation engine: it flattens solver
// outputs into closeout rows, evaluates the numerical Go/No-Go gates,
// validates issue reports against the catalog, and checks compliance
// clauses against evidence.
package closeout

import (
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Row is the flattened per-case summary. Unset numerics are NaN.
type Row struct {
	CaseID string

	AM2    float64
	DLNm2  float64

	HoverCode          errs.Kind
	HoverTN            float64
	HoverQNm           float64
	HoverPW            float64
	HoverViMps         float64
	HoverFM            float64
	HoverCollectiveRad float64
	HoverInflowIters   int
	HoverTrimIters     int

	FwdCode     errs.Kind
	VInplaneMps float64
	FwdTN       float64
	FwdQNm      float64
	FwdPW       float64
	FwdViMps    float64

	SensOmegaNdT      float64
	SensOmegaNdP      float64
	SensCollectiveNdT float64
	SensCollectiveNdP float64
	SensRhoNdT        float64
	SensRhoNdP        float64
	SensRadiusNdT     float64
	SensRadiusNdP     float64
	SensChordNdT      float64
	SensChordNdP      float64

	KT float64
}

// NewRow returns a row with every numeric field unset.
func NewRow(caseID string) Row {
	n := numeric.Unset()
	return Row{
		CaseID:             caseID,
		AM2:                n,
		DLNm2:              n,
		HoverTN:            n,
		HoverQNm:           n,
		HoverPW:            n,
		HoverViMps:         n,
		HoverFM:            n,
		HoverCollectiveRad: n,
		VInplaneMps:        n,
		FwdTN:              n,
		FwdQNm:             n,
		FwdPW:              n,
		FwdViMps:           n,
		SensOmegaNdT:       n,
		SensOmegaNdP:       n,
		SensCollectiveNdT:  n,
		SensCollectiveNdP:  n,
		SensRhoNdT:         n,
		SensRhoNdP:         n,
		SensRadiusNdT:      n,
		SensRadiusNdP:      n,
		SensChordNdT:       n,
		SensChordNdP:       n,
		KT:                 n,
	}
}

// CorrectedRow is a closeout row with CFD calibration multipliers applied.
type CorrectedRow struct {
	Row

	CfdCorrT float64
	CfdCorrP float64

	CorrHoverTN float64
	CorrHoverPW float64
	CorrFwdTN   float64
	CorrFwdPW   float64
}
