package pipeline

import (
	"github.com/rs/zerolog/log"

	"github.com/skylift/rotoreval/internal/artifact"
	"github.com/skylift/rotoreval/internal/calib"
	"github.com/skylift/rotoreval/internal/closeout"
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// CfdPipelineConfig drives the gated calibration run.
type CfdPipelineConfig struct {
	Ingest calib.IngestConfig    `yaml:"ingest"`
	Gates  calib.GateThresholds  `yaml:"gates"`

	RecomputeGonogo bool                 `yaml:"recompute_gonogo"`
	Thresholds      closeout.Thresholds  `yaml:"thresholds"`
	GateInputsFor   func(row closeout.Row) closeout.GateInputs `yaml:"-"`

	// Observer receives the accepted/rejected gating split when set.
	Observer calib.GateObserver `yaml:"-"`
}

// DefaultCfdPipelineConfig uses the default ingest clamp and gate set.
func DefaultCfdPipelineConfig() CfdPipelineConfig {
	return CfdPipelineConfig{
		Ingest:          calib.DefaultIngestConfig(),
		Gates:           calib.DefaultGateThresholds(),
		RecomputeGonogo: true,
		Thresholds:      closeout.DefaultThresholds(),
	}
}

// CfdPipelineOutputs is the full artifact set of one gated run. When the
// gate fails, only the manifest, results, calibration and gate-result
// fields are populated; corrected outputs stay empty so they cannot be
// consumed accidentally.
type CfdPipelineOutputs struct {
	Manifest CfdManifest

	ManifestJSON artifact.Tagged
	ManifestCSV  artifact.Tagged
	ResultsCSV   artifact.Tagged

	Calibration calib.Table
	GateResult  calib.GateResult

	CalibrationEnabled bool

	CorrectedRows        []closeout.CorrectedRow
	CorrectedCloseoutCSV artifact.Tagged
	CorrectedGonogo      []closeout.GateReport
	CorrectedGonogoCSV   artifact.Tagged

	Bundle *artifact.Bundle
}

// defaultGateInputs reads the gate-relevant metrics straight off a
// (corrected) closeout row.
func defaultGateInputs(row closeout.Row) closeout.GateInputs {
	return closeout.GateInputs{
		ATotalM2:    row.AM2,
		DLNm2:       row.DLNm2,
		PHoverW:     row.HoverPW,
		HoverFM:     row.HoverFM,
		DMassKg:     numeric.Unset(),
		MassEmptyKg: numeric.Unset(),
	}
}

// RunCfdPipeline runs the gated calibration chain: build + audit the
// manifest, ingest the external results, gate them, and, when enough
// cases survive, apply the corrections and re-evaluate the Go/No-Go
// gates against the corrected values.
func RunCfdPipeline(rows []closeout.Row, reports []closeout.GateReport,
	manifestID, createdUTC string, policy SelectionPolicy,
	cfdResultsCSV string, cfg CfdPipelineConfig) (CfdPipelineOutputs, error) {

	var out CfdPipelineOutputs

	manifest, err := BuildCfdManifest(manifestID, createdUTC, "", rows, reports, policy, "exports/")
	if err != nil {
		return out, err
	}
	out.Manifest = manifest

	js, err := manifest.JSON(false)
	if err != nil {
		return out, err
	}
	if out.ManifestJSON, err = artifact.NewTagged("cfd_manifest.json", artifact.SchemaCfdManifestJSON, js); err != nil {
		return out, err
	}
	if out.ManifestCSV, err = artifact.NewTagged("cfd_manifest.csv", artifact.SchemaCfdManifestCSV, manifest.CSV()); err != nil {
		return out, err
	}

	out.GateResult.Code = errs.NonConverged
	out.GateResult.Message = "No CFD results provided"

	bundle := artifact.NewBundle(manifestID)
	bundle.Add(out.ManifestJSON)
	bundle.Add(out.ManifestCSV)

	if cfdResultsCSV == "" {
		bundle.AddAbsent("cfd_results.csv")
		bundle.AddAbsent("corrected_closeout.csv")
		bundle.AddAbsent("corrected_gonogo.csv")
		out.Bundle = bundle
		return out, nil
	}

	if out.ResultsCSV, err = artifact.NewTagged("cfd_results.csv", artifact.SchemaCfdResultsCSV, cfdResultsCSV); err != nil {
		return out, err
	}
	bundle.Add(out.ResultsCSV)

	bemtT := make(map[string]float64, len(rows))
	bemtP := make(map[string]float64, len(rows))
	for i := range rows {
		bemtT[rows[i].CaseID] = rows[i].HoverTN
		bemtP[rows[i].CaseID] = rows[i].HoverPW
	}

	out.Calibration, err = calib.IngestCSV(cfdResultsCSV, bemtT, bemtP, cfg.Ingest)
	if err != nil {
		return out, err
	}

	out.GateResult, err = calib.GateObserved(out.Calibration, cfg.Gates, cfg.Observer)
	if err != nil {
		return out, err
	}

	if out.GateResult.Code != errs.Ok {
		// Manifest-only run: keep the gate result for the caller, emit no
		// corrected outputs.
		log.Warn().Str("manifest_id", manifestID).Str("msg", out.GateResult.Message).
			Msg("cfd calibration gating failed")
		bundle.AddAbsent("corrected_closeout.csv")
		bundle.AddAbsent("corrected_gonogo.csv")
		out.Bundle = bundle
		return out, nil
	}

	accepted := calib.AcceptedTable(&out.GateResult)
	out.CorrectedRows = calib.Apply(rows, &accepted)
	out.CalibrationEnabled = true

	if out.CorrectedCloseoutCSV, err = artifact.NewTagged("corrected_closeout.csv",
		artifact.SchemaCorrectedCloseoutCSV, CorrectedCloseoutCSV(out.CorrectedRows)); err != nil {
		return out, err
	}
	bundle.Add(out.CorrectedCloseoutCSV)

	if cfg.RecomputeGonogo {
		inputsFor := cfg.GateInputsFor
		if inputsFor == nil {
			inputsFor = defaultGateInputs
		}
		for i := range out.CorrectedRows {
			adjusted := out.CorrectedRows[i].Row
			adjusted.HoverTN = out.CorrectedRows[i].CorrHoverTN
			adjusted.HoverPW = out.CorrectedRows[i].CorrHoverPW
			adjusted.FwdTN = out.CorrectedRows[i].CorrFwdTN
			adjusted.FwdPW = out.CorrectedRows[i].CorrFwdPW

			rep, err := closeout.EvaluateGates(adjusted.CaseID, inputsFor(adjusted), cfg.Thresholds)
			if err != nil {
				return out, err
			}
			out.CorrectedGonogo = append(out.CorrectedGonogo, rep)
		}
		if out.CorrectedGonogoCSV, err = artifact.NewTagged("corrected_gonogo.csv",
			artifact.SchemaCorrectedGonogoCSV, GonogoCSV(out.CorrectedGonogo)); err != nil {
			return out, err
		}
		bundle.Add(out.CorrectedGonogoCSV)
	} else {
		bundle.AddAbsent("corrected_gonogo.csv")
	}

	out.Bundle = bundle
	return out, nil
}
