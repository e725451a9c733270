package pipeline

import (
	"github.com/rs/zerolog/log"

	"github.com/skylift/rotoreval/internal/artifact"
	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/bemt/cache"
	"github.com/skylift/rotoreval/internal/closeout"
)

// RunObserver receives run-level telemetry: run lifecycle, per-solve
// timings, and terminal verdicts. The monitor metrics registry
// implements it.
type RunObserver interface {
	closeout.SolveObserver
	RunStarted()
	RunFinished()
	GateVerdict(verdict string)
}

// CloseoutConfig drives the end-to-end closeout run.
type CloseoutConfig struct {
	KTForSizing float64             `yaml:"kt_for_sizing"`
	Thresholds  closeout.Thresholds `yaml:"thresholds"`

	// GateInputsFor assembles the gate inputs per row; nil uses the
	// row-local defaults (area, loading, power, FM).
	GateInputsFor func(row closeout.Row) closeout.GateInputs `yaml:"-"`

	// Cache routes hover/forward solves through a cached solver when set.
	Cache *cache.CachedSolver `yaml:"-"`

	// Observer receives run telemetry when set.
	Observer RunObserver `yaml:"-"`
}

// CloseoutOutputs is the audited artifact set of one closeout run.
type CloseoutOutputs struct {
	Rows    []closeout.Row
	Reports []closeout.GateReport

	CloseoutCSV artifact.Tagged
	GonogoCSV   artifact.Tagged

	Bundle             *artifact.Bundle
	BundleManifestJSON artifact.Tagged
	BundleManifestCSV  artifact.Tagged
}

// RunCloseout solves every case, evaluates the gates, and emits the
// audited artifact bundle.
func RunCloseout(bundleID string, sampler bemt.SectionSampler,
	cases []closeout.Case, cfg CloseoutConfig) (CloseoutOutputs, error) {

	var out CloseoutOutputs

	if cfg.Observer != nil {
		cfg.Observer.RunStarted()
		defer cfg.Observer.RunFinished()
	}

	var runner *closeout.Runner
	if cfg.Cache != nil {
		runner = closeout.NewRunnerWithCache(sampler, cfg.Cache)
	} else {
		runner = closeout.NewRunner(sampler)
	}
	if cfg.Observer != nil {
		runner.SetObserver(cfg.Observer)
	}

	rows, err := runner.Run(cases, cfg.KTForSizing)
	if err != nil {
		return out, err
	}
	out.Rows = rows

	inputsFor := cfg.GateInputsFor
	if inputsFor == nil {
		inputsFor = defaultGateInputs
	}
	for i := range rows {
		rep, err := closeout.EvaluateGates(rows[i].CaseID, inputsFor(rows[i]), cfg.Thresholds)
		if err != nil {
			return out, err
		}
		if cfg.Observer != nil {
			cfg.Observer.GateVerdict(rep.Verdict.String())
		}
		out.Reports = append(out.Reports, rep)
	}

	if out.CloseoutCSV, err = artifact.NewTagged("closeout.csv",
		artifact.SchemaCloseoutCSV, CloseoutCSV(rows)); err != nil {
		return out, err
	}
	if out.GonogoCSV, err = artifact.NewTagged("gonogo.csv",
		artifact.SchemaGonogoCSV, GonogoCSV(out.Reports)); err != nil {
		return out, err
	}

	bundle := artifact.NewBundle(bundleID)
	bundle.Add(out.CloseoutCSV)
	bundle.Add(out.GonogoCSV)
	out.Bundle = bundle

	if out.BundleManifestJSON, out.BundleManifestCSV, err = bundle.AuditedManifest(); err != nil {
		return out, err
	}

	log.Info().Str("bundle_id", bundleID).Int("cases", len(rows)).
		Str("bundle_audit", bundle.Digest().Tag).Msg("closeout run complete")
	return out, nil
}
