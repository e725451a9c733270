package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/calib"
	"github.com/skylift/rotoreval/internal/config"
	"github.com/skylift/rotoreval/internal/errs"
	httpiface "github.com/skylift/rotoreval/internal/interfaces/http"
	"github.com/skylift/rotoreval/internal/pipeline"
)

func newCalibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Run the gated CFD calibration pipeline",
		Long: "Re-runs the closeout, ingests external CFD results keyed by case id, gates them, " +
			"and emits corrected closeout artifacts when enough cases survive.",
		RunE: runCalibrate,
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().String("results", "", "CFD results CSV file (case_id,T_cfd_N,P_cfd_W)")
	cmd.Flags().String("results-url", "", "Fetch CFD results from this URL instead of a file")
	cmd.Flags().Int("top-n", 10, "Manifest candidate count")
	return cmd
}

func runCalibrate(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	casesPath, _ := cmd.Flags().GetString("cases")
	outDir, _ := cmd.Flags().GetString("out")
	resultsPath, _ := cmd.Flags().GetString("results")
	resultsURL, _ := cmd.Flags().GetString("results-url")
	topN, _ := cmd.Flags().GetInt("top-n")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	pol, cases, err := loadCases(casesPath, cfg)
	if err != nil {
		return err
	}

	metrics := httpiface.NewMetricsRegistry()
	cached := buildCachedSolver(cfg, pol, metrics)

	base, err := pipeline.RunCloseout(pipeline.NewManifestID(), bemt.UniformSampler{P: pol}, cases,
		pipeline.CloseoutConfig{
			KTForSizing: cfg.KTForSizing,
			Thresholds:  cfg.Thresholds,
			Cache:       cached,
			Observer:    metrics,
		})
	if err != nil {
		return err
	}

	var resultsCSV string
	switch {
	case resultsURL != "":
		fetcher := calib.NewFetcher(calib.DefaultFetcherConfig())
		resultsCSV, err = fetcher.Fetch(context.Background(), resultsURL)
		if err != nil {
			return err
		}
	case resultsPath != "":
		data, err := os.ReadFile(resultsPath)
		if err != nil {
			return errs.Newf(errs.IOError, "failed to read results %s: %v", resultsPath, err)
		}
		resultsCSV = string(data)
	}

	policy := pipeline.DefaultSelectionPolicy()
	policy.TopN = topN

	pipeCfg := pipeline.DefaultCfdPipelineConfig()
	pipeCfg.Ingest = cfg.Calibration.Ingest
	pipeCfg.Gates = cfg.Calibration.Gates
	pipeCfg.Thresholds = cfg.Thresholds
	pipeCfg.Observer = metrics

	out, err := pipeline.RunCfdPipeline(base.Rows, base.Reports,
		pipeline.NewManifestID(), time.Now().UTC().Format(time.RFC3339),
		policy, resultsCSV, pipeCfg)
	if err != nil {
		return err
	}

	artifacts := []struct{ name, content string }{
		{"cfd_manifest.json", out.ManifestJSON.Content},
		{"cfd_manifest.csv", out.ManifestCSV.Content},
	}
	if out.CalibrationEnabled {
		artifacts = append(artifacts,
			struct{ name, content string }{"corrected_closeout.csv", out.CorrectedCloseoutCSV.Content},
			struct{ name, content string }{"corrected_gonogo.csv", out.CorrectedGonogoCSV.Content},
		)
	}
	for _, a := range artifacts {
		if a.content == "" {
			continue
		}
		if err := writeArtifact(outDir, a.name, a.content); err != nil {
			return err
		}
	}

	if out.GateResult.Code != errs.Ok {
		log.Warn().Str("code", out.GateResult.Code.String()).
			Str("message", out.GateResult.Message).
			Msg("calibration not enabled; manifest-only outputs written")
	} else {
		log.Info().Int("accepted", out.GateResult.OK).Int("rejected", out.GateResult.Rejected).
			Msg("calibration applied")
	}
	return nil
}
