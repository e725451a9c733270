package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/skylift/rotoreval/internal/artifact"
	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/config"
	httpiface "github.com/skylift/rotoreval/internal/interfaces/http"
	"github.com/skylift/rotoreval/internal/pipeline"
	"github.com/skylift/rotoreval/internal/store"
)

func newCloseoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "closeout",
		Short: "Run the closeout pipeline over a case file",
		Long:  "Solves every case, evaluates the Go/No-Go gates, and writes the audited closeout artifact bundle.",
		RunE:  runCloseout,
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().String("bundle-id", "", "Bundle identifier (random when empty)")
	cmd.Flags().String("persist-dsn", "", "Postgres DSN; persists the run and its artifacts when set")
	return cmd
}

func runCloseout(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	casesPath, _ := cmd.Flags().GetString("cases")
	outDir, _ := cmd.Flags().GetString("out")
	bundleID, _ := cmd.Flags().GetString("bundle-id")
	persistDSN, _ := cmd.Flags().GetString("persist-dsn")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	pol, cases, err := loadCases(casesPath, cfg)
	if err != nil {
		return err
	}
	if bundleID == "" {
		bundleID = "closeout-" + uuid.NewString()
	}

	metrics := httpiface.NewMetricsRegistry()
	cached := buildCachedSolver(cfg, pol, metrics)

	out, err := pipeline.RunCloseout(bundleID, bemt.UniformSampler{P: pol}, cases,
		pipeline.CloseoutConfig{
			KTForSizing: cfg.KTForSizing,
			Thresholds:  cfg.Thresholds,
			Cache:       cached,
			Observer:    metrics,
		})
	if err != nil {
		return err
	}

	for _, a := range []struct{ name, content string }{
		{"closeout.csv", out.CloseoutCSV.Content},
		{"gonogo.csv", out.GonogoCSV.Content},
		{"bundle_manifest.json", out.BundleManifestJSON.Content},
		{"bundle_manifest.csv", out.BundleManifestCSV.Content},
	} {
		if err := writeArtifact(outDir, a.name, a.content); err != nil {
			return err
		}
	}

	if persistDSN != "" {
		db, err := store.Open(persistDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		artifacts := []artifact.Tagged{
			out.CloseoutCSV, out.GonogoCSV,
			out.BundleManifestJSON, out.BundleManifestCSV,
		}
		if err := db.SaveRun(ctx, bundleID, out.Bundle.Digest(), artifacts); err != nil {
			return err
		}
	}

	log.Info().Str("bundle_id", bundleID).
		Str("closeout_tag", out.CloseoutCSV.Audit.Tag).
		Str("bundle_tag", out.Bundle.Digest().Tag).
		Bool("persisted", persistDSN != "").
		Msg("closeout artifacts written")
	return nil
}
