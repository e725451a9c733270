package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "rotoreval"
	version = "v1.3.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Design-space evaluator for small rotorcraft concepts",
		Version: version,
		Long: `rotoreval evaluates rotorcraft concepts with a BEMT solver, runs
deterministic Go/No-Go gates over the closeout, blends in external CFD
calibration when available, and emits hash-audited artifact bundles.`,
	}

	rootCmd.AddCommand(newCloseoutCmd())
	rootCmd.AddCommand(newCalibrateCmd())
	rootCmd.AddCommand(newProbCmd())
	rootCmd.AddCommand(newMonitorCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
