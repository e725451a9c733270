package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/closeout"
	"github.com/skylift/rotoreval/internal/config"
	"github.com/skylift/rotoreval/internal/numeric"
	"github.com/skylift/rotoreval/internal/polar"
)

// caseSpec is one YAML case entry.
type caseSpec struct {
	CaseID string `yaml:"case_id"`

	Geometry bemt.RotorGeometry `yaml:"geometry"`

	Environment *bemt.Environment `yaml:"environment"`

	OmegaRadS           float64  `yaml:"omega_rad_s"`
	CollectiveDeg       float64  `yaml:"collective_deg"`
	VInfMps             float64  `yaml:"v_inf_mps"`
	TargetThrustN       *float64 `yaml:"target_thrust_n"`

	RunForward  bool    `yaml:"run_forward"`
	VInplaneMps float64 `yaml:"v_inplane_mps"`

	RunSensitivity bool `yaml:"run_sensitivity"`
}

// caseFile is the YAML document listing cases and the shared polar.
type caseFile struct {
	Polar polar.Linear `yaml:"polar"`
	Cases []caseSpec   `yaml:"cases"`
}

// loadCases reads the case file and materializes closeout cases with the
// shared solver configuration.
func loadCases(path string, cfg config.Config) (polar.Linear, []closeout.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return polar.Linear{}, nil, fmt.Errorf("failed to read case file %s: %w", path, err)
	}

	cf := caseFile{Polar: polar.DefaultLinear()}
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return polar.Linear{}, nil, fmt.Errorf("failed to parse case file %s: %w", path, err)
	}
	if err := cf.Polar.Validate(); err != nil {
		return polar.Linear{}, nil, err
	}

	cases := make([]closeout.Case, 0, len(cf.Cases))
	for _, cs := range cf.Cases {
		env := bemt.DefaultEnvironment()
		if cs.Environment != nil {
			env = *cs.Environment
		}
		target := numeric.Unset()
		if cs.TargetThrustN != nil {
			target = *cs.TargetThrustN
		}

		c := closeout.Case{
			CaseID: cs.CaseID,
			Hover: bemt.Inputs{
				Geom: cs.Geometry,
				Env:  env,
				Op: bemt.OperatingPoint{
					Mode:                bemt.ModeHover,
					VInfMps:             cs.VInfMps,
					OmegaRadS:           cs.OmegaRadS,
					CollectiveOffsetRad: numeric.Deg2Rad(cs.CollectiveDeg),
					TargetThrustN:       target,
				},
				Cfg: cfg.Solver,
			},
			RunForward:     cs.RunForward,
			VInplaneMps:    cs.VInplaneMps,
			ForwardCfg:     cfg.Forward,
			RunSensitivity: cs.RunSensitivity,
			SensCfg:        cfg.Sensitivity,
		}
		cases = append(cases, c)
	}
	return cf.Polar, cases, nil
}

// addCommonFlags registers the flags shared by the evaluation commands.
func addCommonFlags(fs *pflag.FlagSet) {
	fs.String("config", "config/closeout.yaml", "Evaluator configuration file")
	fs.String("cases", "cases.yaml", "Case definition file")
	fs.String("out", "out", "Artifact output directory")
}

func writeArtifact(dir, name, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
