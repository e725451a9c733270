// Package config loads the evaluator's YAML configuration: gate
// thresholds, solver settings, calibration policy, and Monte-Carlo runs.
// Every section has a defaults constructor for testing and fallback.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/calib"
	"github.com/skylift/rotoreval/internal/closeout"
	"github.com/skylift/rotoreval/internal/mc"
)

// Config is the full evaluator configuration file.
type Config struct {
	KTForSizing float64 `yaml:"kt_for_sizing"`

	Solver      bemt.SolverConfig      `yaml:"solver"`
	Forward     bemt.ForwardConfig     `yaml:"forward"`
	Sensitivity bemt.SensitivityConfig `yaml:"sensitivity"`

	Thresholds closeout.Thresholds `yaml:"thresholds"`

	Calibration CalibrationConfig `yaml:"calibration"`

	Cache CacheConfig `yaml:"cache"`

	MonteCarlo mc.Config `yaml:"monte_carlo"`
}

// Cache backend names.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig selects the evaluation-cache backend. The redis backend
// shares entries across processes under the same quantized hash keys.
type CacheConfig struct {
	Backend    string `yaml:"backend"`
	MaxEntries int    `yaml:"max_entries"`
	PolarID    string `yaml:"polar_id"`

	RedisAddr       string        `yaml:"redis_addr"`
	RedisTTLSeconds int           `yaml:"redis_ttl_seconds"`
}

// DefaultCacheConfig is the in-process LRU.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Backend:    CacheBackendMemory,
		MaxEntries: 4096,
		PolarID:    "linear-default",
	}
}

// Validate rejects unknown backends and incomplete redis settings.
func (c *CacheConfig) Validate() error {
	switch c.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("cache backend redis requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Backend)
	}
	if c.MaxEntries < 1 {
		return fmt.Errorf("cache max_entries must be >= 1")
	}
	if c.PolarID == "" {
		return fmt.Errorf("cache polar_id must not be empty")
	}
	if c.RedisTTLSeconds < 0 {
		return fmt.Errorf("cache redis_ttl_seconds must be >= 0")
	}
	return nil
}

// CalibrationConfig groups the calibration chain settings.
type CalibrationConfig struct {
	Ingest calib.IngestConfig   `yaml:"ingest"`
	Gates  calib.GateThresholds `yaml:"gates"`
}

// Default returns the built-in configuration (all gates disabled).
func Default() Config {
	return Config{
		KTForSizing: 1.2,
		Solver:      bemt.DefaultSolverConfig(),
		Forward:     bemt.DefaultForwardConfig(),
		Sensitivity: bemt.DefaultSensitivityConfig(),
		Thresholds:  closeout.DefaultThresholds(),
		Calibration: CalibrationConfig{
			Ingest: calib.DefaultIngestConfig(),
			Gates:  calib.DefaultGateThresholds(),
		},
		Cache: DefaultCacheConfig(),
	}
}

// Load reads and validates a YAML configuration file. Missing sections
// keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if err := c.Forward.Validate(); err != nil {
		return err
	}
	if err := c.Sensitivity.Validate(); err != nil {
		return err
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if err := c.Calibration.Ingest.Validate(); err != nil {
		return err
	}
	if err := c.Calibration.Gates.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return nil
}
