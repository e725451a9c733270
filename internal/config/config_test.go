package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.KTForSizing != 1.2 {
		t.Errorf("kT default = %v", cfg.KTForSizing)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "closeout.yaml")
	doc := `
kt_for_sizing: 1.5
thresholds:
  a_total_min_m2: 0.7
  p_hover_1g_max_w: 60000
  fm_min: 0.60
  require_compliance_ok: true
solver:
  tol_inflow: 1.0e-5
calibration:
  gates:
    min_ok_cases: 5
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.KTForSizing != 1.5 {
		t.Errorf("kt = %v", cfg.KTForSizing)
	}
	if cfg.Thresholds.ATotalMinM2 != 0.7 || !cfg.Thresholds.RequireComplianceOK {
		t.Errorf("thresholds = %+v", cfg.Thresholds)
	}
	if cfg.Solver.TolInflow != 1e-5 {
		t.Errorf("solver tol = %v", cfg.Solver.TolInflow)
	}
	if cfg.Calibration.Gates.MinOKCases != 5 {
		t.Errorf("min_ok_cases = %d", cfg.Calibration.Gates.MinOKCases)
	}
	// Untouched sections keep defaults.
	if cfg.Solver.MaxIterInflow != 200 {
		t.Errorf("solver max iter default lost: %d", cfg.Solver.MaxIterInflow)
	}
}

func TestCacheConfig(t *testing.T) {
	cfg := Default()
	if cfg.Cache.Backend != CacheBackendMemory || cfg.Cache.MaxEntries != 4096 {
		t.Errorf("cache defaults = %+v", cfg.Cache)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "redis.yaml")
	doc := `
cache:
  backend: redis
  redis_addr: localhost:6379
  redis_ttl_seconds: 600
  max_entries: 128
  polar_id: naca0012-grid
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Cache.Backend != CacheBackendRedis || loaded.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("cache = %+v", loaded.Cache)
	}
	if loaded.Cache.RedisTTLSeconds != 600 || loaded.Cache.PolarID != "naca0012-grid" {
		t.Errorf("cache = %+v", loaded.Cache)
	}

	// Redis backend without an address is rejected.
	bad := CacheConfig{Backend: CacheBackendRedis, MaxEntries: 10, PolarID: "p"}
	if err := bad.Validate(); err == nil {
		t.Error("redis backend without addr must fail")
	}
	unknown := CacheConfig{Backend: "memcached", MaxEntries: 10, PolarID: "p"}
	if err := unknown.Validate(); err == nil {
		t.Error("unknown backend must fail")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("thresholds:\n  fm_min: 2.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("fm_min 2.0 must fail validation")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file must fail")
	}
}
