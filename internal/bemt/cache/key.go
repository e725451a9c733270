// Package cache memoizes hover and forward BEMT results keyed by a
// quantized fingerprint of the inputs. Keys are pairs of independent
// 64-bit FNV-1a hashes; eviction is strictly LRU. An optional Redis
// backend shares the cache across processes.
package cache

import (
	"math"

	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Quantization sets the rounding step per field family so that tiny
// optimizer-induced jitter collapses into one key.
type Quantization struct {
	LenM      float64 `yaml:"len_m"`
	AngRad    float64 `yaml:"ang_rad"`
	VelMps    float64 `yaml:"vel_mps"`
	OmegaRadS float64 `yaml:"omega_rad_s"`
	Rho       float64 `yaml:"rho"`
	Mu        float64 `yaml:"mu"`
	Tol       float64 `yaml:"tol"`
	ThrustN   float64 `yaml:"thrust_n"`
}

// DefaultQuantization returns steps sized for small-rotor design spaces.
func DefaultQuantization() Quantization {
	return Quantization{
		LenM:      1e-4,
		AngRad:    1e-4,
		VelMps:    1e-3,
		OmegaRadS: 1e-2,
		Rho:       1e-4,
		Mu:        1e-9,
		Tol:       1e-7,
		ThrustN:   1e-2,
	}
}

// Validate rejects non-positive steps.
func (q *Quantization) Validate() error {
	for _, v := range []float64{q.LenM, q.AngRad, q.VelMps, q.OmegaRadS, q.Rho, q.Mu, q.Tol, q.ThrustN} {
		if !numeric.IsFinite(v) || v <= 0 {
			return errs.New(errs.InvalidInput, "cache quantization: non-positive step")
		}
	}
	return nil
}

// Key identifies one memoized evaluation. Two independent hashes give
// collision resistance; Kind separates the hover and forward namespaces.
type Key struct {
	Kind uint8
	H1   uint64
	H2   uint64
}

const (
	kindHover   uint8 = 0
	kindForward uint8 = 1
)

// KeyBuilder turns solver inputs into cache keys. PolarID must identify
// the polar tables in use; two different tables must never share a key.
type KeyBuilder struct {
	Q       Quantization
	PolarID string
}

// NewKeyBuilder returns a builder with default quantization.
func NewKeyBuilder(polarID string) *KeyBuilder {
	return &KeyBuilder{Q: DefaultQuantization(), PolarID: polarID}
}

func (kb *KeyBuilder) qd(v, step float64) int64 {
	if !numeric.IsFinite(v) || step <= 0 {
		return 0
	}
	return int64(math.Round(v / step))
}

type hashPair struct {
	h1, h2 uint64
}

func newHashPair() hashPair {
	return hashPair{h1: numeric.FNV1aInit(), h2: numeric.FNV1aInit()}
}

func (h *hashPair) u64(x uint64) {
	h.h1 = numeric.FNV1aStep(h.h1, x)
	h.h2 = numeric.FNV1aStep(h.h2, numeric.RotL64(x, 13))
}

func (h *hashPair) i64(x int64) {
	h.u64(uint64(x))
}

func (h *hashPair) str(s string) {
	for i := 0; i < len(s); i++ {
		c := uint64(s[i])
		h.h1 = numeric.FNV1aStep(h.h1, c)
		h.h2 = numeric.FNV1aStep(h.h2, numeric.RotL64(c, 7))
	}
}

func (kb *KeyBuilder) hashGeom(h *hashPair, g *bemt.RotorGeometry) {
	h.i64(int64(g.BladeCount))
	h.i64(kb.qd(g.RadiusM, kb.Q.LenM))
	h.i64(kb.qd(g.HubRadiusM, kb.Q.LenM))
	h.i64(int64(g.TipLoss))
	h.i64(int64(len(g.Stations)))
	for i := range g.Stations {
		st := &g.Stations[i]
		h.i64(kb.qd(st.RM, kb.Q.LenM))
		h.i64(kb.qd(st.ChordM, kb.Q.LenM))
		h.i64(kb.qd(st.TwistRad, kb.Q.AngRad))
	}
}

func (kb *KeyBuilder) hashEnv(h *hashPair, e *bemt.Environment) {
	h.i64(kb.qd(e.Rho, kb.Q.Rho))
	h.i64(kb.qd(e.Mu, kb.Q.Mu))
	h.i64(kb.qd(e.SpeedOfSound, kb.Q.VelMps))
}

func (kb *KeyBuilder) hashOp(h *hashPair, op *bemt.OperatingPoint) {
	h.i64(kb.qd(op.VInfMps, kb.Q.VelMps))
	h.i64(kb.qd(op.OmegaRadS, kb.Q.OmegaRadS))
	h.i64(kb.qd(op.CollectiveOffsetRad, kb.Q.AngRad))
	if op.WantsTrim() {
		h.i64(1)
		h.i64(kb.qd(op.TargetThrustN, kb.Q.ThrustN))
	} else {
		h.i64(0)
	}
	h.i64(kb.qd(op.InflowAngleRad, kb.Q.AngRad))
}

func (kb *KeyBuilder) hashCfg(h *hashPair, c *bemt.SolverConfig) {
	h.i64(int64(c.MaxIterInflow))
	h.i64(kb.qd(c.TolInflow, kb.Q.Tol))
	h.i64(kb.qd(c.InflowRelax, kb.Q.Tol))
	h.i64(int64(c.MaxIterTrim))
	h.i64(kb.qd(c.TolTrimN, kb.Q.Tol))
	h.i64(kb.qd(c.CollectiveMinRad, kb.Q.AngRad))
	h.i64(kb.qd(c.CollectiveMaxRad, kb.Q.AngRad))
	h.i64(kb.qd(c.MinPhiRad, kb.Q.AngRad))
	h.i64(kb.qd(c.MaxPhiRad, kb.Q.AngRad))
	h.i64(kb.qd(c.MinAoARad, kb.Q.AngRad))
	h.i64(kb.qd(c.MaxAoARad, kb.Q.AngRad))
	h.i64(kb.qd(c.MinDrM, kb.Q.LenM))
	h.i64(kb.qd(c.MachMax, kb.Q.Tol))
	h.i64(kb.qd(c.ReynoldsMin, kb.Q.Tol))
	h.i64(kb.qd(c.ReynoldsMax, kb.Q.Tol))
	h.i64(kb.qd(c.MinTipLossF, kb.Q.Tol))
}

// HoverKey fingerprints a hover/trim solve.
func (kb *KeyBuilder) HoverKey(in *bemt.Inputs) (Key, error) {
	if err := kb.Q.Validate(); err != nil {
		return Key{}, err
	}
	h := newHashPair()
	h.str(kb.PolarID)
	kb.hashGeom(&h, &in.Geom)
	kb.hashEnv(&h, &in.Env)
	kb.hashOp(&h, &in.Op)
	kb.hashCfg(&h, &in.Cfg)
	return Key{Kind: kindHover, H1: h.h1, H2: h.h2}, nil
}

// ForwardKey fingerprints a forward-flight solve.
func (kb *KeyBuilder) ForwardKey(in *bemt.Inputs, vInplaneMps float64, fcfg *bemt.ForwardConfig) (Key, error) {
	if err := kb.Q.Validate(); err != nil {
		return Key{}, err
	}
	if err := fcfg.Validate(); err != nil {
		return Key{}, err
	}
	h := newHashPair()
	h.str(kb.PolarID)
	kb.hashGeom(&h, &in.Geom)
	kb.hashEnv(&h, &in.Env)
	kb.hashOp(&h, &in.Op)
	kb.hashCfg(&h, &in.Cfg)

	h.i64(kb.qd(vInplaneMps, kb.Q.VelMps))
	h.i64(kb.qd(fcfg.VAxialMps, kb.Q.VelMps))
	h.i64(int64(fcfg.NPsi))
	h.i64(int64(fcfg.MaxIterVi))
	h.i64(kb.qd(fcfg.TolVi, kb.Q.Tol))
	h.i64(kb.qd(fcfg.RelaxVi, kb.Q.Tol))

	return Key{Kind: kindForward, H1: h.h1, H2: h.h2}, nil
}
