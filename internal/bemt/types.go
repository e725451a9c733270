// Package bemt implements the Blade Element Momentum Theory solver: hover
// with an induced-velocity fixed point, collective trim by bisection, and
// a forward-flight azimuthal sweep with a swirl-free momentum closure.
package bemt

import (
	"math"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
	"github.com/skylift/rotoreval/internal/polar"
)

// TipLossModel selects the tip-loss correction.
type TipLossModel uint8

const (
	TipLossNone TipLossModel = iota
	TipLossPrandtl
)

// BladeStation is one radial section of the blade planform.
type BladeStation struct {
	RM        float64 `yaml:"r_m"`
	ChordM    float64 `yaml:"chord_m"`
	TwistRad  float64 `yaml:"twist_rad"`
	AirfoilID string  `yaml:"airfoil_id"`
}

// RotorGeometry is an immutable rotor planform. Stations are strictly
// increasing in radius and bounded by (hub radius, radius).
type RotorGeometry struct {
	BladeCount int            `yaml:"blade_count"`
	RadiusM    float64        `yaml:"radius_m"`
	HubRadiusM float64        `yaml:"hub_radius_m"`
	TipLoss    TipLossModel   `yaml:"tip_loss"`
	Stations   []BladeStation `yaml:"stations"`
}

// Validate rejects malformed geometry with InvalidGeometry.
func (g *RotorGeometry) Validate() error {
	if g.BladeCount < 2 || g.BladeCount > 16 {
		return errs.Newf(errs.InvalidGeometry, "blade_count %d outside [2,16]", g.BladeCount)
	}
	if !numeric.IsFinite(g.RadiusM) || g.RadiusM <= 0 {
		return errs.New(errs.InvalidGeometry, "radius_m must be finite and > 0")
	}
	if !numeric.IsFinite(g.HubRadiusM) || g.HubRadiusM < 0 || g.HubRadiusM >= g.RadiusM {
		return errs.New(errs.InvalidGeometry, "hub_radius_m must satisfy 0 <= hub < radius")
	}
	if len(g.Stations) < 3 {
		return errs.Newf(errs.InvalidGeometry, "station count %d < 3", len(g.Stations))
	}
	prev := g.HubRadiusM
	for i, st := range g.Stations {
		if !numeric.IsFinite(st.RM) || st.RM <= prev {
			return errs.Newf(errs.InvalidGeometry, "station %d radius not strictly increasing above hub", i)
		}
		if st.RM >= g.RadiusM && i != len(g.Stations)-1 {
			return errs.Newf(errs.InvalidGeometry, "station %d radius beyond tip", i)
		}
		if st.RM > g.RadiusM {
			return errs.Newf(errs.InvalidGeometry, "station %d radius beyond tip", i)
		}
		if !numeric.IsFinite(st.ChordM) || st.ChordM <= 0 {
			return errs.Newf(errs.InvalidGeometry, "station %d chord must be > 0", i)
		}
		if !numeric.IsFinite(st.TwistRad) {
			return errs.Newf(errs.InvalidGeometry, "station %d twist non-finite", i)
		}
		prev = st.RM
	}
	return nil
}

// DiskAreaM2 returns pi*R^2 for the rotor.
func (g *RotorGeometry) DiskAreaM2() float64 {
	return math.Pi * g.RadiusM * g.RadiusM
}

// Scaled returns a copy with all radii scaled by radiusScale and chords by
// chordScale. Non-positive scales fall back to 1.
func (g *RotorGeometry) Scaled(radiusScale, chordScale float64) RotorGeometry {
	radiusScale = numeric.PositiveOr(radiusScale, 1.0)
	chordScale = numeric.PositiveOr(chordScale, 1.0)

	out := *g
	out.RadiusM *= radiusScale
	out.HubRadiusM *= radiusScale
	out.Stations = make([]BladeStation, len(g.Stations))
	for i, st := range g.Stations {
		st.RM *= radiusScale
		st.ChordM *= chordScale
		out.Stations[i] = st
	}
	return out
}

// Environment is the ambient air state, immutable per case.
type Environment struct {
	Rho          float64 `yaml:"rho"`
	Mu           float64 `yaml:"mu"`
	SpeedOfSound float64 `yaml:"speed_of_sound"`
}

// DefaultEnvironment is sea-level ISA.
func DefaultEnvironment() Environment {
	return Environment{Rho: 1.225, Mu: 1.81e-5, SpeedOfSound: 340.3}
}

// Validate rejects non-physical environments with InvalidEnvironment.
func (e *Environment) Validate() error {
	if !numeric.IsFinite(e.Rho) || e.Rho <= 0 {
		return errs.New(errs.InvalidEnvironment, "rho must be finite and > 0")
	}
	if !numeric.IsFinite(e.Mu) || e.Mu <= 0 {
		return errs.New(errs.InvalidEnvironment, "mu must be finite and > 0")
	}
	if !numeric.IsFinite(e.SpeedOfSound) || e.SpeedOfSound <= 0 {
		return errs.New(errs.InvalidEnvironment, "speed_of_sound must be finite and > 0")
	}
	return nil
}

// FlightMode distinguishes the solve entry points.
type FlightMode uint8

const (
	ModeHover FlightMode = iota
	ModeForward
)

// OperatingPoint is one flight condition. TargetThrustN uses the
// NaN-as-unset discipline: a finite value triggers collective trim.
type OperatingPoint struct {
	Mode               FlightMode `yaml:"mode"`
	VInfMps            float64    `yaml:"v_inf_mps"`
	OmegaRadS          float64    `yaml:"omega_rad_s"`
	CollectiveOffsetRad float64   `yaml:"collective_offset_rad"`
	TargetThrustN      float64    `yaml:"target_thrust_n"`
	InflowAngleRad     float64    `yaml:"inflow_angle_rad"`
}

// WantsTrim reports whether a target thrust was supplied.
func (op *OperatingPoint) WantsTrim() bool {
	return numeric.IsSet(op.TargetThrustN)
}

// Validate rejects malformed operating points with InvalidOperatingPoint.
func (op *OperatingPoint) Validate() error {
	if !numeric.IsFinite(op.VInfMps) || op.VInfMps < 0 {
		return errs.New(errs.InvalidOperatingPoint, "v_inf_mps must be finite and >= 0")
	}
	if !numeric.IsFinite(op.OmegaRadS) || op.OmegaRadS <= 0 {
		return errs.New(errs.InvalidOperatingPoint, "omega_rad_s must be finite and > 0")
	}
	if !numeric.IsFinite(op.CollectiveOffsetRad) {
		return errs.New(errs.InvalidOperatingPoint, "collective_offset_rad non-finite")
	}
	if op.WantsTrim() && (!numeric.IsFinite(op.TargetThrustN) || op.TargetThrustN <= 0) {
		return errs.New(errs.InvalidOperatingPoint, "target_thrust_n must be > 0 when set")
	}
	if !numeric.IsFinite(op.InflowAngleRad) {
		return errs.New(errs.InvalidOperatingPoint, "inflow_angle_rad non-finite")
	}
	return nil
}

// SolverConfig bounds the inner loops. Immutable per solve.
type SolverConfig struct {
	MaxIterInflow int     `yaml:"max_iter_inflow"`
	TolInflow     float64 `yaml:"tol_inflow"`
	InflowRelax   float64 `yaml:"inflow_relax"`

	MaxIterTrim      int     `yaml:"max_iter_trim"`
	TolTrimN         float64 `yaml:"tol_trim_n"`
	CollectiveMinRad float64 `yaml:"collective_min_rad"`
	CollectiveMaxRad float64 `yaml:"collective_max_rad"`

	MinPhiRad float64 `yaml:"min_phi_rad"`
	MaxPhiRad float64 `yaml:"max_phi_rad"`
	MinAoARad float64 `yaml:"min_aoa_rad"`
	MaxAoARad float64 `yaml:"max_aoa_rad"`

	MinDrM float64 `yaml:"min_dr_m"`

	// Domain guards; <= 0 disables.
	MachMax     float64 `yaml:"mach_max"`
	ReynoldsMin float64 `yaml:"reynolds_min"`
	ReynoldsMax float64 `yaml:"reynolds_max"`

	MinTipLossF float64 `yaml:"min_tip_loss_f"`
}

// DefaultSolverConfig matches the screening fidelity tier.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterInflow:    200,
		TolInflow:        1e-4,
		InflowRelax:      0.35,
		MaxIterTrim:      80,
		TolTrimN:         0.5,
		CollectiveMinRad: numeric.Deg2Rad(-5),
		CollectiveMaxRad: numeric.Deg2Rad(25),
		MinPhiRad:        0,
		MaxPhiRad:        numeric.Deg2Rad(85),
		MinAoARad:        numeric.Deg2Rad(-25),
		MaxAoARad:        numeric.Deg2Rad(25),
		MinDrM:           1e-4,
		MachMax:          0.85,
		ReynoldsMin:      0,
		ReynoldsMax:      0,
		MinTipLossF:      0.05,
	}
}

// Validate rejects malformed configuration with InvalidConfig.
func (c *SolverConfig) Validate() error {
	if c.MaxIterInflow < 1 {
		return errs.New(errs.InvalidConfig, "max_iter_inflow must be >= 1")
	}
	if !numeric.IsFinite(c.TolInflow) || c.TolInflow <= 0 {
		return errs.New(errs.InvalidConfig, "tol_inflow must be > 0")
	}
	if !numeric.IsFinite(c.InflowRelax) || c.InflowRelax <= 0 || c.InflowRelax > 1 {
		return errs.New(errs.InvalidConfig, "inflow_relax must be in (0,1]")
	}
	if c.MaxIterTrim < 1 {
		return errs.New(errs.InvalidConfig, "max_iter_trim must be >= 1")
	}
	if !numeric.IsFinite(c.TolTrimN) || c.TolTrimN <= 0 {
		return errs.New(errs.InvalidConfig, "tol_trim_n must be > 0")
	}
	if !numeric.IsFinite(c.CollectiveMinRad) || !numeric.IsFinite(c.CollectiveMaxRad) ||
		c.CollectiveMinRad >= c.CollectiveMaxRad {
		return errs.New(errs.InvalidConfig, "collective bracket invalid")
	}
	if !numeric.IsFinite(c.MinPhiRad) || !numeric.IsFinite(c.MaxPhiRad) || c.MinPhiRad > c.MaxPhiRad {
		return errs.New(errs.InvalidConfig, "phi clamp invalid")
	}
	if !numeric.IsFinite(c.MinAoARad) || !numeric.IsFinite(c.MaxAoARad) || c.MinAoARad > c.MaxAoARad {
		return errs.New(errs.InvalidConfig, "aoa clamp invalid")
	}
	if !numeric.IsFinite(c.MinDrM) || c.MinDrM < 0 {
		return errs.New(errs.InvalidConfig, "min_dr_m must be >= 0")
	}
	if !numeric.IsFinite(c.MachMax) || c.MachMax < 0 {
		return errs.New(errs.InvalidConfig, "mach_max must be >= 0")
	}
	if !numeric.IsFinite(c.ReynoldsMin) || c.ReynoldsMin < 0 {
		return errs.New(errs.InvalidConfig, "reynolds_min must be >= 0")
	}
	if !numeric.IsFinite(c.ReynoldsMax) || c.ReynoldsMax < 0 {
		return errs.New(errs.InvalidConfig, "reynolds_max must be >= 0")
	}
	if !numeric.IsFinite(c.MinTipLossF) || c.MinTipLossF <= 0 || c.MinTipLossF > 1 {
		return errs.New(errs.InvalidConfig, "min_tip_loss_f must be in (0,1]")
	}
	return nil
}

// ForwardConfig bounds the forward-flight induced-velocity fixed point.
type ForwardConfig struct {
	NPsi      int     `yaml:"n_psi"`
	VAxialMps float64 `yaml:"v_axial_mps"`
	MaxIterVi int     `yaml:"max_iter_vi"`
	TolVi     float64 `yaml:"tol_vi"`
	RelaxVi   float64 `yaml:"relax_vi"`
}

// DefaultForwardConfig returns the screening-fidelity sweep settings.
func DefaultForwardConfig() ForwardConfig {
	return ForwardConfig{
		NPsi:      24,
		VAxialMps: 0,
		MaxIterVi: 200,
		TolVi:     1e-4,
		RelaxVi:   0.35,
	}
}

// Validate rejects malformed forward configuration with InvalidConfig.
func (c *ForwardConfig) Validate() error {
	if c.NPsi < 4 {
		return errs.New(errs.InvalidConfig, "n_psi must be >= 4")
	}
	if !numeric.IsFinite(c.VAxialMps) || c.VAxialMps < 0 {
		return errs.New(errs.InvalidConfig, "v_axial_mps must be >= 0")
	}
	if c.MaxIterVi < 1 {
		return errs.New(errs.InvalidConfig, "max_iter_vi must be >= 1")
	}
	if !numeric.IsFinite(c.TolVi) || c.TolVi <= 0 {
		return errs.New(errs.InvalidConfig, "tol_vi must be > 0")
	}
	if !numeric.IsFinite(c.RelaxVi) || c.RelaxVi <= 0 || c.RelaxVi > 1 {
		return errs.New(errs.InvalidConfig, "relax_vi must be in (0,1]")
	}
	return nil
}

// StationResult is the per-station breakdown of one converged iterate.
type StationResult struct {
	RM       float64
	DrM      float64
	VAxialMps float64
	VTanMps  float64
	VRelMps  float64
	PhiRad   float64
	AoARad   float64
	Reynolds float64
	Mach     float64
	Cl       float64
	Cd       float64
	TipLossF float64
	DTn      float64
	DQNm     float64
}

// Result is a hover/trim solve outcome. Never mutated after return.
type Result struct {
	Code    errs.Kind
	Message string

	ThrustN  float64
	TorqueNm float64
	PowerW   float64

	InducedVelocityMps float64
	FigureOfMerit      float64
	CollectiveRad      float64

	// Non-dimensional coefficients, referenced to tip speed.
	Ct float64
	Cq float64
	Cp float64

	// Forward propulsive efficiency proxy; zero in pure hover.
	PropEff float64

	Residual    float64
	InflowIters int
	TrimIters   int

	Stations []StationResult
}

// NewResult returns a result with every numeric field unset (NaN).
func NewResult() Result {
	n := numeric.Unset()
	return Result{
		Code:               errs.Ok,
		ThrustN:            n,
		TorqueNm:           n,
		PowerW:             n,
		InducedVelocityMps: n,
		FigureOfMerit:      n,
		CollectiveRad:      n,
		Ct:                 n,
		Cq:                 n,
		Cp:                 n,
		PropEff:            n,
		Residual:           n,
	}
}

// ForwardResult is a forward-flight solve outcome.
type ForwardResult struct {
	Code    errs.Kind
	Message string

	VInplaneMps        float64
	ThrustN            float64
	TorqueNm           float64
	PowerW             float64
	InducedVelocityMps float64

	Residual float64
	ViIters  int
}

// NewForwardResult returns a result with every numeric field unset (NaN).
func NewForwardResult() ForwardResult {
	n := numeric.Unset()
	return ForwardResult{
		Code:               errs.Ok,
		VInplaneMps:        n,
		ThrustN:            n,
		TorqueNm:           n,
		PowerW:             n,
		InducedVelocityMps: n,
		Residual:           n,
	}
}

// Inputs bundles everything one hover/trim solve needs.
type Inputs struct {
	Geom RotorGeometry
	Env  Environment
	Op   OperatingPoint
	Cfg  SolverConfig
}

// Validate runs every sub-validation in boundary order.
func (in *Inputs) Validate() error {
	if err := in.Geom.Validate(); err != nil {
		return err
	}
	if err := in.Env.Validate(); err != nil {
		return err
	}
	if err := in.Op.Validate(); err != nil {
		return err
	}
	return in.Cfg.Validate()
}

// SectionSampler answers polar queries per blade radius. A single Polar is
// adapted via UniformSampler; radius-piecewise stacks implement it
// directly.
type SectionSampler interface {
	SampleAt(rM float64, q polar.Query) (polar.Output, error)
}

// UniformSampler applies the same polar at every radius.
type UniformSampler struct {
	P polar.Polar
}

// SampleAt implements SectionSampler.
func (u UniformSampler) SampleAt(_ float64, q polar.Query) (polar.Output, error) {
	return u.P.Sample(q)
}
