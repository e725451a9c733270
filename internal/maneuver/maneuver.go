// Package maneuver aggregates per-rotor control authorities into maximum
// yaw/roll/pitch moments, angular-acceleration proxies, lateral
// acceleration, and the derived turn radius.
package maneuver

import (
	"math"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// RotorAuthority is one rotor's position, thrust and torque bounds, and
// spin direction. When KQPerT > 0 the reaction torque follows Q = kQ * T.
type RotorAuthority struct {
	ID string `yaml:"id"`

	XM float64 `yaml:"x_m"`
	YM float64 `yaml:"y_m"`
	ZM float64 `yaml:"z_m"`

	TMinN float64 `yaml:"t_min_n"`
	TMaxN float64 `yaml:"t_max_n"`

	KQPerT float64 `yaml:"kq_per_t"`
	QMinNm float64 `yaml:"q_min_nm"`
	QMaxNm float64 `yaml:"q_max_nm"`

	SpinDir int `yaml:"spin_dir"` // +1 or -1
}

// Validate rejects malformed authorities.
func (r *RotorAuthority) Validate() error {
	if r.ID == "" {
		return errs.New(errs.InvalidInput, "rotor authority id empty")
	}
	if !numeric.IsFinite(r.XM) || !numeric.IsFinite(r.YM) || !numeric.IsFinite(r.ZM) {
		return errs.Newf(errs.InvalidInput, "rotor %s position invalid", r.ID)
	}
	if !numeric.IsFinite(r.TMinN) || r.TMinN < 0 {
		return errs.Newf(errs.InvalidInput, "rotor %s t_min invalid", r.ID)
	}
	if !numeric.IsFinite(r.TMaxN) || r.TMaxN < r.TMinN {
		return errs.Newf(errs.InvalidInput, "rotor %s t_max invalid", r.ID)
	}
	if !numeric.IsFinite(r.KQPerT) || r.KQPerT < 0 {
		return errs.Newf(errs.InvalidInput, "rotor %s kq invalid", r.ID)
	}
	if !numeric.IsFinite(r.QMinNm) || r.QMinNm < 0 {
		return errs.Newf(errs.InvalidInput, "rotor %s q_min invalid", r.ID)
	}
	if !numeric.IsFinite(r.QMaxNm) || r.QMaxNm < r.QMinNm {
		return errs.Newf(errs.InvalidInput, "rotor %s q_max invalid", r.ID)
	}
	if r.SpinDir != 1 && r.SpinDir != -1 {
		return errs.Newf(errs.InvalidInput, "rotor %s spin_dir must be +1 or -1", r.ID)
	}
	return nil
}

// QMaxAbs returns the rotor's maximum reaction torque magnitude.
func (r *RotorAuthority) QMaxAbs() float64 {
	if r.KQPerT > 0 {
		return r.KQPerT * math.Max(0, r.TMaxN)
	}
	return r.QMaxNm
}

// InertiaDiag is the body-diagonal inertia tensor.
type InertiaDiag struct {
	Ixx float64 `yaml:"ixx"`
	Iyy float64 `yaml:"iyy"`
	Izz float64 `yaml:"izz"`
}

// Validate rejects non-positive inertias.
func (i *InertiaDiag) Validate() error {
	for _, v := range []float64{i.Ixx, i.Iyy, i.Izz} {
		if !numeric.IsFinite(v) || v <= 0 {
			return errs.New(errs.InvalidInput, "inertia components must be > 0")
		}
	}
	return nil
}

// Requirements are the required moments and lateral acceleration; zero
// disables the corresponding margin.
type Requirements struct {
	YawMomentNm   float64 `yaml:"yaw_moment_nm"`
	RollMomentNm  float64 `yaml:"roll_moment_nm"`
	PitchMomentNm float64 `yaml:"pitch_moment_nm"`
	ALatMps2      float64 `yaml:"a_lat_mps2"`
	MassKg        float64 `yaml:"mass_kg"`
}

// Validate rejects malformed requirements.
func (q *Requirements) Validate() error {
	for _, v := range []float64{q.YawMomentNm, q.RollMomentNm, q.PitchMomentNm, q.ALatMps2, q.MassKg} {
		if !numeric.IsFinite(v) || v < 0 {
			return errs.New(errs.InvalidInput, "maneuver requirement must be >= 0")
		}
	}
	return nil
}

// Config sets the allocation fractions used to turn thrust headroom into
// moments and lateral force.
type Config struct {
	ThrustHeadroomFrac float64 `yaml:"thrust_headroom_frac"`
	LateralThrustFrac  float64 `yaml:"lateral_thrust_frac"`
	VTurnMps           float64 `yaml:"v_turn_mps"`
}

// DefaultConfig mirrors the screening allocation.
func DefaultConfig() Config {
	return Config{ThrustHeadroomFrac: 0.15, LateralThrustFrac: 0.25, VTurnMps: 10}
}

// Validate rejects malformed config.
func (c *Config) Validate() error {
	if !numeric.IsFinite(c.ThrustHeadroomFrac) || c.ThrustHeadroomFrac < 0 || c.ThrustHeadroomFrac > 0.5 {
		return errs.New(errs.InvalidConfig, "thrust_headroom_frac must be in [0, 0.5]")
	}
	if !numeric.IsFinite(c.LateralThrustFrac) || c.LateralThrustFrac < 0 || c.LateralThrustFrac > 1 {
		return errs.New(errs.InvalidConfig, "lateral_thrust_frac must be in [0, 1]")
	}
	if !numeric.IsFinite(c.VTurnMps) || c.VTurnMps < 0 {
		return errs.New(errs.InvalidConfig, "v_turn_mps must be >= 0")
	}
	return nil
}

// Metrics is the aggregated maneuverability report.
type Metrics struct {
	YawMomentMaxNm   float64
	RollMomentMaxNm  float64
	PitchMomentMaxNm float64

	YawMargin   float64
	RollMargin  float64
	PitchMargin float64

	YawAlphaMax   float64
	RollAlphaMax  float64
	PitchAlphaMax float64

	ALatMaxMps2 float64
	TurnRadiusM float64
}

func nonneg(v float64) float64 {
	if !numeric.IsFinite(v) || v < 0 {
		return 0
	}
	return v
}

// Compute aggregates the rotor set into maneuverability metrics.
func Compute(rotors []RotorAuthority, inertia InertiaDiag, req Requirements, cfg Config) (Metrics, error) {
	if err := inertia.Validate(); err != nil {
		return Metrics{}, err
	}
	if err := req.Validate(); err != nil {
		return Metrics{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Metrics{}, err
	}

	var m Metrics
	var qSum, tSum float64
	for i := range rotors {
		r := &rotors[i]
		if err := r.Validate(); err != nil {
			return Metrics{}, err
		}
		dT := cfg.ThrustHeadroomFrac * r.TMaxN
		if dT > 0 {
			m.RollMomentMaxNm += math.Abs(dT * r.YM)
			m.PitchMomentMaxNm += math.Abs(dT * r.XM)
		}
		qSum += r.QMaxAbs()
		tSum += r.TMaxN
	}
	m.RollMomentMaxNm = nonneg(m.RollMomentMaxNm)
	m.PitchMomentMaxNm = nonneg(m.PitchMomentMaxNm)
	// Half the torque sum: differential torque allocation splits the set.
	m.YawMomentMaxNm = nonneg(0.5 * qSum)

	if req.YawMomentNm > 0 {
		m.YawMargin = nonneg(m.YawMomentMaxNm / req.YawMomentNm)
	}
	if req.RollMomentNm > 0 {
		m.RollMargin = nonneg(m.RollMomentMaxNm / req.RollMomentNm)
	}
	if req.PitchMomentNm > 0 {
		m.PitchMargin = nonneg(m.PitchMomentMaxNm / req.PitchMomentNm)
	}

	m.RollAlphaMax = nonneg(m.RollMomentMaxNm / inertia.Ixx)
	m.PitchAlphaMax = nonneg(m.PitchMomentMaxNm / inertia.Iyy)
	m.YawAlphaMax = nonneg(m.YawMomentMaxNm / inertia.Izz)

	if req.MassKg > 0 {
		m.ALatMaxMps2 = nonneg(cfg.LateralThrustFrac * nonneg(tSum) / req.MassKg)
		if cfg.VTurnMps > 0 && m.ALatMaxMps2 > 0 {
			m.TurnRadiusM = nonneg(cfg.VTurnMps * cfg.VTurnMps / m.ALatMaxMps2)
		}
	}
	return m, nil
}
