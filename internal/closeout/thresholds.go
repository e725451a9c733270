package closeout

import (
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Thresholds is the numerical Go/No-Go policy. A gate is enabled iff its
// threshold is strictly positive and finite; zero disables.
type Thresholds struct {
	// Mass.
	DMassMaxKg     float64 `yaml:"d_mass_max_kg"`
	MassEmptyMaxKg float64 `yaml:"mass_empty_max_kg"`

	// Disk area and hover power.
	ATotalMinM2  float64 `yaml:"a_total_min_m2"`
	PHover1gMaxW float64 `yaml:"p_hover_1g_max_w"`
	DLMaxNm2     float64 `yaml:"dl_max_n_m2"`
	FMMin        float64 `yaml:"fm_min"`

	// Parasite drag.
	CdSMaxM2       float64 `yaml:"cds_max_m2"`
	PParasiteMaxW  float64 `yaml:"p_parasite_max_w"`
	VDragTargetMps float64 `yaml:"v_drag_target_mps"`

	// Maneuverability margins.
	YawMarginMin   float64 `yaml:"yaw_margin_min"`
	RollMarginMin  float64 `yaml:"roll_margin_min"`
	PitchMarginMin float64 `yaml:"pitch_margin_min"`
	YawAlphaMin    float64 `yaml:"yaw_alpha_min"`
	RollAlphaMin   float64 `yaml:"roll_alpha_min"`
	PitchAlphaMin  float64 `yaml:"pitch_alpha_min"`
	TurnRadiusMaxM float64 `yaml:"turn_radius_max_m"`

	// Sync.
	SyncMarginMin float64 `yaml:"sync_margin_min"`
	RequireSyncOK bool    `yaml:"require_sync_ok"`

	// Structures.
	RequireStructOK bool `yaml:"require_struct_ok"`

	// Mission.
	MissionScoreMax float64 `yaml:"mission_score_max"`
	MissionTimeMaxS float64 `yaml:"mission_time_max_s"`

	// Compliance.
	RequireComplianceOK bool `yaml:"require_compliance_ok"`
}

// DefaultThresholds disables every gate; callers enable what they need.
func DefaultThresholds() Thresholds {
	return Thresholds{}
}

// Validate rejects non-finite or negative thresholds with InvalidConfig.
func (t *Thresholds) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"d_mass_max_kg", t.DMassMaxKg},
		{"mass_empty_max_kg", t.MassEmptyMaxKg},
		{"a_total_min_m2", t.ATotalMinM2},
		{"p_hover_1g_max_w", t.PHover1gMaxW},
		{"dl_max_n_m2", t.DLMaxNm2},
		{"fm_min", t.FMMin},
		{"cds_max_m2", t.CdSMaxM2},
		{"p_parasite_max_w", t.PParasiteMaxW},
		{"v_drag_target_mps", t.VDragTargetMps},
		{"yaw_margin_min", t.YawMarginMin},
		{"roll_margin_min", t.RollMarginMin},
		{"pitch_margin_min", t.PitchMarginMin},
		{"yaw_alpha_min", t.YawAlphaMin},
		{"roll_alpha_min", t.RollAlphaMin},
		{"pitch_alpha_min", t.PitchAlphaMin},
		{"turn_radius_max_m", t.TurnRadiusMaxM},
		{"sync_margin_min", t.SyncMarginMin},
		{"mission_score_max", t.MissionScoreMax},
		{"mission_time_max_s", t.MissionTimeMaxS},
	}
	for _, f := range fields {
		if !numeric.IsFinite(f.v) || f.v < 0 {
			return errs.Newf(errs.InvalidConfig, "threshold %s invalid", f.name)
		}
	}
	if t.FMMin > 1 {
		return errs.New(errs.InvalidConfig, "threshold fm_min must be <= 1")
	}
	return nil
}
