package pipeline

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/skylift/rotoreval/internal/artifact"
	"github.com/skylift/rotoreval/internal/closeout"
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// CfdTier names the fidelity tier a CFD job should run at.
type CfdTier uint8

const (
	TierActuatorDisk CfdTier = iota
	TierActuatorLine
	TierResolvedBlades
)

// String renders the tier for artifacts.
func (t CfdTier) String() string {
	switch t {
	case TierActuatorDisk:
		return "CFD0_ActuatorDisk"
	case TierActuatorLine:
		return "CFD0_ActuatorLine"
	case TierResolvedBlades:
		return "CFD1_ResolvedBlades"
	default:
		return "Unknown"
	}
}

// CfdJob is one manifest entry handed to the external CFD launcher.
type CfdJob struct {
	JobID  string
	CaseID string
	Tier   CfdTier

	GeometryRef string
	MeshRef     string

	OmegaRadS   float64
	VAxialMps   float64
	VInplaneMps float64
	Rho         float64
	Mu          float64

	BemtTN float64
	BemtPW float64

	CorrectionThrust float64
	CorrectionPower  float64
}

// CfdManifest is the job set exported to the CFD farm.
type CfdManifest struct {
	ManifestID string
	CreatedUTC string
	Notes      string
	Jobs       []CfdJob
}

// SelectionPolicy filters and orders closeout rows into manifest jobs.
type SelectionPolicy struct {
	RequireGo              bool    `yaml:"require_go"`
	SortByLowestHoverPower bool    `yaml:"sort_by_lowest_hover_power"`
	TopN                   int     `yaml:"top_n"`
	Tier                   CfdTier `yaml:"-"`
}

// DefaultSelectionPolicy exports the ten lowest-power Go cases at the
// actuator-disk tier.
func DefaultSelectionPolicy() SelectionPolicy {
	return SelectionPolicy{RequireGo: true, SortByLowestHoverPower: true, TopN: 10, Tier: TierActuatorDisk}
}

// Validate rejects malformed policies.
func (p *SelectionPolicy) Validate() error {
	if p.TopN < 1 {
		return errs.New(errs.InvalidConfig, "selection policy top_n must be >= 1")
	}
	return nil
}

// NewManifestID returns a fresh manifest identifier.
func NewManifestID() string {
	return "cfdman-" + uuid.NewString()
}

// BuildCfdManifest selects candidate cases and emits deterministic job
// ids `<manifest>_<index>_<case>`. Jobs carry the hover operating point
// and the BEMT reference values the calibration chain will ratio against.
func BuildCfdManifest(manifestID, createdUTC, notes string,
	rows []closeout.Row, reports []closeout.GateReport,
	policy SelectionPolicy, geometryRefPrefix string) (CfdManifest, error) {

	if manifestID == "" {
		return CfdManifest{}, errs.New(errs.InvalidInput, "manifest id empty")
	}
	if err := policy.Validate(); err != nil {
		return CfdManifest{}, err
	}

	repByCase := make(map[string]*closeout.GateReport, len(reports))
	for i := range reports {
		repByCase[reports[i].CaseID] = &reports[i]
	}

	var cands []*closeout.Row
	for i := range rows {
		r := &rows[i]
		if policy.RequireGo {
			rep, ok := repByCase[r.CaseID]
			if !ok || rep.Verdict != closeout.VerdictGo {
				continue
			}
		}
		if r.HoverCode != errs.Ok {
			continue
		}
		if !numeric.IsFinite(r.HoverPW) || r.HoverPW <= 0 {
			continue
		}
		cands = append(cands, r)
	}

	if policy.SortByLowestHoverPower {
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].HoverPW < cands[j].HoverPW })
	} else {
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].HoverTN > cands[j].HoverTN })
	}
	if len(cands) > policy.TopN {
		cands = cands[:policy.TopN]
	}

	m := CfdManifest{ManifestID: manifestID, CreatedUTC: createdUTC, Notes: notes}
	for i, r := range cands {
		m.Jobs = append(m.Jobs, CfdJob{
			JobID:       fmt.Sprintf("%s_%05d_%s", manifestID, i, r.CaseID),
			CaseID:      r.CaseID,
			Tier:        policy.Tier,
			GeometryRef: geometryRefPrefix + r.CaseID + "/rotor.step",
			VInplaneMps: r.VInplaneMps,
			BemtTN:      r.HoverTN,
			BemtPW:      r.HoverPW,

			CorrectionThrust: 1,
			CorrectionPower:  1,
		})
	}
	return m, nil
}

// FillEnvironment stamps the operating environment onto every job; the
// manifest builder does not own omega or the air state.
func (m *CfdManifest) FillEnvironment(omegaRadS, vAxialMps, rho, mu float64) {
	for i := range m.Jobs {
		m.Jobs[i].OmegaRadS = omegaRadS
		m.Jobs[i].VAxialMps = vAxialMps
		m.Jobs[i].Rho = rho
		m.Jobs[i].Mu = mu
	}
}

// JSON emits the manifest through the canonical writer.
func (m *CfdManifest) JSON(pretty bool) (string, error) {
	opt := artifact.WriterOptions{EmitNullForUnset: true}
	if pretty {
		opt.Pretty = "  "
	}
	w := artifact.NewWriter(opt)
	w.BeginObject()
	w.Key("manifest_id").String(m.ManifestID)
	w.Key("created_utc").String(m.CreatedUTC)
	w.Key("notes").String(m.Notes)
	w.Key("jobs").BeginArray()
	for i := range m.Jobs {
		j := &m.Jobs[i]
		w.BeginObject()
		w.Key("job_id").String(j.JobID)
		w.Key("case_id").String(j.CaseID)
		w.Key("tier").String(j.Tier.String())
		w.Key("geometry_ref").String(j.GeometryRef)
		w.Key("mesh_ref").String(j.MeshRef)
		w.Key("omega_rad_s").Float(j.OmegaRadS)
		w.Key("V_axial_mps").Float(j.VAxialMps)
		w.Key("V_inplane_mps").Float(j.VInplaneMps)
		w.Key("rho").Float(j.Rho)
		w.Key("mu").Float(j.Mu)
		w.Key("bemt_T_N").Float(j.BemtTN)
		w.Key("bemt_P_W").Float(j.BemtPW)
		w.Key("correction_thrust").Float(j.CorrectionThrust)
		w.Key("correction_power").Float(j.CorrectionPower)
		w.EndObject()
	}
	w.EndArray()
	w.EndObject()
	return w.Result()
}

// manifestPrecision is the fixed CSV precision of the manifest family.
const manifestPrecision = 8

// CSV emits the manifest table.
func (m *CfdManifest) CSV() string {
	w := artifact.NewRowWriter(
		"manifest_id", "created_utc", "job_id", "case_id", "tier",
		"geometry_ref", "mesh_ref", "omega_rad_s", "V_axial_mps", "V_inplane_mps",
		"rho", "mu", "bemt_T_N", "bemt_P_W", "correction_thrust", "correction_power")
	f := func(v float64) string { return artifact.CSVFloat(v, manifestPrecision) }
	for i := range m.Jobs {
		j := &m.Jobs[i]
		w.Row(m.ManifestID, m.CreatedUTC, j.JobID, j.CaseID, j.Tier.String(),
			j.GeometryRef, j.MeshRef, f(j.OmegaRadS), f(j.VAxialMps), f(j.VInplaneMps),
			f(j.Rho), f(j.Mu), f(j.BemtTN), f(j.BemtPW), f(j.CorrectionThrust), f(j.CorrectionPower))
	}
	return w.String()
}
