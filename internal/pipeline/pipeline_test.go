package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skylift/rotoreval/internal/artifact"
	"github.com/skylift/rotoreval/internal/bemt"
	"github.com/skylift/rotoreval/internal/bemt/cache"
	"github.com/skylift/rotoreval/internal/closeout"
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/mc"
	"github.com/skylift/rotoreval/internal/numeric"
	"github.com/skylift/rotoreval/internal/polar"
	"github.com/skylift/rotoreval/internal/stats"
)

func testGeom() bemt.RotorGeometry {
	chords := []float64{0.06, 0.06, 0.055, 0.05, 0.045}
	twistsDeg := []float64{12, 10, 8, 6, 4}
	radii := []float64{0.10, 0.20, 0.30, 0.40, 0.48}
	stations := make([]bemt.BladeStation, len(radii))
	for i := range radii {
		stations[i] = bemt.BladeStation{RM: radii[i], ChordM: chords[i], TwistRad: numeric.Deg2Rad(twistsDeg[i])}
	}
	return bemt.RotorGeometry{
		BladeCount: 2, RadiusM: 0.5, HubRadiusM: 0.06,
		TipLoss: bemt.TipLossPrandtl, Stations: stations,
	}
}

func testCase(id string, omega float64) closeout.Case {
	return closeout.Case{
		CaseID: id,
		Hover: bemt.Inputs{
			Geom: testGeom(),
			Env:  bemt.DefaultEnvironment(),
			Op: bemt.OperatingPoint{
				Mode: bemt.ModeHover, OmegaRadS: omega,
				CollectiveOffsetRad: numeric.Deg2Rad(6),
				TargetThrustN:       numeric.Unset(),
			},
			Cfg: bemt.DefaultSolverConfig(),
		},
	}
}

func sampler() bemt.SectionSampler {
	return bemt.UniformSampler{P: polar.DefaultLinear()}
}

func runBaseline(t *testing.T) CloseoutOutputs {
	t.Helper()
	cfg := CloseoutConfig{KTForSizing: 1.2, Thresholds: closeout.DefaultThresholds()}
	cfg.Thresholds.ATotalMinM2 = 0.5
	cfg.Thresholds.PHover1gMaxW = 1e7

	out, err := RunCloseout("bundle-1", sampler(),
		[]closeout.Case{testCase("c1", 350), testCase("c2", 420)}, cfg)
	require.NoError(t, err)
	return out
}

func TestRunCloseoutArtifacts(t *testing.T) {
	out := runBaseline(t)
	require.Len(t, out.Rows, 2)
	require.Len(t, out.Reports, 2)

	for _, rep := range out.Reports {
		require.Equal(t, closeout.VerdictGo, rep.Verdict, "case %s: %+v", rep.CaseID, rep.Checks)
	}

	require.True(t, strings.HasPrefix(out.CloseoutCSV.Content,
		"case_id,A_m2,DL_N_m2,hover_code,hover_T_N,hover_Q_Nm,hover_P_W,hover_vi_mps,"+
			"hover_FM,hover_collective_rad,hover_inflow_iters,hover_trim_iters,"+
			"fwd_code,V_inplane_mps,fwd_T_N,fwd_Q_Nm,fwd_P_W,fwd_vi_mps,"),
		"closeout header must be stable: %s", strings.SplitN(out.CloseoutCSV.Content, "\n", 2)[0])

	lines := strings.Split(strings.TrimSpace(out.CloseoutCSV.Content), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[1], "c1,"))

	// Unset forward fields must be empty cells, never zeros.
	require.Contains(t, lines[1], ",0,,", "fwd_code Ok with empty forward fields")

	require.True(t, strings.HasPrefix(out.GonogoCSV.Content, "case_id,status,reasons_count,reasons_keys,reasons_messages\n"))
	require.Contains(t, out.GonogoCSV.Content, "c1,Go,0,,")
}

// Bundle tags are reproducible across runs and sensitive to any child
// change.
func TestBundleAuditStability(t *testing.T) {
	a := runBaseline(t)
	b := runBaseline(t)

	tagA := a.Bundle.Digest().Tag
	tagB := b.Bundle.Digest().Tag
	require.Equal(t, tagA, tagB, "same inputs must reproduce the bundle tag")
	require.Regexp(t, `^bundle_audit_v1:[0-9a-f]{16}$`, tagA)

	require.Equal(t, a.CloseoutCSV.Audit.Tag, b.CloseoutCSV.Audit.Tag)
	require.Equal(t, a.BundleManifestJSON.Content, b.BundleManifestJSON.Content)

	// A single-bit change in a child artifact changes the bundle tag.
	mutated := artifact.NewBundle("bundle-1")
	flipped := strings.Replace(a.CloseoutCSV.Content, "c1", "c1x", 1)
	tm, err := artifact.NewTagged("closeout.csv", artifact.SchemaCloseoutCSV, flipped)
	require.NoError(t, err)
	mutated.Add(tm)
	mutated.Add(a.GonogoCSV)
	require.NotEqual(t, tagA, mutated.Digest().Tag)
}

func TestCfdPipelineInsufficientData(t *testing.T) {
	base := runBaseline(t)

	// Two result rows against min_ok_cases = 5.
	resultsCSV := "case_id,T_cfd_N,P_cfd_W\n" +
		"c1," + artifact.CSVFloat(base.Rows[0].HoverTN*1.05, 3) + "," + artifact.CSVFloat(base.Rows[0].HoverPW*1.02, 3) + "\n" +
		"c2," + artifact.CSVFloat(base.Rows[1].HoverTN*0.97, 3) + "," + artifact.CSVFloat(base.Rows[1].HoverPW*0.99, 3) + "\n"

	cfg := DefaultCfdPipelineConfig()
	cfg.Gates.MinOKCases = 5

	out, err := RunCfdPipeline(base.Rows, base.Reports, "man-1", "2025-06-01T00:00:00Z",
		DefaultSelectionPolicy(), resultsCSV, cfg)
	require.NoError(t, err)

	require.Equal(t, errs.NonConverged, out.GateResult.Code)
	require.Equal(t, "Insufficient CFD samples after gating", out.GateResult.Message)
	require.False(t, out.CalibrationEnabled)
	require.Empty(t, out.CorrectedRows, "no corrected closeout may be produced")
	require.Empty(t, out.CorrectedCloseoutCSV.Content)

	// The manifest is still emitted and audited.
	require.NotEmpty(t, out.ManifestJSON.Content)
	require.True(t, strings.HasPrefix(out.ManifestJSON.Audit.Tag, artifact.SchemaCfdManifestJSON+":"))
}

func TestCfdPipelineAppliesCorrections(t *testing.T) {
	base := runBaseline(t)

	resultsCSV := "case_id,T_cfd_N,P_cfd_W\n" +
		"c1," + artifact.CSVFloat(base.Rows[0].HoverTN*1.10, 3) + "," + artifact.CSVFloat(base.Rows[0].HoverPW*1.05, 3) + "\n" +
		"c2," + artifact.CSVFloat(base.Rows[1].HoverTN*0.95, 3) + "," + artifact.CSVFloat(base.Rows[1].HoverPW*0.98, 3) + "\n"

	cfg := DefaultCfdPipelineConfig()
	cfg.Gates.MinOKCases = 2
	cfg.Thresholds.ATotalMinM2 = 0.5

	out, err := RunCfdPipeline(base.Rows, base.Reports, "man-2", "2025-06-01T00:00:00Z",
		DefaultSelectionPolicy(), resultsCSV, cfg)
	require.NoError(t, err)
	require.True(t, out.CalibrationEnabled)
	require.Len(t, out.CorrectedRows, 2)

	c1 := out.CorrectedRows[0]
	require.InDelta(t, 1.10, c1.CfdCorrT, 1e-3)
	require.InDelta(t, c1.HoverTN*c1.CfdCorrT, c1.CorrHoverTN, 1e-9)

	require.NotEmpty(t, out.CorrectedCloseoutCSV.Content)
	require.Len(t, out.CorrectedGonogo, 2)
	require.Contains(t, out.CorrectedCloseoutCSV.Content, "cfd_corr_T")
}

func TestCfdManifestDeterministicJobIDs(t *testing.T) {
	base := runBaseline(t)
	policy := DefaultSelectionPolicy()

	m, err := BuildCfdManifest("man-x", "2025-06-01T00:00:00Z", "", base.Rows, base.Reports, policy, "exports/")
	require.NoError(t, err)
	require.Len(t, m.Jobs, 2)
	// Sorted by lowest hover power: c1 (350 rad/s) before c2.
	require.Equal(t, "man-x_00000_c1", m.Jobs[0].JobID)
	require.Equal(t, "man-x_00001_c2", m.Jobs[1].JobID)
	require.Equal(t, "exports/c1/rotor.step", m.Jobs[0].GeometryRef)
	require.Equal(t, "CFD0_ActuatorDisk", m.Jobs[0].Tier.String())

	m.FillEnvironment(350, 0, 1.225, 1.81e-5)
	js, err := m.JSON(false)
	require.NoError(t, err)
	v, err := artifact.ParseJSON(js)
	require.NoError(t, err)
	again, err := artifact.EmitValue(v, artifact.WriterOptions{EmitNullForUnset: true})
	require.NoError(t, err)
	require.Equal(t, js, again, "manifest JSON must round trip")

	csv := m.CSV()
	require.True(t, strings.HasPrefix(csv,
		"manifest_id,created_utc,job_id,case_id,tier,geometry_ref,mesh_ref,omega_rad_s,"))
}

func mcRunnerFor(t *testing.T) mc.RunnerFunc {
	t.Helper()
	solver := bemt.NewSolver(polar.DefaultLinear())
	base := testCase("mc", 300).Hover

	return func(index int, draws mc.Draws) mc.SampleOutput {
		in := base
		in.Env.Rho = draws["rho"]
		in.Op.OmegaRadS = draws["omega"]
		in.Geom = base.Geom.Scaled(draws["radius_scale"], draws["chord_scale"])

		res, err := solver.Solve(in)
		if err != nil || res.Code != errs.Ok {
			return mc.SampleOutput{Code: errs.NonConverged}
		}
		return mc.SampleOutput{Code: errs.Ok, Metrics: map[string]float64{
			"thrust_margin": res.ThrustN - 50,
			"power_margin":  5e5 - res.PowerW,
		}}
	}
}

func mcConfig(seed uint64, n int) mc.Config {
	return mc.Config{
		Samples: n,
		Seed:    seed,
		Variables: map[string]mc.Normal{
			"rho":          mc.TruncatedNormal(1.225, 0.03, 1.10, 1.35),
			"omega":        mc.TruncatedNormal(300, 8, 260, 340),
			"radius_scale": mc.TruncatedNormal(1, 0.01, 0.95, 1.05),
			"chord_scale":  mc.TruncatedNormal(1, 0.02, 0.90, 1.10),
		},
	}
}

func TestProbCloseout(t *testing.T) {
	runner := mcRunnerFor(t)

	var cases []ProbCase
	for _, id := range []string{"case-a", "case-b"} {
		res, err := mc.Run(mcConfig(999, 200), runner)
		require.NoError(t, err)
		require.Equal(t, errs.Ok, res.Code)
		cases = append(cases, ProbCase{CaseID: id, Result: res})
	}

	pc := &ProbCloseout{Gates: []ProbGate{
		{Metric: "thrust_margin", Cmp: stats.CmpGE, Threshold: 0, MinProbability: 0.95},
		{Metric: "power_margin", Cmp: stats.CmpGE, Threshold: 0, MinProbability: 0.90},
	}}

	summary, gates, rows, err := pc.Run(cases)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.Equal(t, 2, r.EvalCount)
	}

	require.True(t, strings.HasPrefix(summary.Content,
		"case_id,metric,n,min,max,mean,stddev,p10,p50,p90,p95,p99,thr1,p_ge_thr1,thr2,p_ge_thr2\n"))
	require.Contains(t, summary.Content, "case-a,power_margin,")
	require.Contains(t, summary.Content, "case-a,thrust_margin,")

	require.True(t, strings.HasPrefix(gates.Content,
		"case_id,pass_all,code,message,fail_keys,fail_messages,eval_count\n"))
	for _, line := range strings.Split(strings.TrimSpace(gates.Content), "\n")[1:] {
		fields := strings.Split(line, ",")
		require.Contains(t, []string{"0", "1"}, fields[1], "pass_all must be 0 or 1")
	}

	// Determinism: the same seed reproduces identical artifact bytes.
	res2, err := mc.Run(mcConfig(999, 200), runner)
	require.NoError(t, err)
	summary2, _, _, err := pc.Run([]ProbCase{{CaseID: "case-a", Result: res2}, {CaseID: "case-b", Result: res2}})
	require.NoError(t, err)
	require.Equal(t, summary.Content, summary2.Content)
}

type recordingObserver struct {
	started, finished int
	solves            map[string]int
	verdicts          map[string]int
	calibAccepted     int
	calibRejected     int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{solves: map[string]int{}, verdicts: map[string]int{}}
}

func (o *recordingObserver) RunStarted()  { o.started++ }
func (o *recordingObserver) RunFinished() { o.finished++ }
func (o *recordingObserver) SolveObserved(mode, result string, seconds float64) {
	o.solves[mode+"/"+result]++
}
func (o *recordingObserver) GateVerdict(verdict string) { o.verdicts[verdict]++ }
func (o *recordingObserver) CalibrationGate(accepted, rejected int) {
	o.calibAccepted += accepted
	o.calibRejected += rejected
}

func TestRunCloseoutObserverAndCache(t *testing.T) {
	obs := newRecordingObserver()
	cached := cache.NewCachedSolver(
		bemt.NewSolver(polar.DefaultLinear()),
		bemt.NewForwardSolver(polar.DefaultLinear()),
		cache.NewEvalCache(64), cache.NewKeyBuilder("linear-default"))

	cfg := CloseoutConfig{
		KTForSizing: 1.2,
		Thresholds:  closeout.DefaultThresholds(),
		Cache:       cached,
		Observer:    obs,
	}
	cfg.Thresholds.ATotalMinM2 = 0.5

	cases := []closeout.Case{testCase("c1", 350), testCase("c2", 420)}
	if _, err := RunCloseout("bundle-obs", bemt.UniformSampler{P: polar.DefaultLinear()}, cases, cfg); err != nil {
		t.Fatal(err)
	}

	require.Equal(t, 1, obs.started)
	require.Equal(t, 1, obs.finished)
	require.Equal(t, 2, obs.solves["hover/Ok"], "both hover solves must be observed")
	require.Equal(t, 2, obs.verdicts["Go"])

	// Re-running the same cases hits the cache.
	if _, err := RunCloseout("bundle-obs", bemt.UniformSampler{P: polar.DefaultLinear()}, cases, cfg); err != nil {
		t.Fatal(err)
	}
	st := cached.Stats()
	require.Equal(t, int64(2), st.Hits, "second run must be served from the cache")
}

func TestCfdPipelineObserver(t *testing.T) {
	base := runBaseline(t)
	obs := newRecordingObserver()

	resultsCSV := "case_id,T_cfd_N,P_cfd_W\n" +
		"c1," + artifact.CSVFloat(base.Rows[0].HoverTN*1.05, 3) + "," + artifact.CSVFloat(base.Rows[0].HoverPW*1.02, 3) + "\n" +
		"c2," + artifact.CSVFloat(base.Rows[1].HoverTN*0.97, 3) + "," + artifact.CSVFloat(base.Rows[1].HoverPW*0.99, 3) + "\n"

	cfg := DefaultCfdPipelineConfig()
	cfg.Gates.MinOKCases = 2
	cfg.Observer = obs

	_, err := RunCfdPipeline(base.Rows, base.Reports, "man-obs", "2025-06-01T00:00:00Z",
		DefaultSelectionPolicy(), resultsCSV, cfg)
	require.NoError(t, err)
	require.Equal(t, 2, obs.calibAccepted)
	require.Equal(t, 0, obs.calibRejected)
}

func TestGateReportJSONSafe(t *testing.T) {
	out := runBaseline(t)
	js, err := GateReportJSON(&out.Reports[0], false)
	require.NoError(t, err)
	for _, bad := range []string{"NaN", "Infinity", "nan"} {
		require.NotContains(t, js, bad)
	}
	v, err := artifact.ParseJSON(js)
	require.NoError(t, err)
	require.Equal(t, "Go", v.StringOr("verdict", ""))
}
