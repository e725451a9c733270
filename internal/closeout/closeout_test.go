package closeout

import (
	"math"
	"testing"

	"github.com/skylift/rotoreval/internal/numeric"
)

func TestVerdictPrecedence(t *testing.T) {
	cases := []struct {
		in   []Verdict
		want Verdict
	}{
		{nil, VerdictGo},
		{[]Verdict{VerdictGo, VerdictGo}, VerdictGo},
		{[]Verdict{VerdictGo, VerdictWarn}, VerdictWarn},
		{[]Verdict{VerdictWarn, VerdictNeedsData}, VerdictNeedsData},
		{[]Verdict{VerdictNeedsData, VerdictNoGo, VerdictGo}, VerdictNoGo},
		{[]Verdict{VerdictNoGo, VerdictWarn}, VerdictNoGo},
	}
	for _, c := range cases {
		if got := AggregateVerdicts(c.in); got != c.want {
			t.Errorf("AggregateVerdicts(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestGateEnablement(t *testing.T) {
	var checks []GateCheck
	gateLeq(&checks, "G.DISABLED", 100, 0, "x")
	gateLeq(&checks, "G.NEG", 100, -1, "x")
	gateLeq(&checks, "G.INF", 100, math.Inf(1), "x")
	for _, c := range checks {
		if c.Status != CheckUnknown {
			t.Errorf("%s: status %v, disabled gates emit Unknown", c.ID, c.Status)
		}
	}
}

func TestGateNeedsDataOnUnset(t *testing.T) {
	var checks []GateCheck
	gateLeq(&checks, "G.NAN", numeric.Unset(), 10, "x")
	gateGeq(&checks, "G.INFVAL", math.Inf(1), 10, "x")
	for _, c := range checks {
		if c.Status != CheckNeedsData {
			t.Errorf("%s: status %v, unset input must give NeedsData", c.ID, c.Status)
		}
	}
}

func TestGateLeqGeq(t *testing.T) {
	var checks []GateCheck
	gateLeq(&checks, "G.PASS", 5, 10, "too big")
	gateLeq(&checks, "G.FAIL", 15, 10, "too big")
	gateGeq(&checks, "G.PASS2", 10, 5, "too small")
	gateGeq(&checks, "G.FAIL2", 1, 5, "too small")

	wants := []CheckStatus{CheckPass, CheckFail, CheckPass, CheckFail}
	for i, c := range checks {
		if c.Status != wants[i] {
			t.Errorf("%s: status %v, want %v", c.ID, c.Status, wants[i])
		}
	}
	if checks[1].Note != "too big" {
		t.Errorf("fail note lost: %q", checks[1].Note)
	}
}

// The S5-style gated closeout: enabled gates pass, compliance satisfied.
func TestEvaluateGatesGo(t *testing.T) {
	comp, err := EvaluateCompliance(
		[]Clause{{ID: "MASS", Mandatory: true, RequiredEvidenceKeys: []string{"d_mass_kg", "mass_empty_kg"}}},
		[]Evidence{
			{Key: "d_mass_kg", Value: 0.5, Unit: "kg"},
			{Key: "mass_empty_kg", Value: 21.0, Unit: "kg"},
		})
	if err != nil {
		t.Fatal(err)
	}

	in := GateInputs{
		ATotalM2:   math.Pi * 0.25,
		PHoverW:    45000,
		HoverFM:    0.65,
		DMassKg:    numeric.Unset(),
		MassEmptyKg: numeric.Unset(),
		DLNm2:      numeric.Unset(),
		Compliance: &comp,
	}
	thr := DefaultThresholds()
	thr.ATotalMinM2 = 0.7
	thr.PHover1gMaxW = 60000
	thr.FMMin = 0.60
	thr.RequireComplianceOK = true

	rep, err := EvaluateGates("case-1", in, thr)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Verdict != VerdictGo {
		t.Fatalf("verdict = %v, checks: %+v", rep.Verdict, rep.Checks)
	}
	for _, c := range rep.Checks {
		if c.Status != CheckPass && c.Status != CheckUnknown {
			t.Errorf("check %s: status %v, every check must be Pass or Unknown", c.ID, c.Status)
		}
	}
}

func TestEvaluateGatesNoGoDominates(t *testing.T) {
	in := GateInputs{
		ATotalM2: 0.3, // below min
		PHoverW:  numeric.Unset(),
		HoverFM:  numeric.Unset(),
		DMassKg:  numeric.Unset(),
		MassEmptyKg: numeric.Unset(),
		DLNm2:    numeric.Unset(),
	}
	thr := DefaultThresholds()
	thr.ATotalMinM2 = 0.7
	thr.PHover1gMaxW = 60000 // input unset -> NeedsData

	rep, err := EvaluateGates("case-2", in, thr)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Verdict != VerdictNoGo {
		t.Fatalf("verdict = %v, want NoGo over NeedsData", rep.Verdict)
	}
	if len(rep.FailedChecks()) != 1 {
		t.Errorf("failed checks = %d", len(rep.FailedChecks()))
	}
	if len(rep.NeedsDataChecks()) == 0 {
		t.Error("hover power check should be NeedsData")
	}
}

func TestEvaluateGatesNeedsDataFromUnset(t *testing.T) {
	in := GateInputs{
		ATotalM2: numeric.Unset(),
		PHoverW:  numeric.Unset(),
		HoverFM:  numeric.Unset(),
		DMassKg:  numeric.Unset(),
		MassEmptyKg: numeric.Unset(),
		DLNm2:    numeric.Unset(),
	}
	thr := DefaultThresholds()
	thr.ATotalMinM2 = 0.7

	rep, err := EvaluateGates("case-3", in, thr)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Verdict != VerdictNeedsData {
		t.Fatalf("verdict = %v, NaN input with enabled gate must give NeedsData, not NoGo", rep.Verdict)
	}
}

func TestComplianceRequiredButAbsent(t *testing.T) {
	thr := DefaultThresholds()
	thr.RequireComplianceOK = true
	rep, err := EvaluateGates("c", GateInputs{
		DMassKg: numeric.Unset(), MassEmptyKg: numeric.Unset(),
		ATotalM2: numeric.Unset(), DLNm2: numeric.Unset(),
		PHoverW: numeric.Unset(), HoverFM: numeric.Unset(),
	}, thr)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Verdict != VerdictNeedsData {
		t.Errorf("verdict = %v, missing required compliance is NeedsData", rep.Verdict)
	}
}

func TestComplianceFailingClauseIsNoGo(t *testing.T) {
	comp, err := EvaluateCompliance(
		[]Clause{{ID: "MASS", Mandatory: true, RequiredEvidenceKeys: []string{"missing_key"}}},
		nil)
	if err != nil {
		t.Fatal(err)
	}
	if comp.OK() {
		t.Fatal("clause without evidence must fail")
	}

	thr := DefaultThresholds()
	thr.RequireComplianceOK = true
	rep, err := EvaluateGates("c", GateInputs{
		DMassKg: numeric.Unset(), MassEmptyKg: numeric.Unset(),
		ATotalM2: numeric.Unset(), DLNm2: numeric.Unset(),
		PHoverW: numeric.Unset(), HoverFM: numeric.Unset(),
		Compliance: &comp,
	}, thr)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Verdict != VerdictNoGo {
		t.Errorf("verdict = %v, failing mandatory clause is NoGo", rep.Verdict)
	}
}

func TestAdvisoryClauseDoesNotFailReport(t *testing.T) {
	comp, err := EvaluateCompliance(
		[]Clause{{ID: "NOTE", Mandatory: false, RequiredEvidenceKeys: []string{"absent"}}},
		nil)
	if err != nil {
		t.Fatal(err)
	}
	if !comp.OK() {
		t.Error("advisory clause must not fail the report")
	}
}

func TestIssueDeduplication(t *testing.T) {
	r := NewIssueReport()
	if !r.Add(IssueError, "CLOSEOUT_NO_GO", "first", "case-1") {
		t.Fatal("first add must append")
	}
	if r.Add(IssueError, "CLOSEOUT_NO_GO", "second message, same key", "case-1") {
		t.Error("duplicate (kind, code, context) must collapse")
	}
	if !r.Add(IssueError, "CLOSEOUT_NO_GO", "different context", "case-2") {
		t.Error("different context is a new issue")
	}
	if len(r.Issues) != 2 {
		t.Errorf("issues = %d", len(r.Issues))
	}
	if r.Worst() != VerdictNoGo {
		t.Errorf("worst = %v", r.Worst())
	}
}

func TestIssueIdempotentReevaluation(t *testing.T) {
	r := NewIssueReport()
	evaluate := func() {
		r.Add(IssueNeedsData, "DISK_AREA_UNSET", "disk area not computed", "case-9")
		r.Add(IssueError, "POWER_HOVER_EXCEEDS_MAX", "hover power over limit", "case-9")
	}
	evaluate()
	n := len(r.Issues)
	evaluate()
	if len(r.Issues) != n {
		t.Errorf("re-running evaluation appended %d new issues", len(r.Issues)-n)
	}
}

func TestIssueCatalogValidation(t *testing.T) {
	r := NewIssueReport()
	r.Add(IssueWarn, "NOT_A_REAL_CODE", "x", "c")
	ValidateIssues(r, VerdictNoGo)
	found := false
	for _, is := range r.Issues {
		if is.Code == "INVARIANT_VIOLATION" {
			found = true
		}
	}
	if !found {
		t.Error("unknown code must raise INVARIANT_VIOLATION")
	}

	// Severity mismatch.
	r2 := NewIssueReport()
	r2.Add(IssueWarn, "CLOSEOUT_NO_GO", "wrong kind", "c")
	ValidateIssues(r2, VerdictNoGo)
	if r2.CountKind(IssueError) == 0 {
		t.Error("severity mismatch must raise INVARIANT_VIOLATION")
	}

	// Go verdict contradicting a NoGo summary issue.
	r3 := NewIssueReport()
	r3.Add(IssueError, "CLOSEOUT_NO_GO", "summary says no-go", "c")
	ValidateIssues(r3, VerdictGo)
	violated := false
	for _, is := range r3.Issues {
		if is.Code == "INVARIANT_VIOLATION" {
			violated = true
		}
	}
	if !violated {
		t.Error("Go verdict with CLOSEOUT_NO_GO must be an invariant violation")
	}

	// Clean report stays clean and validation is idempotent.
	r4 := NewIssueReport()
	r4.Add(IssueError, "CLOSEOUT_NO_GO", "x", "c")
	ValidateIssues(r4, VerdictNoGo)
	n := len(r4.Issues)
	ValidateIssues(r4, VerdictNoGo)
	if len(r4.Issues) != n {
		t.Error("repeated validation must not append")
	}
}

func TestThresholdValidation(t *testing.T) {
	thr := DefaultThresholds()
	thr.FMMin = 1.5
	if err := thr.Validate(); err == nil {
		t.Error("fm_min > 1 must fail")
	}
	thr = DefaultThresholds()
	thr.ATotalMinM2 = math.NaN()
	if err := thr.Validate(); err == nil {
		t.Error("NaN threshold must fail")
	}
}
