package mc

import (
	"math"
	"math/rand"
	"testing"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/stats"
)

func TestTruncatedNormalStaysInRange(t *testing.T) {
	d := TruncatedNormal(1.225, 0.03, 1.10, 1.35)
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		x := d.Draw(rng)
		if x < 1.10 || x > 1.35 {
			t.Fatalf("draw %v escaped truncation", x)
		}
	}
}

func TestSampleSeedDistinctAndStable(t *testing.T) {
	if SampleSeed(999, 0) == SampleSeed(999, 1) {
		t.Error("adjacent samples must get distinct seeds")
	}
	if SampleSeed(999, 5) != SampleSeed(999, 5) {
		t.Error("seed derivation must be pure")
	}
	if SampleSeed(999, 0) == SampleSeed(1000, 0) {
		t.Error("master seed must matter")
	}
}

func passthroughRunner(index int, draws Draws) SampleOutput {
	return SampleOutput{
		Code: errs.Ok,
		Metrics: map[string]float64{
			"rho":   draws["rho"],
			"omega": draws["omega"],
		},
	}
}

func baseConfig() Config {
	return Config{
		Samples: 500,
		Seed:    999,
		Variables: map[string]Normal{
			"rho":   TruncatedNormal(1.225, 0.03, 1.10, 1.35),
			"omega": TruncatedNormal(300, 8, 260, 340),
		},
	}
}

func TestRunDeterministicUnderSeed(t *testing.T) {
	a, err := Run(baseConfig(), passthroughRunner)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(baseConfig(), passthroughRunner)
	if err != nil {
		t.Fatal(err)
	}

	if a.Accepted != 500 || b.Accepted != 500 {
		t.Fatalf("accepted = %d/%d", a.Accepted, b.Accepted)
	}
	for i := range a.Summaries {
		sa, sb := a.Summaries[i], b.Summaries[i]
		if sa != sb {
			t.Errorf("summaries differ under identical seed: %+v vs %+v", sa, sb)
		}
	}
}

func TestRunQuantilesAndRisk(t *testing.T) {
	cfg := baseConfig()
	cfg.Gates = []stats.ThresholdSpec{
		{MetricID: "rho", Cmp: stats.CmpGE, Threshold: 1.0},
		{MetricID: "omega", Cmp: stats.CmpLE, Threshold: 260},
	}
	res, err := Run(cfg, passthroughRunner)
	if err != nil {
		t.Fatal(err)
	}
	if res.Code != errs.Ok {
		t.Fatalf("code = %v", res.Code)
	}

	var rhoSum *MetricSummary
	for i := range res.Summaries {
		if res.Summaries[i].Metric == "rho" {
			rhoSum = &res.Summaries[i]
		}
	}
	if rhoSum == nil {
		t.Fatal("rho summary missing")
	}
	if !(rhoSum.P10 < rhoSum.P50 && rhoSum.P50 < rhoSum.P90 && rhoSum.P90 <= rhoSum.P99) {
		t.Errorf("quantiles not ordered: %+v", rhoSum)
	}
	if math.Abs(rhoSum.Mean-1.225) > 0.02 {
		t.Errorf("rho mean = %v drifted", rhoSum.Mean)
	}

	if len(res.Risk) != 2 {
		t.Fatalf("risk items = %d", len(res.Risk))
	}
	if res.Risk[0].Probability != 1 {
		t.Errorf("P(rho >= 1.0) = %v, truncation makes this certain", res.Risk[0].Probability)
	}
	if res.Risk[1].Probability > 0.1 {
		t.Errorf("P(omega <= 260) = %v, should be rare", res.Risk[1].Probability)
	}
}

func TestFailedSamplePolicies(t *testing.T) {
	failEven := func(index int, draws Draws) SampleOutput {
		if index%2 == 0 {
			return SampleOutput{Code: errs.NonConverged}
		}
		return SampleOutput{Code: errs.Ok, Metrics: map[string]float64{"x": draws["rho"]}}
	}

	cfg := baseConfig()
	cfg.Samples = 100

	counted, err := Run(cfg, failEven)
	if err != nil {
		t.Fatal(err)
	}
	if counted.Failed != 50 || counted.Accepted != 50 || counted.Attempted != 100 {
		t.Errorf("counted policy: %d/%d/%d", counted.Attempted, counted.Accepted, counted.Failed)
	}

	cfg.Policy = DropFailed
	dropped, err := Run(cfg, failEven)
	if err != nil {
		t.Fatal(err)
	}
	if dropped.Failed != 0 || dropped.Accepted != 50 || dropped.Attempted != 50 {
		t.Errorf("dropped policy: %d/%d/%d", dropped.Attempted, dropped.Accepted, dropped.Failed)
	}
}

func TestRunAllFailedIsNonConverged(t *testing.T) {
	cfg := baseConfig()
	cfg.Samples = 10
	res, err := Run(cfg, func(int, Draws) SampleOutput {
		return SampleOutput{Code: errs.NumericalFailure}
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Code != errs.NonConverged {
		t.Errorf("code = %v, want NonConverged", res.Code)
	}
}

func TestRunValidation(t *testing.T) {
	cfg := baseConfig()
	cfg.Samples = 0
	if _, err := Run(cfg, passthroughRunner); err == nil {
		t.Error("zero samples must fail")
	}
	cfg = baseConfig()
	if _, err := Run(cfg, nil); err == nil {
		t.Error("nil runner must fail")
	}
}
