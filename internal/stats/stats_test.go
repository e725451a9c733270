package stats

import (
	"math"
	"testing"
)

func TestRunningMoments(t *testing.T) {
	r := NewRunning()
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		r.Push(x)
	}
	if r.N != 8 {
		t.Fatalf("n = %d", r.N)
	}
	if math.Abs(r.Mean-5) > 1e-12 {
		t.Errorf("mean = %v", r.Mean)
	}
	// Sample variance of the classic set is 32/7.
	if math.Abs(r.Variance()-32.0/7.0) > 1e-12 {
		t.Errorf("variance = %v", r.Variance())
	}
	if r.MinOrZero() != 2 || r.MaxOrZero() != 9 {
		t.Errorf("min/max = %v/%v", r.MinOrZero(), r.MaxOrZero())
	}
}

func TestRunningIgnoresNaN(t *testing.T) {
	r := NewRunning()
	r.Push(1)
	r.Push(math.NaN())
	r.Push(math.Inf(1))
	r.Push(3)
	if r.N != 2 {
		t.Errorf("n = %d, non-finite samples must be ignored", r.N)
	}
	if r.Mean != 2 {
		t.Errorf("mean = %v", r.Mean)
	}
}

func TestReservoirBoundedAndDeterministic(t *testing.T) {
	a := NewReservoir(64, 42)
	b := NewReservoir(64, 42)
	for i := 0; i < 10000; i++ {
		x := float64(i % 97)
		a.Push(x)
		b.Push(x)
	}
	if a.Size() != 64 {
		t.Errorf("size = %d, want cap 64", a.Size())
	}
	if a.Seen() != 10000 {
		t.Errorf("seen = %d", a.Seen())
	}
	for _, q := range []float64{0.1, 0.5, 0.9} {
		if a.Quantile(q) != b.Quantile(q) {
			t.Errorf("same seed must give identical reservoirs at q=%v", q)
		}
	}
}

func TestECDFFinalizeOnce(t *testing.T) {
	e := NewECDF()
	if err := e.Append(3, 1, 2, math.NaN()); err != nil {
		t.Fatal(err)
	}
	if e.Size() != 3 {
		t.Errorf("NaN must be dropped, size = %d", e.Size())
	}
	e.Finalize()
	if err := e.Append(4); err == nil {
		t.Error("append after finalize must fail")
	}
	if !e.Finalized() {
		t.Error("finalized flag lost")
	}
}

func TestECDFQueries(t *testing.T) {
	e := NewECDF()
	_ = e.Append(1, 2, 3, 4, 5)
	e.Finalize()

	if got := e.CDF(3); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("cdf(3) = %v, want 0.6", got)
	}
	if got := e.CCDF(3); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("ccdf(3) = %v, want 0.6 (three samples >= 3)", got)
	}
	if got := e.Quantile(0.5); got != 3 {
		t.Errorf("median = %v", got)
	}
	if got := e.Quantile(0.25); got != 2 {
		t.Errorf("q25 = %v (type-7 on 5 points)", got)
	}
	if got := e.Quantile(0); got != 1 {
		t.Errorf("q0 = %v", got)
	}
	if got := e.Quantile(1); got != 5 {
		t.Errorf("q1 = %v", got)
	}

	s := e.Summarize()
	if s.N != 5 || s.Min != 1 || s.Max != 5 || s.Mean != 3 {
		t.Errorf("summary = %+v", s)
	}
}

func TestPassProbability(t *testing.T) {
	e := NewECDF()
	_ = e.Append(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	e.Finalize()

	if got := PassProbability(e, CmpLE, 5); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("P(X<=5) = %v", got)
	}
	if got := PassProbability(e, CmpGE, 6); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("P(X>=6) = %v", got)
	}
	if PassProbability(NewECDF(), CmpLE, 1) != 0 {
		t.Error("unfinalized ecdf must give 0")
	}
}

func TestBuildRiskItems(t *testing.T) {
	e := NewECDF()
	_ = e.Append(10, 20, 30, 40, 50)
	e.Finalize()

	items, err := BuildRiskItems(map[string]*ECDF{"thrust": e}, []ThresholdSpec{
		{MetricID: "thrust", Cmp: CmpGE, Threshold: 25},
		{MetricID: "missing", Cmp: CmpLE, Threshold: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d", len(items))
	}
	if math.Abs(items[0].Probability-0.6) > 1e-12 {
		t.Errorf("thrust pass p = %v", items[0].Probability)
	}
	if items[0].P50 != 30 {
		t.Errorf("p50 = %v", items[0].P50)
	}
	if items[1].Probability != 0 || items[1].FailProbability != 1 {
		t.Errorf("missing metric should fail: %+v", items[1])
	}
}

func TestParseComparator(t *testing.T) {
	for _, c := range []Comparator{CmpLE, CmpLT, CmpGE, CmpGT} {
		back, err := ParseComparator(c.String())
		if err != nil || back != c {
			t.Errorf("round trip %v failed: %v %v", c, back, err)
		}
	}
	if _, err := ParseComparator("=="); err == nil {
		t.Error("unknown comparator must fail")
	}
}
