package stats

import (
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Comparator orders a metric against its threshold.
type Comparator uint8

const (
	CmpLE Comparator = iota
	CmpLT
	CmpGE
	CmpGT
)

// String renders the comparator for artifacts.
func (c Comparator) String() string {
	switch c {
	case CmpLE:
		return "<="
	case CmpLT:
		return "<"
	case CmpGE:
		return ">="
	case CmpGT:
		return ">"
	default:
		return "?"
	}
}

// ParseComparator is the inverse of String.
func ParseComparator(s string) (Comparator, error) {
	switch s {
	case "<=":
		return CmpLE, nil
	case "<":
		return CmpLT, nil
	case ">=":
		return CmpGE, nil
	case ">":
		return CmpGT, nil
	default:
		return 0, errs.Newf(errs.ParseError, "unknown comparator %q", s)
	}
}

// ThresholdSpec is one (metric, comparator, threshold) gate.
type ThresholdSpec struct {
	MetricID  string     `yaml:"metric"`
	Cmp       Comparator `yaml:"-"`
	CmpStr    string     `yaml:"cmp"`
	Threshold float64    `yaml:"threshold"`
}

// Validate rejects malformed specs and resolves CmpStr when set.
func (t *ThresholdSpec) Validate() error {
	if t.MetricID == "" {
		return errs.New(errs.InvalidConfig, "threshold spec: metric empty")
	}
	if !numeric.IsFinite(t.Threshold) {
		return errs.New(errs.InvalidConfig, "threshold spec: threshold non-finite")
	}
	if t.CmpStr != "" {
		cmp, err := ParseComparator(t.CmpStr)
		if err != nil {
			return err
		}
		t.Cmp = cmp
	}
	return nil
}

// RiskItem is the per-gate risk summary derived from one ECDF.
type RiskItem struct {
	MetricID        string
	Comparator      string
	Threshold       float64
	Probability     float64
	FailProbability float64
	P50             float64
	P90             float64
	P95             float64
	P99             float64
	Summary         Summary
}

// PassProbability evaluates P(metric cmp threshold) on a finalized ECDF.
func PassProbability(e *ECDF, cmp Comparator, threshold float64) float64 {
	if e == nil || !e.Finalized() || e.Size() == 0 || !numeric.IsFinite(threshold) {
		return 0
	}
	switch cmp {
	case CmpLE:
		return e.CDF(threshold)
	case CmpLT:
		return numeric.Clamp(1-e.CCDF(threshold), 0, 1)
	case CmpGE:
		return e.CCDF(threshold)
	case CmpGT:
		return numeric.Clamp(1-e.CDF(threshold), 0, 1)
	default:
		return 0
	}
}

// BuildRiskItems evaluates every threshold against the named
// distributions. Metrics without data yield probability 0 and fail
// probability 1.
func BuildRiskItems(dists map[string]*ECDF, thresholds []ThresholdSpec) ([]RiskItem, error) {
	out := make([]RiskItem, 0, len(thresholds))
	for i := range thresholds {
		t := &thresholds[i]
		if err := t.Validate(); err != nil {
			return nil, err
		}

		ri := RiskItem{
			MetricID:   t.MetricID,
			Comparator: t.Cmp.String(),
			Threshold:  t.Threshold,
		}

		e, ok := dists[t.MetricID]
		if !ok || e == nil || !e.Finalized() || e.Size() == 0 {
			ri.Probability = 0
			ri.FailProbability = 1
			out = append(out, ri)
			continue
		}

		ri.P50 = e.Quantile(0.50)
		ri.P90 = e.Quantile(0.90)
		ri.P95 = e.Quantile(0.95)
		ri.P99 = e.Quantile(0.99)
		ri.Summary = e.Summarize()
		ri.Probability = PassProbability(e, t.Cmp, t.Threshold)
		ri.FailProbability = numeric.Clamp(1-ri.Probability, 0, 1)
		out = append(out, ri)
	}
	return out, nil
}
