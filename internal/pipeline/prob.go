package pipeline

import (
	"github.com/skylift/rotoreval/internal/artifact"
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/mc"
	"github.com/skylift/rotoreval/internal/numeric"
	"github.com/skylift/rotoreval/internal/stats"
)

// ProbGate is one probabilistic acceptance rule:
// P(metric cmp threshold) must reach MinProbability.
type ProbGate struct {
	Metric         string           `yaml:"metric"`
	Cmp            stats.Comparator `yaml:"-"`
	CmpStr         string           `yaml:"cmp"`
	Threshold      float64          `yaml:"threshold"`
	MinProbability float64          `yaml:"min_probability"`
}

// Validate rejects malformed gates and resolves CmpStr when set.
func (g *ProbGate) Validate() error {
	if g.Metric == "" {
		return errs.New(errs.InvalidConfig, "prob gate metric empty")
	}
	if !numeric.IsFinite(g.Threshold) {
		return errs.New(errs.InvalidConfig, "prob gate threshold non-finite")
	}
	if !numeric.IsFinite(g.MinProbability) || g.MinProbability < 0 || g.MinProbability > 1 {
		return errs.New(errs.InvalidConfig, "prob gate min_probability must be in [0,1]")
	}
	if g.CmpStr != "" {
		cmp, err := stats.ParseComparator(g.CmpStr)
		if err != nil {
			return err
		}
		g.Cmp = cmp
	}
	return nil
}

// ProbCase pairs one case with its Monte-Carlo result.
type ProbCase struct {
	CaseID string
	Result mc.Result
}

// ProbGateRow is the per-case probabilistic verdict.
type ProbGateRow struct {
	CaseID    string
	PassAll   bool
	Code      errs.Kind
	Message   string
	FailKeys  []string
	FailMsgs  []string
	EvalCount int
}

// ProbCloseout evaluates the gates per case and emits the probability
// summary and gate CSV artifacts.
type ProbCloseout struct {
	Gates []ProbGate
}

// EvaluateCase checks every gate against one MC result.
func (p *ProbCloseout) EvaluateCase(c ProbCase) (ProbGateRow, error) {
	row := ProbGateRow{CaseID: c.CaseID, PassAll: true, Code: errs.Ok}

	if c.Result.Code != errs.Ok {
		row.PassAll = false
		row.Code = c.Result.Code
		row.Message = "monte carlo run failed"
		return row, nil
	}

	for i := range p.Gates {
		g := &p.Gates[i]
		if err := g.Validate(); err != nil {
			return ProbGateRow{}, err
		}
		row.EvalCount++

		e := c.Result.Dists[g.Metric]
		prob := stats.PassProbability(e, g.Cmp, g.Threshold)
		if e == nil || e.Size() == 0 {
			row.PassAll = false
			row.FailKeys = append(row.FailKeys, g.Metric)
			row.FailMsgs = append(row.FailMsgs, "no samples for metric")
			continue
		}
		if prob < g.MinProbability {
			row.PassAll = false
			row.FailKeys = append(row.FailKeys, g.Metric)
			row.FailMsgs = append(row.FailMsgs,
				"pass probability "+artifact.CSVFloat(prob, 4)+" below required "+artifact.CSVFloat(g.MinProbability, 4))
		}
	}
	if !row.PassAll && row.Code == errs.Ok {
		row.Code = errs.OutOfRange
		row.Message = "probabilistic gates failed"
	}
	return row, nil
}

// gatesForMetric returns up to two gate thresholds for the summary
// columns (thr1/p_ge_thr1, thr2/p_ge_thr2).
func (p *ProbCloseout) gatesForMetric(metric string) []*ProbGate {
	var out []*ProbGate
	for i := range p.Gates {
		if p.Gates[i].Metric == metric {
			out = append(out, &p.Gates[i])
			if len(out) == 2 {
				break
			}
		}
	}
	return out
}

// SummaryCSV emits prob_summary.csv: one row per (case, metric) with
// moments, quantiles, and up to two threshold exceedance columns.
func (p *ProbCloseout) SummaryCSV(cases []ProbCase) string {
	w := artifact.NewRowWriter(
		"case_id", "metric", "n", "min", "max", "mean", "stddev",
		"p10", "p50", "p90", "p95", "p99",
		"thr1", "p_ge_thr1", "thr2", "p_ge_thr2")

	f := func(v float64) string { return artifact.CSVFloat(v, closeoutPrecision) }

	for _, c := range cases {
		for _, s := range c.Result.Summaries {
			cells := []string{
				c.CaseID, s.Metric, artifact.CSVInt(s.N),
				f(s.Min), f(s.Max), f(s.Mean), f(s.Stddev),
				f(s.P10), f(s.P50), f(s.P90), f(s.P95), f(s.P99),
			}
			gates := p.gatesForMetric(s.Metric)
			for i := 0; i < 2; i++ {
				if i < len(gates) {
					e := c.Result.Dists[s.Metric]
					cells = append(cells, f(gates[i].Threshold), f(e.CCDF(gates[i].Threshold)))
				} else {
					cells = append(cells, "", "")
				}
			}
			w.Row(cells...)
		}
	}
	return w.String()
}

// GatesCSV emits prob_gates.csv with pipe-joined failure lists.
func (p *ProbCloseout) GatesCSV(rows []ProbGateRow) string {
	w := artifact.NewRowWriter("case_id", "pass_all", "code", "message", "fail_keys", "fail_messages", "eval_count")
	for _, r := range rows {
		pass := "0"
		if r.PassAll {
			pass = "1"
		}
		w.Row(r.CaseID, pass, artifact.CSVUint(r.Code.Code()), r.Message,
			joinPipe(r.FailKeys), joinPipe(r.FailMsgs), artifact.CSVInt(r.EvalCount))
	}
	return w.String()
}

func joinPipe(xs []string) string {
	out := ""
	for i, x := range xs {
		if i > 0 {
			out += "|"
		}
		out += x
	}
	return out
}

// Run evaluates every case and returns the two audited artifacts.
func (p *ProbCloseout) Run(cases []ProbCase) (summary, gates artifact.Tagged, rows []ProbGateRow, err error) {
	for _, c := range cases {
		row, err := p.EvaluateCase(c)
		if err != nil {
			return artifact.Tagged{}, artifact.Tagged{}, nil, err
		}
		rows = append(rows, row)
	}
	summary, err = artifact.NewTagged("prob_summary.csv", artifact.SchemaProbSummaryCSV, p.SummaryCSV(cases))
	if err != nil {
		return artifact.Tagged{}, artifact.Tagged{}, nil, err
	}
	gates, err = artifact.NewTagged("prob_gates.csv", artifact.SchemaProbGatesCSV, p.GatesCSV(rows))
	if err != nil {
		return artifact.Tagged{}, artifact.Tagged{}, nil, err
	}
	return summary, gates, rows, nil
}
