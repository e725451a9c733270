package mc

import (
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/stats"
)

// FailedSamplePolicy decides what a non-OK sample does to the statistics.
type FailedSamplePolicy uint8

const (
	// CountFailed keeps failed samples in the failure tally but appends no
	// metrics.
	CountFailed FailedSamplePolicy = iota
	// DropFailed removes failed samples from the run entirely.
	DropFailed
)

// Draws maps variable name to the drawn value for one sample.
type Draws map[string]float64

// SampleOutput is what the caller's runner produces for one sample.
type SampleOutput struct {
	Code    errs.Kind
	Metrics map[string]float64
}

// RunnerFunc evaluates one sample. It must not mutate shared state.
type RunnerFunc func(index int, draws Draws) SampleOutput

// Config drives one Monte-Carlo run.
type Config struct {
	Samples int                `yaml:"samples"`
	Seed    uint64             `yaml:"seed"`
	Policy  FailedSamplePolicy `yaml:"-"`

	Variables map[string]Normal `yaml:"variables"`

	Gates []stats.ThresholdSpec `yaml:"gates"`
}

// Validate rejects malformed run configuration.
func (c *Config) Validate() error {
	if c.Samples < 1 {
		return errs.New(errs.InvalidConfig, "mc samples must be >= 1")
	}
	if len(c.Variables) == 0 {
		return errs.New(errs.InvalidConfig, "mc has no input variables")
	}
	for name, d := range c.Variables {
		if name == "" {
			return errs.New(errs.InvalidConfig, "mc variable name empty")
		}
		if err := d.Validate(); err != nil {
			return err
		}
	}
	for i := range c.Gates {
		if err := c.Gates[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MetricSummary is the per-metric run outcome.
type MetricSummary struct {
	Metric string
	N      int
	Min    float64
	Max    float64
	Mean   float64
	Stddev float64
	P10    float64
	P50    float64
	P90    float64
	P95    float64
	P99    float64
}

// Result is the full run outcome.
type Result struct {
	Code errs.Kind

	Attempted int
	Accepted  int
	Failed    int

	Dists     map[string]*stats.ECDF
	Summaries []MetricSummary
	Risk      []stats.RiskItem
}

// Run draws Samples inputs under the reproducible seed scheme, feeds them
// through the runner, and aggregates per-metric ECDFs. Variable names are
// drawn in sorted order so the stream is independent of map iteration.
func Run(cfg Config, runner RunnerFunc) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if runner == nil {
		return Result{}, errs.New(errs.InvalidInput, "mc runner is nil")
	}

	names := make([]string, 0, len(cfg.Variables))
	for name := range cfg.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	out := Result{
		Code:  errs.Ok,
		Dists: make(map[string]*stats.ECDF),
	}

	for i := 0; i < cfg.Samples; i++ {
		out.Attempted++

		rng := rand.New(rand.NewSource(int64(SampleSeed(cfg.Seed, i))))
		draws := make(Draws, len(names))
		for _, name := range names {
			d := cfg.Variables[name]
			draws[name] = d.Draw(rng)
		}

		sample := runner(i, draws)
		if sample.Code != errs.Ok {
			out.Failed++
			if cfg.Policy == DropFailed {
				out.Attempted--
				out.Failed--
			}
			continue
		}

		out.Accepted++
		for metric, v := range sample.Metrics {
			e, ok := out.Dists[metric]
			if !ok {
				e = stats.NewECDF()
				out.Dists[metric] = e
			}
			// ECDFs silently drop non-finite values, preserving the
			// NaN-as-unset discipline for failed metrics.
			_ = e.Append(v)
		}
	}

	for _, e := range out.Dists {
		e.Finalize()
	}

	metricNames := make([]string, 0, len(out.Dists))
	for m := range out.Dists {
		metricNames = append(metricNames, m)
	}
	sort.Strings(metricNames)

	for _, m := range metricNames {
		e := out.Dists[m]
		s := e.Summarize()
		out.Summaries = append(out.Summaries, MetricSummary{
			Metric: m,
			N:      s.N,
			Min:    s.Min,
			Max:    s.Max,
			Mean:   s.Mean,
			Stddev: s.Stddev,
			P10:    e.Quantile(0.10),
			P50:    e.Quantile(0.50),
			P90:    e.Quantile(0.90),
			P95:    e.Quantile(0.95),
			P99:    e.Quantile(0.99),
		})
	}

	if len(cfg.Gates) > 0 {
		risk, err := stats.BuildRiskItems(out.Dists, cfg.Gates)
		if err != nil {
			return Result{}, err
		}
		out.Risk = risk
	}

	if out.Accepted == 0 {
		out.Code = errs.NonConverged
		log.Warn().Int("attempted", out.Attempted).Msg("monte carlo run accepted no samples")
	}
	return out, nil
}
