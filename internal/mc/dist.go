// Package mc is the Monte-Carlo driver: named truncated-normal input
// distributions, reproducible per-sample seeds derived from the master
// seed, and the run summary feeding the probability closeout.
package mc

import (
	"math/rand"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Normal is a normal distribution with optional truncation. Min/Max use
// the NaN-as-unset discipline: an unset bound leaves that side open. A
// zero Stddev makes the distribution degenerate at Mean, which also
// serves as the uniform-degenerate case the caller may want.
type Normal struct {
	Mean   float64 `yaml:"mean"`
	Stddev float64 `yaml:"stddev"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

// UnmarshalYAML decodes a distribution, leaving omitted truncation bounds
// unset rather than zero.
func (n *Normal) UnmarshalYAML(unmarshal func(any) error) error {
	type plain struct {
		Mean   float64  `yaml:"mean"`
		Stddev float64  `yaml:"stddev"`
		Min    *float64 `yaml:"min"`
		Max    *float64 `yaml:"max"`
	}
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	n.Mean = p.Mean
	n.Stddev = p.Stddev
	n.Min = numeric.Unset()
	n.Max = numeric.Unset()
	if p.Min != nil {
		n.Min = *p.Min
	}
	if p.Max != nil {
		n.Max = *p.Max
	}
	return nil
}

// UnboundedNormal returns N(mean, stddev) without truncation.
func UnboundedNormal(mean, stddev float64) Normal {
	return Normal{Mean: mean, Stddev: stddev, Min: numeric.Unset(), Max: numeric.Unset()}
}

// TruncatedNormal returns N(mean, stddev) truncated to [min, max].
func TruncatedNormal(mean, stddev, min, max float64) Normal {
	return Normal{Mean: mean, Stddev: stddev, Min: min, Max: max}
}

// Validate rejects malformed distributions.
func (n *Normal) Validate() error {
	if !numeric.IsFinite(n.Mean) {
		return errs.New(errs.InvalidConfig, "distribution mean non-finite")
	}
	if !numeric.IsFinite(n.Stddev) || n.Stddev < 0 {
		return errs.New(errs.InvalidConfig, "distribution stddev must be >= 0")
	}
	if numeric.IsSet(n.Min) && numeric.IsSet(n.Max) && n.Min > n.Max {
		return errs.New(errs.InvalidConfig, "distribution truncation inverted")
	}
	return nil
}

// Draw samples the distribution with the given generator. Truncation uses
// rejection sampling with a bounded retry count, then clamps.
func (n *Normal) Draw(rng *rand.Rand) float64 {
	if n.Stddev == 0 {
		return n.clamp(n.Mean)
	}
	for i := 0; i < 1000; i++ {
		x := n.Mean + n.Stddev*rng.NormFloat64()
		if n.inRange(x) {
			return x
		}
	}
	return n.clamp(n.Mean + n.Stddev*rng.NormFloat64())
}

func (n *Normal) inRange(x float64) bool {
	if numeric.IsSet(n.Min) && x < n.Min {
		return false
	}
	if numeric.IsSet(n.Max) && x > n.Max {
		return false
	}
	return true
}

func (n *Normal) clamp(x float64) float64 {
	if numeric.IsSet(n.Min) && x < n.Min {
		return n.Min
	}
	if numeric.IsSet(n.Max) && x > n.Max {
		return n.Max
	}
	return x
}

// SampleSeed derives the per-sample seed from the master seed and sample
// index, so samples can run in any order or in parallel without changing
// the aggregate statistics.
func SampleSeed(masterSeed uint64, index int) uint64 {
	return numeric.HashCombine(masterSeed, uint64(index)+1)
}
