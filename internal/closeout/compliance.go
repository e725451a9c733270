package closeout

import (
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Clause is one compliance rule with the evidence keys it requires.
type Clause struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Source    string   `yaml:"source"`
	Mandatory bool     `yaml:"mandatory"`
	RequiredEvidenceKeys []string `yaml:"required_evidence_keys"`
}

// Validate rejects malformed clauses.
func (c *Clause) Validate() error {
	if c.ID == "" {
		return errs.New(errs.InvalidConfig, "clause id empty")
	}
	for _, k := range c.RequiredEvidenceKeys {
		if k == "" {
			return errs.Newf(errs.InvalidConfig, "clause %s has empty evidence key", c.ID)
		}
	}
	return nil
}

// Evidence is one measured value backing a clause.
type Evidence struct {
	Key    string  `yaml:"key"`
	Value  float64 `yaml:"value"`
	Unit   string  `yaml:"unit"`
	Source string  `yaml:"source"`
}

// Validate rejects malformed evidence.
func (e *Evidence) Validate() error {
	if e.Key == "" {
		return errs.New(errs.InvalidInput, "evidence key empty")
	}
	if !numeric.IsFinite(e.Value) {
		return errs.Newf(errs.InvalidInput, "evidence %s value non-finite", e.Key)
	}
	return nil
}

// ComplianceCheck is the per-clause verdict.
type ComplianceCheck struct {
	ClauseID  string
	Mandatory bool
	Pass      bool
	Message   string
}

// ComplianceReport holds the ordered clause checks.
type ComplianceReport struct {
	Checks []ComplianceCheck
}

// OK reports whether every mandatory clause passes.
func (r *ComplianceReport) OK() bool {
	for _, c := range r.Checks {
		if c.Mandatory && !c.Pass {
			return false
		}
	}
	return true
}

// FailedCount counts failing mandatory clauses.
func (r *ComplianceReport) FailedCount() int {
	n := 0
	for _, c := range r.Checks {
		if c.Mandatory && !c.Pass {
			n++
		}
	}
	return n
}

// EvaluateCompliance walks the clauses: a clause passes iff every required
// key resolves to finite evidence. Duplicate evidence keys: last wins.
func EvaluateCompliance(clauses []Clause, evidence []Evidence) (ComplianceReport, error) {
	byKey := make(map[string]*Evidence, len(evidence))
	for i := range evidence {
		if err := evidence[i].Validate(); err != nil {
			return ComplianceReport{}, err
		}
		byKey[evidence[i].Key] = &evidence[i]
	}

	var rep ComplianceReport
	for i := range clauses {
		c := &clauses[i]
		if err := c.Validate(); err != nil {
			return ComplianceReport{}, err
		}

		chk := ComplianceCheck{ClauseID: c.ID, Mandatory: c.Mandatory, Pass: true}
		for _, key := range c.RequiredEvidenceKeys {
			ev, ok := byKey[key]
			if !ok || !numeric.IsFinite(ev.Value) {
				chk.Pass = false
				chk.Message = "missing or invalid evidence: " + key
				break
			}
		}
		if !c.Mandatory && !chk.Pass {
			chk.Message = "advisory clause: " + chk.Message
		}
		rep.Checks = append(rep.Checks, chk)
	}
	return rep, nil
}
