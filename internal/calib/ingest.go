// Package calib is the external-calibration chain: ingest CFD result rows
// keyed by case id, gate them, and apply the surviving correction
// multipliers to closeout rows.
package calib

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Entry is one calibration record: the CFD measurement, the BEMT
// reference, and the derived clamped multipliers.
type Entry struct {
	CaseID string
	JobID  string

	TCfdN float64
	PCfdW float64

	TBemtN float64
	PBemtW float64

	CorrectionThrust float64
	CorrectionPower  float64

	Code    errs.Kind
	Message string
}

// Table indexes entries by case id.
type Table struct {
	Entries []Entry
	byCase  map[string]int
}

// RebuildIndex refreshes the case-id lookup; later entries win.
func (t *Table) RebuildIndex() {
	t.byCase = make(map[string]int, len(t.Entries))
	for i := range t.Entries {
		if t.Entries[i].CaseID != "" {
			t.byCase[t.Entries[i].CaseID] = i
		}
	}
}

// Find returns the entry for a case id, or nil.
func (t *Table) Find(caseID string) *Entry {
	if t.byCase == nil {
		t.RebuildIndex()
	}
	i, ok := t.byCase[caseID]
	if !ok {
		return nil
	}
	return &t.Entries[i]
}

// IngestConfig clamps multipliers so a single bad CFD run cannot poison
// downstream consumers.
type IngestConfig struct {
	MinCorr float64 `yaml:"min_corr"`
	MaxCorr float64 `yaml:"max_corr"`

	RequireBemtReference bool `yaml:"require_bemt_reference"`
}

// DefaultIngestConfig clamps into [0.5, 2].
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{MinCorr: 0.5, MaxCorr: 2.0, RequireBemtReference: true}
}

// Validate rejects malformed clamp bounds.
func (c *IngestConfig) Validate() error {
	if !numeric.IsFinite(c.MinCorr) || !numeric.IsFinite(c.MaxCorr) ||
		c.MinCorr <= 0 || c.MaxCorr <= c.MinCorr {
		return errs.New(errs.InvalidConfig, "correction clamp invalid")
	}
	return nil
}

// expected CSV header for calibration input.
const ingestHeader = "case_id,T_cfd_N,P_cfd_W"

// IngestCSV parses the calibration text (header `case_id,T_cfd_N,P_cfd_W`)
// and computes clamped correction multipliers against the BEMT reference
// maps. Rows that cannot produce a valid correction are annotated with
// InvalidInput and kept for reporting.
func IngestCSV(csvText string, bemtTRef, bemtPRef map[string]float64, cfg IngestConfig) (Table, error) {
	if err := cfg.Validate(); err != nil {
		return Table{}, err
	}

	var table Table
	lines := strings.Split(strings.ReplaceAll(csvText, "\r\n", "\n"), "\n")
	sawHeader := false

	for lineNo, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !sawHeader {
			if line != ingestHeader {
				return Table{}, errs.Newf(errs.ParseError,
					"calibration csv: bad header %q at line %d", line, lineNo+1)
			}
			sawHeader = true
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return Table{}, errs.Newf(errs.ParseError,
				"calibration csv: expected 3 fields at line %d, got %d", lineNo+1, len(fields))
		}

		e := Entry{
			CaseID:           strings.TrimSpace(fields[0]),
			CorrectionThrust: 1,
			CorrectionPower:  1,
			Code:             errs.Ok,
		}
		if e.CaseID == "" {
			return Table{}, errs.Newf(errs.ParseError, "calibration csv: empty case_id at line %d", lineNo+1)
		}

		var perr error
		e.TCfdN, perr = strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if perr != nil {
			return Table{}, errs.Newf(errs.ParseError, "calibration csv: bad T_cfd_N at line %d", lineNo+1)
		}
		e.PCfdW, perr = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if perr != nil {
			return Table{}, errs.Newf(errs.ParseError, "calibration csv: bad P_cfd_W at line %d", lineNo+1)
		}
		if !numeric.IsFinite(e.TCfdN) || e.TCfdN < 0 || !numeric.IsFinite(e.PCfdW) || e.PCfdW < 0 {
			e.Code = errs.InvalidInput
			e.Message = "CFD values invalid"
			table.Entries = append(table.Entries, e)
			continue
		}

		tRef, okT := bemtTRef[e.CaseID]
		pRef, okP := bemtPRef[e.CaseID]
		e.TBemtN = numeric.Unset()
		e.PBemtW = numeric.Unset()
		if okT {
			e.TBemtN = tRef
		}
		if okP {
			e.PBemtW = pRef
		}

		if cfg.RequireBemtReference && (!okT || !okP || !(tRef > 0) || !(pRef > 0)) {
			e.Code = errs.InvalidInput
			e.Message = "missing or non-positive BEMT reference"
			table.Entries = append(table.Entries, e)
			continue
		}

		if okT && tRef > 0 {
			e.CorrectionThrust = numeric.Clamp(e.TCfdN/tRef, cfg.MinCorr, cfg.MaxCorr)
		}
		if okP && pRef > 0 {
			e.CorrectionPower = numeric.Clamp(e.PCfdW/pRef, cfg.MinCorr, cfg.MaxCorr)
		}
		table.Entries = append(table.Entries, e)
	}

	if !sawHeader {
		return Table{}, errs.New(errs.ParseError, "calibration csv: empty input")
	}

	table.RebuildIndex()
	log.Debug().Int("entries", len(table.Entries)).Msg("calibration csv ingested")
	return table, nil
}
