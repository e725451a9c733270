package artifact

import (
	"github.com/skylift/rotoreval/internal/errs"
	"github.com/skylift/rotoreval/internal/numeric"
)

// Schema version strings for every emitted artifact family. Hashes are
// computed over the emitted bytes, never over in-memory structures.
const (
	SchemaCloseoutCSV          = "closeout_csv_v1"
	SchemaGonogoCSV            = "gonogo_csv_v1"
	SchemaCorrectedCloseoutCSV = "cfd_closeout_corrected_csv_v1"
	SchemaCorrectedGonogoCSV   = "cfd_gonogo_corrected_csv_v1"
	SchemaCfdManifestJSON      = "cfd_manifest_json_v1"
	SchemaCfdManifestCSV       = "cfd_manifest_csv_v1"
	SchemaCfdResultsCSV        = "cfd_results_csv_v1"
	SchemaProbSummaryCSV       = "prob_summary_csv_v1"
	SchemaProbGatesCSV         = "prob_gates_csv_v1"
	SchemaGateReportJSON       = "gate_report_json_v1"
	SchemaBundleManifestJSON   = "bundle_manifest_json_v1"
	SchemaBundleManifestCSV    = "bundle_manifest_csv_v1"
	SchemaBundleAudit          = "bundle_audit_v1"
)

// Audit identifies an artifact's exact content: the schema version and
// the 64-bit FNV-1a of its bytes.
type Audit struct {
	Schema  string `json:"schema"`
	HashHex string `json:"hash_hex"`
	Tag     string `json:"tag"`
}

// MakeAudit hashes content and builds the `schema:hash` tag.
func MakeAudit(schema, content string) (Audit, error) {
	if schema == "" {
		return Audit{}, errs.New(errs.InvalidInput, "schema version empty")
	}
	hex := numeric.Hex64(numeric.FNV1a64String(content))
	return Audit{Schema: schema, HashHex: hex, Tag: schema + ":" + hex}, nil
}

// Tagged pairs an artifact's bytes with its audit.
type Tagged struct {
	Name    string
	Content string
	Audit   Audit
}

// NewTagged audits content under the schema and names it for the bundle.
func NewTagged(name, schema, content string) (Tagged, error) {
	a, err := MakeAudit(schema, content)
	if err != nil {
		return Tagged{}, err
	}
	return Tagged{Name: name, Content: content, Audit: a}, nil
}
