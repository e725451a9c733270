package closeout

import "fmt"

// issueCatalog maps every known issue code to its expected kind. Codes
// outside this set, or carried with the wrong severity, are invariant
// violations.
var issueCatalog = map[string]IssueKind{
	// Mass / breakdown.
	"MASS_BREAKDOWN_MISSING":    IssueNeedsData,
	"MASS_ITEM_UNSET":           IssueNeedsData,
	"DELTA_MASS_TOTAL_UNSET":    IssueNeedsData,
	"DELTA_MASS_EXCEEDS_LIMIT":  IssueError,

	// Disk area.
	"DISK_AREA_UNSET":       IssueNeedsData,
	"DISK_AREA_NONPOSITIVE": IssueError,
	"DISK_AREA_BELOW_MIN":   IssueError,

	// Power.
	"POWER_HOVER_UNSET":       IssueNeedsData,
	"POWER_HOVER_NONPOSITIVE": IssueError,
	"POWER_HOVER_EXCEEDS_MAX": IssueError,

	// Drag.
	"DRAG_CDS_UNSET":       IssueNeedsData,
	"DRAG_CDS_EXCEEDS_MAX": IssueError,

	// Summary.
	"CLOSEOUT_NEEDS_DATA": IssueNeedsData,
	"CLOSEOUT_NO_GO":      IssueError,

	// Serialization / internal.
	"JSON_SERIALIZATION_ERROR": IssueError,
	"JSON_PARSE_ERROR":         IssueError,
	"INVARIANT_VIOLATION":      IssueError,
}

// KnownIssueCode reports whether the code belongs to the catalog.
func KnownIssueCode(code string) bool {
	_, ok := issueCatalog[code]
	return ok
}

// ValidateIssues checks a report against the catalog and the verdict: an
// unknown code, a severity mismatch, or a Go verdict coexisting with a
// CLOSEOUT_NO_GO summary issue each append an INVARIANT_VIOLATION error.
// The validation itself is idempotent through the report's de-dup set.
func ValidateIssues(r *IssueReport, verdict Verdict) {
	for _, is := range r.Issues {
		expected, known := issueCatalog[is.Code]
		if !known {
			r.Add(IssueError, "INVARIANT_VIOLATION",
				fmt.Sprintf("unknown issue code %q", is.Code), is.Code)
			continue
		}
		if is.Kind != expected && is.Code != "INVARIANT_VIOLATION" {
			r.Add(IssueError, "INVARIANT_VIOLATION",
				fmt.Sprintf("issue %q carries kind %s, catalog expects %s", is.Code, is.Kind, expected), is.Code)
		}
	}

	if verdict == VerdictGo {
		for _, is := range r.Issues {
			if is.Code == "CLOSEOUT_NO_GO" {
				r.Add(IssueError, "INVARIANT_VIOLATION",
					"verdict Go contradicts CLOSEOUT_NO_GO summary issue", "verdict")
				break
			}
		}
	}
}
