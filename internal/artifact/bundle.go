package artifact

import (
	"sort"
	"strings"

	"github.com/skylift/rotoreval/internal/numeric"
)

// bundleTagSeparator joins the sorted child tags for the bundle digest.
const bundleTagSeparator = "\n"

// BundleEntry is one artifact slot in the manifest. An absent artifact
// keeps its name with an empty audit; the bundle digest reflects the
// absence.
type BundleEntry struct {
	Name    string
	Present bool
	Audit   Audit
}

// Bundle is the manifest over one artifact set.
type Bundle struct {
	BundleID string
	Entries  []BundleEntry
}

// NewBundle starts an empty manifest.
func NewBundle(bundleID string) *Bundle {
	return &Bundle{BundleID: bundleID}
}

// Add registers a present artifact.
func (b *Bundle) Add(t Tagged) {
	b.Entries = append(b.Entries, BundleEntry{Name: t.Name, Present: true, Audit: t.Audit})
}

// AddAbsent registers a named slot whose artifact was not produced.
func (b *Bundle) AddAbsent(name string) {
	b.Entries = append(b.Entries, BundleEntry{Name: name})
}

// Digest computes the bundle audit over the sorted child tags. Absent
// entries contribute their name with an empty tag, so producing or
// dropping an artifact changes the digest.
func (b *Bundle) Digest() Audit {
	tags := make([]string, 0, len(b.Entries))
	for _, e := range b.Entries {
		if e.Present {
			tags = append(tags, e.Audit.Tag)
		} else {
			tags = append(tags, e.Name+":")
		}
	}
	sort.Strings(tags)
	joined := strings.Join(tags, bundleTagSeparator)
	hex := numeric.Hex64(numeric.FNV1a64String(joined))
	return Audit{Schema: SchemaBundleAudit, HashHex: hex, Tag: SchemaBundleAudit + ":" + hex}
}

// ManifestJSON emits the bundle manifest through the canonical writer.
func (b *Bundle) ManifestJSON(pretty bool) (string, error) {
	opt := WriterOptions{EmitNullForUnset: true}
	if pretty {
		opt.Pretty = "  "
	}
	w := NewWriter(opt)

	digest := b.Digest()

	w.BeginObject()
	w.Key("bundle_id").String(b.BundleID)
	w.Key("artifacts").BeginArray()
	for _, e := range b.Entries {
		w.BeginObject()
		w.Key("name").String(e.Name)
		w.Key("present").Bool(e.Present)
		if e.Present {
			w.Key("schema").String(e.Audit.Schema)
			w.Key("hash_hex").String(e.Audit.HashHex)
			w.Key("tag").String(e.Audit.Tag)
		} else {
			w.Key("schema").Null()
			w.Key("hash_hex").Null()
			w.Key("tag").Null()
		}
		w.EndObject()
	}
	w.EndArray()
	w.Key("bundle_audit").BeginObject()
	w.Key("schema").String(digest.Schema)
	w.Key("hash_hex").String(digest.HashHex)
	w.Key("tag").String(digest.Tag)
	w.EndObject()
	w.EndObject()

	return w.Result()
}

// ManifestCSV emits the bundle manifest as CSV; the final record carries
// the bundle digest.
func (b *Bundle) ManifestCSV() string {
	w := NewRowWriter("bundle_id", "name", "present", "schema", "hash_hex", "tag")
	for _, e := range b.Entries {
		present := "0"
		if e.Present {
			present = "1"
		}
		w.Row(b.BundleID, e.Name, present, e.Audit.Schema, e.Audit.HashHex, e.Audit.Tag)
	}
	digest := b.Digest()
	w.Row(b.BundleID, "bundle_audit", "1", digest.Schema, digest.HashHex, digest.Tag)
	return w.String()
}

// AuditedManifest returns both manifest renderings with their own audits.
func (b *Bundle) AuditedManifest() (jsonArt, csvArt Tagged, err error) {
	js, err := b.ManifestJSON(false)
	if err != nil {
		return Tagged{}, Tagged{}, err
	}
	jsonArt, err = NewTagged("bundle_manifest.json", SchemaBundleManifestJSON, js)
	if err != nil {
		return Tagged{}, Tagged{}, err
	}
	csvArt, err = NewTagged("bundle_manifest.csv", SchemaBundleManifestCSV, b.ManifestCSV())
	if err != nil {
		return Tagged{}, Tagged{}, err
	}
	return jsonArt, csvArt, nil
}
