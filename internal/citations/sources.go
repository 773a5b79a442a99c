package citations

import (
	"strconv"
)

// Field caps applied during sanitization. Anything longer is cut, not
// rejected: source metadata comes from arbitrary upstreams and a single
// oversized field should not take the whole record down.
const (
	maxNameLength        = 120
	maxDescriptionLength = 300
	maxDocumentLength    = 4000
	maxHeadingLength     = 200
)

// SourceRecord is a structured document/metadata bundle supplied per API
// response and used to resolve citation markers into references. Records
// arrive already normalized by the transport layer; Sanitize enforces the
// field caps before resolution.
type SourceRecord struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Document    Document               `json:"document,omitempty"`
	Metadata    map[string]SectionMeta `json:"metadata,omitempty"`
}

// Document holds citation-keyed content in either of the two shapes
// upstreams produce: a map keyed by citation number, or a plain array
// indexed by citation number minus one. Exactly one of the fields is set.
type Document struct {
	Entries map[string]string `json:"entries,omitempty"`
	List    []string          `json:"list,omitempty"`
}

// Lookup returns the document content for citation number n: the map entry
// under the stringified number, or for array-style documents the element at
// n-1. Empty content counts as absent.
func (d Document) Lookup(n int) (string, bool) {
	if d.Entries != nil {
		if content, ok := d.Entries[strconv.Itoa(n)]; ok && content != "" {
			return content, true
		}
		return "", false
	}
	if n >= 1 && n <= len(d.List) && d.List[n-1] != "" {
		return d.List[n-1], true
	}
	return "", false
}

// SectionMeta carries per-citation section metadata. Headings is the parsed
// array form; RawHeadings the stringified pseudo-list form some upstreams
// emit (e.g. "['Install', 'Linux']"), kept verbatim for the resolver's
// best-effort parsing.
type SectionMeta struct {
	Headings    []string `json:"headings,omitempty"`
	RawHeadings string   `json:"rawHeadings,omitempty"`
}

// Sanitize applies the field caps to a record and reports whether it is
// usable at all. A record without a name cannot produce a reference and is
// dropped.
func (sr *SourceRecord) Sanitize() bool {
	if sr.Name == "" {
		return false
	}
	sr.Name = capString(sr.Name, maxNameLength)
	sr.Description = capString(sr.Description, maxDescriptionLength)
	for k, v := range sr.Document.Entries {
		sr.Document.Entries[k] = capString(v, maxDocumentLength)
	}
	for i, v := range sr.Document.List {
		sr.Document.List[i] = capString(v, maxDocumentLength)
	}
	for key, meta := range sr.Metadata {
		for i, h := range meta.Headings {
			meta.Headings[i] = capString(h, maxHeadingLength)
		}
		meta.RawHeadings = capString(meta.RawHeadings, maxHeadingLength)
		sr.Metadata[key] = meta
	}
	return true
}

// SanitizeAll sanitizes a batch of records, dropping unusable ones. The
// input records are left untouched; sanitization works on deep copies so
// callers can hand the same slice to Resolve repeatedly.
func SanitizeAll(records []SourceRecord) []SourceRecord {
	out := make([]SourceRecord, 0, len(records))
	for i := range records {
		rec := records[i].clone()
		if rec.Sanitize() {
			out = append(out, rec)
		}
	}
	return out
}

// clone deep-copies the record, including document and metadata containers.
func (sr SourceRecord) clone() SourceRecord {
	out := sr
	if sr.Document.Entries != nil {
		out.Document.Entries = make(map[string]string, len(sr.Document.Entries))
		for k, v := range sr.Document.Entries {
			out.Document.Entries[k] = v
		}
	}
	if sr.Document.List != nil {
		out.Document.List = append([]string(nil), sr.Document.List...)
	}
	if sr.Metadata != nil {
		out.Metadata = make(map[string]SectionMeta, len(sr.Metadata))
		for k, meta := range sr.Metadata {
			meta.Headings = append([]string(nil), meta.Headings...)
			out.Metadata[k] = meta
		}
	}
	return out
}

func capString(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
