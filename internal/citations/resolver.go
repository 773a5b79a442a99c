package citations

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// minCitationLength is the minimum marker-stripped length for a run of
	// text to be accepted as an unstructured reference.
	minCitationLength = 15
	// snippetLength is how much of the matched document content is shown in
	// a reference entry.
	snippetLength = 200
	// maxVerbatimHeadings is the cutoff below which a malformed headings
	// string is shown verbatim instead of being dropped.
	maxVerbatimHeadings = 100
)

var (
	markerRe        = regexp.MustCompile(`\[(\d+)\]`)
	quotedRe        = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)
	snippetStripRe  = regexp.MustCompile(`[#*\-]`)
	snippetSpacesRe = regexp.MustCompile(`\s+`)
)

// Citation is one resolved reference: a citation number paired with the
// HTML reference text shown in the references list. Citations live only for
// the rendering of a single message.
type Citation struct {
	Number    int    `json:"number"`
	Reference string `json:"reference"`
}

// Resolution is the outcome of resolving one message: the text with
// resolved markers rewritten into anchors, and the references list ordered
// ascending by citation number.
type Resolution struct {
	Text       string     `json:"text"`
	References []Citation `json:"references"`
}

// Resolver matches inline citation markers against source records and
// builds cross-referenced reference lists. Resolve is pure: identical
// inputs always produce identical output.
type Resolver struct{}

// NewResolver creates a citation resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve maps the [N] markers in text to the given sources. Structured
// resolution against source documents is tried first; when it yields
// nothing, the unstructured fallback treats the text following each marker
// as the reference itself. Markers that resolve become keyboard-accessible
// anchors; the rest stay literal. With no sources or no markers the text
// passes through unchanged.
func (r *Resolver) Resolve(text string, sources []SourceRecord) Resolution {
	if len(sources) == 0 || !markerRe.MatchString(text) {
		return Resolution{Text: text, References: nil}
	}

	sources = SanitizeAll(sources)

	resolved := r.resolveStructured(text, sources)
	if len(resolved) == 0 {
		return r.resolveUnstructured(text)
	}

	rewritten := rewriteMarkers(text, resolved)
	return Resolution{Text: rewritten, References: sortedCitations(resolved)}
}

// resolveStructured looks every marker number up in the source documents.
// Sources are tried in array order and a later match for the same number
// overwrites an earlier one; the upstream contract defines no ordering rule
// across records, so array order is what callers get.
func (r *Resolver) resolveStructured(text string, sources []SourceRecord) map[int]string {
	resolved := make(map[int]string)

	for _, match := range markerRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 {
			continue
		}
		for _, src := range sources {
			content, ok := src.Document.Lookup(n)
			if !ok {
				continue
			}
			resolved[n] = buildReference(src, n, content)
		}
	}

	return resolved
}

// resolveUnstructured handles responses whose sources carry no usable
// document data: each "[N] some reference text" run is taken at face value,
// with the captured text as the reference content.
func (r *Resolver) resolveUnstructured(text string) Resolution {
	locs := markerRe.FindAllStringSubmatchIndex(text, -1)
	resolved := make(map[int]string)

	for i, loc := range locs {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || n < 1 {
			continue
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		run := strings.TrimSpace(text[loc[1]:end])
		if len([]rune(run)) <= minCitationLength {
			continue
		}
		resolved[n] = html.EscapeString(run)
	}

	if len(resolved) == 0 {
		return Resolution{Text: text, References: nil}
	}

	rewritten := rewriteMarkers(text, resolved)
	return Resolution{Text: rewritten, References: sortedCitations(resolved)}
}

// buildReference assembles the HTML reference text for one citation: bolded
// source name, optional description, optional section path, and an
// italicized snippet of the matched content. Every user-supplied field is
// escaped before embedding.
func buildReference(src SourceRecord, n int, content string) string {
	var b strings.Builder

	b.WriteString("<strong>")
	b.WriteString(html.EscapeString(src.Name))
	b.WriteString("</strong>")

	if src.Description != "" {
		b.WriteString(" - ")
		b.WriteString(html.EscapeString(src.Description))
	}

	if section := sectionPath(src.Metadata[strconv.Itoa(n)]); section != "" {
		b.WriteString(", ")
		b.WriteString(section)
	}

	b.WriteString(": <em>")
	b.WriteString(html.EscapeString(snippet(content)))
	b.WriteString("...</em>")

	return b.String()
}

// sectionPath renders section metadata as an escaped "A &gt; B" breadcrumb.
// Stringified pseudo-lists are parsed by extracting quoted substrings; a
// malformed string under 100 characters is shown verbatim, longer ones are
// dropped.
func sectionPath(meta SectionMeta) string {
	if len(meta.Headings) > 0 {
		escaped := make([]string, 0, len(meta.Headings))
		for _, h := range meta.Headings {
			if h != "" {
				escaped = append(escaped, html.EscapeString(h))
			}
		}
		return strings.Join(escaped, " > ")
	}

	raw := meta.RawHeadings
	if raw == "" {
		return ""
	}

	var parts []string
	for _, m := range quotedRe.FindAllStringSubmatch(raw, -1) {
		part := m[1]
		if part == "" {
			part = m[2]
		}
		if part != "" {
			parts = append(parts, html.EscapeString(part))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " > ")
	}
	if len([]rune(raw)) < maxVerbatimHeadings {
		return html.EscapeString(raw)
	}
	return ""
}

// snippet reduces document content to its first 200 characters with
// markdown noise stripped and whitespace collapsed.
func snippet(content string) string {
	cleaned := snippetStripRe.ReplaceAllString(content, "")
	cleaned = snippetSpacesRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	runes := []rune(cleaned)
	if len(runes) > snippetLength {
		return string(runes[:snippetLength])
	}
	return cleaned
}

// rewriteMarkers replaces each resolved [N] with an anchor that jumps to the
// matching references entry. Unresolved markers are left as literal text.
func rewriteMarkers(text string, resolved map[int]string) string {
	return markerRe.ReplaceAllStringFunc(text, func(marker string) string {
		n, err := strconv.Atoi(marker[1 : len(marker)-1])
		if err != nil {
			return marker
		}
		if _, ok := resolved[n]; !ok {
			return marker
		}
		return fmt.Sprintf(
			`<a href="#ref-%d" class="citation-link" role="link" tabindex="0" aria-label="Go to reference %d">[%d]</a>`,
			n, n, n)
	})
}

// ReferencesHTML renders the references list for a resolution. Entry IDs
// match the anchors produced by Resolve. An empty list renders nothing: no
// references section is appended when no citation resolved.
func ReferencesHTML(refs []Citation) string {
	if len(refs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<ol class="citation-references">`)
	for _, ref := range refs {
		fmt.Fprintf(&b, `<li id="ref-%d" value="%d">%s</li>`, ref.Number, ref.Number, ref.Reference)
	}
	b.WriteString("</ol>")
	return b.String()
}

// sortedCitations flattens the resolved map into a list ordered ascending
// by citation number.
func sortedCitations(resolved map[int]string) []Citation {
	numbers := make([]int, 0, len(resolved))
	for n := range resolved {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	citations := make([]Citation, 0, len(numbers))
	for _, n := range numbers {
		citations = append(citations, Citation{Number: n, Reference: resolved[n]})
	}
	return citations
}
