package transport

import (
	"encoding/json"
	"fmt"

	"github.com/embedchat/embedchat/internal/citations"
)

// Reply is the normalized result of one completion request. Whatever shape
// the server answered in, callers see exactly this.
type Reply struct {
	Content string
	Sources []citations.SourceRecord
	TraceID string
}

// wireResponse covers the accepted success shapes: the OpenAI choices form
// and the flat {response} form, with source data at any of four locations.
// parseReply sniffs the shapes once, here at the boundary; nothing past this
// file deals with raw server JSON.
type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string          `json:"content"`
			Sources json.RawMessage `json:"sources,omitempty"`
		} `json:"message"`
	} `json:"choices,omitempty"`
	Response string `json:"response,omitempty"`
	TraceID  string `json:"traceId,omitempty"`

	Source *struct {
		Sources json.RawMessage `json:"sources,omitempty"`
	} `json:"source,omitempty"`
	Sources json.RawMessage `json:"sources,omitempty"`
	Context *struct {
		Sources json.RawMessage `json:"sources,omitempty"`
	} `json:"context,omitempty"`
}

// parseReply decodes a success body into a Reply.
func parseReply(body []byte) (*Reply, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	reply := &Reply{TraceID: wire.TraceID}

	switch {
	case len(wire.Choices) > 0:
		reply.Content = wire.Choices[0].Message.Content
	case wire.Response != "":
		reply.Content = wire.Response
	default:
		return nil, fmt.Errorf("response carries no completion content")
	}

	reply.Sources = extractSources(wire)
	return reply, nil
}

// extractSources normalizes source data from whichever of the accepted
// locations is populated: source.sources, sources, context.sources, or
// choices[0].message.sources. The first populated location wins.
func extractSources(wire wireResponse) []citations.SourceRecord {
	candidates := []json.RawMessage{wire.Sources}
	if wire.Source != nil {
		candidates = append([]json.RawMessage{wire.Source.Sources}, candidates...)
	}
	if wire.Context != nil {
		candidates = append(candidates, wire.Context.Sources)
	}
	if len(wire.Choices) > 0 {
		candidates = append(candidates, wire.Choices[0].Message.Sources)
	}

	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		if records := normalizeSources(raw); len(records) > 0 {
			return records
		}
	}
	return nil
}

// wireSource is a single source entry as servers emit it. The document and
// headings fields are shape-polymorphic and decoded leniently.
type wireSource struct {
	Source struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	} `json:"source"`
	Document json.RawMessage            `json:"document,omitempty"`
	Metadata map[string]json.RawMessage `json:"metadata,omitempty"`
}

// normalizeSources converts raw source JSON (a single object or an array of
// objects) into SourceRecords. Wrong-typed entries are dropped, never fatal:
// a bad source must not take citation rendering down with it.
func normalizeSources(raw json.RawMessage) []citations.SourceRecord {
	var entries []wireSource
	if err := json.Unmarshal(raw, &entries); err != nil {
		var single wireSource
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil
		}
		entries = []wireSource{single}
	}

	var records []citations.SourceRecord
	for _, entry := range entries {
		if entry.Source.Name == "" {
			continue
		}
		rec := citations.SourceRecord{
			Name:        entry.Source.Name,
			Description: entry.Source.Description,
			Document:    decodeDocument(entry.Document),
		}
		if meta := decodeMetadata(entry.Metadata); len(meta) > 0 {
			rec.Metadata = meta
		}
		records = append(records, rec)
	}
	return records
}

// decodeDocument accepts the map form and the array form of document data.
func decodeDocument(raw json.RawMessage) citations.Document {
	if len(raw) == 0 {
		return citations.Document{}
	}
	var byKey map[string]string
	if err := json.Unmarshal(raw, &byKey); err == nil {
		return citations.Document{Entries: byKey}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return citations.Document{List: list}
	}
	return citations.Document{}
}

// metadataEntry is one per-citation metadata object; headings may be a
// string or an array of strings. Fields beyond headings are ignored.
type metadataEntry struct {
	Headings json.RawMessage `json:"headings,omitempty"`
}

// decodeMetadata converts per-citation metadata, preserving the stringified
// pseudo-list headings form verbatim for the resolver's fallback handling.
func decodeMetadata(raw map[string]json.RawMessage) map[string]citations.SectionMeta {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]citations.SectionMeta)
	for key, entryRaw := range raw {
		var entry metadataEntry
		if err := json.Unmarshal(entryRaw, &entry); err != nil {
			continue
		}
		if len(entry.Headings) == 0 {
			continue
		}
		var meta citations.SectionMeta
		var headings []string
		if err := json.Unmarshal(entry.Headings, &headings); err == nil {
			meta.Headings = headings
		} else {
			var rawString string
			if err := json.Unmarshal(entry.Headings, &rawString); err != nil {
				continue
			}
			meta.RawHeadings = rawString
		}
		out[key] = meta
	}
	return out
}
