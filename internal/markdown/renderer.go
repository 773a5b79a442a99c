package markdown

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts assistant markdown into sanitized HTML the widget can
// inject into the page. Sanitization runs after rendering, so model output
// cannot smuggle script or event-handler attributes into the DOM.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer creates a renderer with GFM extensions and a UGC sanitization
// policy extended to keep the citation anchors the resolver produces.
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class", "role", "tabindex", "aria-label").OnElements("a")
	policy.AllowAttrs("class", "id", "value").OnElements("ol", "li")
	policy.RequireNoFollowOnLinks(false)

	return &Renderer{
		// Raw HTML passes through goldmark untouched; bluemonday is the
		// safety layer and must see it to strip it.
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
		),
		policy: policy,
	}
}

// Render converts markdown to sanitized HTML.
func (r *Renderer) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// Sanitize applies the sanitization policy to already-rendered HTML, e.g.
// resolver output that never went through the markdown pipeline.
func (r *Renderer) Sanitize(htmlText string) string {
	return r.policy.Sanitize(htmlText)
}
