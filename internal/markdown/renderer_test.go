package markdown

import (
	"strings"
	"testing"
)

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()

	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:     "basic formatting",
			input:    "Some **bold** and `inline code`.",
			contains: []string{"<strong>bold</strong>", "<code>inline code</code>"},
		},
		{
			name:     "fenced code block",
			input:    "```\nfmt.Println(\"hi\")\n```",
			contains: []string{"<pre>", "fmt.Println"},
		},
		{
			name:        "script stripped",
			input:       `Hello <script>alert("x")</script> world`,
			contains:    []string{"Hello"},
			notContains: []string{"<script>", "alert"},
		},
		{
			name:        "event handlers stripped",
			input:       `<a href="#ref-1" onclick="steal()">link</a>`,
			contains:    []string{"<a", `href="#ref-1"`},
			notContains: []string{"onclick"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Render(tt.input)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output %q missing %q", got, want)
				}
			}
			for _, bad := range tt.notContains {
				if strings.Contains(got, bad) {
					t.Errorf("output %q contains %q", got, bad)
				}
			}
		})
	}
}

func TestRenderer_KeepsCitationAnchors(t *testing.T) {
	r := NewRenderer()

	anchor := `<a href="#ref-2" class="citation-link" role="link" tabindex="0" aria-label="Go to reference 2">[2]</a>`
	got := r.Sanitize(anchor)

	for _, attr := range []string{`href="#ref-2"`, `class="citation-link"`, `tabindex="0"`} {
		if !strings.Contains(got, attr) {
			t.Errorf("sanitized anchor lost %q: %q", attr, got)
		}
	}
}
