package markdown

import (
	"strings"
	"testing"
)

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()
	tests := []struct {
		name     string
		source   string
		contains []string
	}{
		{"heading", "# Title\n\nBody text", []string{"<h1", "Title</h1>", "<p>Body text</p>"}},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>", "<td>1</td>"}},
		{"definition list", "Term\n: Definition", []string{"<dl>", "<dt>Term</dt>", "<dd>Definition</dd>"}},
		{"inline image", "![img-0](data:image/png;base64,iVBORw0KGgo=)", []string{`src="data:image/png;base64,iVBORw0KGgo="`, `alt="img-0"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := r.Render(tt.source)
			if err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(string(html), want) {
					t.Errorf("Render(%q) = %q, missing %q", tt.source, html, want)
				}
			}
		})
	}
}

func TestRenderer_DropsRawHTML(t *testing.T) {
	html, err := NewRenderer().Render("<script>alert(1)</script>\n\ntext")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(html), "<script>") {
		t.Errorf("raw HTML should not be emitted: %q", html)
	}
}
