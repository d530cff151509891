// Package cli provides output helpers for the ocrdown command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/ocrdown/internal/markdown"
	"github.com/hyperjump/ocrdown/internal/models"
)

// OutputFormat is the format for conversion output.
type OutputFormat string

const (
	// OutputMarkdown writes the combined Markdown unchanged (default).
	OutputMarkdown OutputFormat = "markdown"
	// OutputHTML writes the Markdown rendered as an HTML fragment.
	OutputHTML OutputFormat = "html"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts markdown (or md), html and json, case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return OutputMarkdown, nil
	case "html":
		return OutputHTML, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: markdown, html, json)", s)
	}
}

// Conversion is the result of converting one input file.
type Conversion struct {
	Source   string `json:"source"`
	Output   string `json:"output"`
	Markdown string `json:"markdown"`
	// Pages is the page count of a PDF source; zero for images.
	Pages int `json:"pages,omitempty"`
}

// NewConversion returns a conversion of source with the default output name.
func NewConversion(source, md string) *Conversion {
	return &Conversion{Source: source, Output: models.MarkdownName(source), Markdown: md}
}

// WriteConversion writes conv to w in the given format.
func WriteConversion(w io.Writer, conv *Conversion, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(conv)
	case OutputHTML:
		html, err := markdown.NewRenderer().Render(conv.Markdown)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, string(html))
		return err
	default:
		_, err := io.WriteString(w, conv.Markdown)
		if err == nil && !strings.HasSuffix(conv.Markdown, "\n") {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}
}
