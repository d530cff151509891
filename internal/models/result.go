package models

import (
	"path/filepath"
	"strings"
	"time"
)

const defaultResultStem = "ocr_result"

// Result is a combined OCR document stored under a generated ID.
type Result struct {
	ID        string    `json:"id" db:"id"`
	Filename  string    `json:"filename" db:"filename"`
	Markdown  string    `json:"markdown" db:"markdown"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DownloadName returns the attachment name for the result: the original
// filename's stem with a .md extension.
func (r *Result) DownloadName() string {
	return MarkdownName(r.Filename)
}

// MarkdownName returns filename's stem with a .md extension, or
// "ocr_result.md" when filename has no usable stem.
func MarkdownName(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = defaultResultStem
	}
	return stem + ".md"
}
