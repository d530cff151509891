package ocr

import (
	"path/filepath"
	"strings"

	"github.com/hyperjump/ocrdown/internal/config"
)

// FileKind is how an upload is sent to the OCR service.
type FileKind int

const (
	KindUnsupported FileKind = iota
	KindImage
	KindDocument
)

func (k FileKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindDocument:
		return "pdf"
	default:
		return "unsupported"
	}
}

// Classifier maps filename extensions to file kinds.
type Classifier struct {
	images     map[string]struct{}
	documents  map[string]struct{}
	extensions []string
}

// NewClassifier builds a classifier from the configured upload extensions.
func NewClassifier(cfg config.UploadConfig) *Classifier {
	c := &Classifier{
		images:     make(map[string]struct{}),
		documents:  make(map[string]struct{}),
		extensions: cfg.AllExtensions(),
	}
	for _, e := range cfg.ImageExtensions {
		c.images[normalizeExt(e)] = struct{}{}
	}
	for _, e := range cfg.DocumentExtensions {
		c.documents[normalizeExt(e)] = struct{}{}
	}
	return c
}

// Classify returns the kind of filename based on its extension, case-insensitively.
func (c *Classifier) Classify(filename string) FileKind {
	ext := Extension(filename)
	if ext == "" {
		return KindUnsupported
	}
	if _, ok := c.documents[ext]; ok {
		return KindDocument
	}
	if _, ok := c.images[ext]; ok {
		return KindImage
	}
	return KindUnsupported
}

// Allowed reports whether filename has an accepted extension.
func (c *Classifier) Allowed(filename string) bool {
	return c.Classify(filename) != KindUnsupported
}

// Extensions returns the accepted extensions in configuration order.
func (c *Classifier) Extensions() []string {
	return append([]string(nil), c.extensions...)
}

// Extension returns the lowercased extension of filename without the dot.
func Extension(filename string) string {
	return normalizeExt(filepath.Ext(filename))
}

func normalizeExt(e string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), ".")
}
