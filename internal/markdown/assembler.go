// Package markdown assembles per-page OCR markdown into a single document and
// renders it to HTML.
package markdown

import (
	"encoding/base64"
	"strings"

	"github.com/hyperjump/ocrdown/internal/imagefmt"
	"github.com/hyperjump/ocrdown/internal/models"
	"github.com/hyperjump/ocrdown/pkg/utils"
	"go.uber.org/zap"
)

// PageSeparator joins processed pages: exactly one blank line.
const PageSeparator = "\n\n"

const previewLen = 500

// ImageMap maps image IDs to base64 payloads. Iteration follows insertion
// order; setting an existing ID replaces its payload but keeps its position.
type ImageMap struct {
	ids      []string
	payloads map[string]string
}

// NewImageMap returns an empty ImageMap.
func NewImageMap() *ImageMap {
	return &ImageMap{payloads: make(map[string]string)}
}

// Set stores payload under id.
func (m *ImageMap) Set(id, payload string) {
	if _, ok := m.payloads[id]; !ok {
		m.ids = append(m.ids, id)
	}
	m.payloads[id] = payload
}

// Get returns the payload for id.
func (m *ImageMap) Get(id string) (string, bool) {
	if m == nil {
		return "", false
	}
	p, ok := m.payloads[id]
	return p, ok
}

// Len returns the number of entries.
func (m *ImageMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}

// IDs returns the IDs in iteration order.
func (m *ImageMap) IDs() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.ids...)
}

// PageImages builds the ImageMap for a page, keeping only images that carry
// both an ID and a payload.
func PageImages(page models.Page) *ImageMap {
	m := NewImageMap()
	for _, img := range page.Images {
		if img.ID != "" && img.ImageBase64 != "" {
			m.Set(img.ID, img.ImageBase64)
		}
	}
	return m
}

// Assembler resolves image placeholders and joins OCR pages.
type Assembler struct {
	logger *zap.Logger
}

// NewAssembler returns an Assembler. A nil logger disables logging.
func NewAssembler(logger *zap.Logger) *Assembler {
	return &Assembler{logger: utils.OrNop(logger)}
}

// Assemble resolves every page of resp in order and joins the results with
// PageSeparator. A nil response or one without pages yields "".
func (a *Assembler) Assemble(resp *models.OCRResponse) string {
	if resp == nil || len(resp.Pages) == 0 {
		a.logger.Debug("ocr response has no pages")
		return ""
	}
	pages := make([]string, 0, len(resp.Pages))
	for i, page := range resp.Pages {
		images := PageImages(page)
		a.logger.Debug("assembling page",
			zap.Int("page", i),
			zap.Int("images", len(page.Images)),
			zap.Int("usable_images", images.Len()),
			zap.String("markdown_preview", utils.Truncate(page.Markdown, previewLen)),
		)
		pages = append(pages, a.Resolve(page.Markdown, images))
	}
	combined := strings.Join(pages, PageSeparator)
	a.logger.Debug("assembled document", zap.Int("pages", len(pages)), zap.Int("length", len(combined)))
	return combined
}

// Resolve replaces every literal ![id](id) placeholder in pageMarkdown with
// ![id](data:image/<format>;base64,<payload>). Entries are applied in map
// order against the partially rewritten markdown, so an earlier replacement
// can remove a later placeholder that overlaps it. Invalid payloads and
// missing placeholders are skipped.
func (a *Assembler) Resolve(pageMarkdown string, images *ImageMap) string {
	if pageMarkdown == "" || images.Len() == 0 {
		return pageMarkdown
	}
	out := pageMarkdown
	replaced := 0
	for _, id := range images.ids {
		payload := images.payloads[id]
		if id == "" || payload == "" {
			a.logger.Debug("skipping image without id or payload", zap.String("id", id))
			continue
		}
		uri, err := a.inlineImage(payload)
		if err != nil {
			a.logger.Warn("skipping image with invalid payload", zap.String("id", id), zap.Error(err))
			continue
		}
		placeholder := "![" + id + "](" + id + ")"
		if !strings.Contains(out, placeholder) {
			a.logger.Debug("placeholder not found", zap.String("placeholder", placeholder))
			continue
		}
		out = strings.ReplaceAll(out, placeholder, "!["+id+"]("+uri+")")
		replaced++
	}
	a.logger.Debug("resolved page images", zap.Int("candidates", images.Len()), zap.Int("replaced", replaced))
	return out
}

func (a *Assembler) inlineImage(payload string) (string, error) {
	if imagefmt.IsDataURI(payload) {
		return payload, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", err
	}
	format, err := imagefmt.Detect(data)
	if err != nil {
		return "", err
	}
	return imagefmt.DataURI(format, payload), nil
}
