// Package models defines core data structures for OCR requests, responses, and stored results.
package models

// DocumentType is the kind of document descriptor sent to the OCR service.
type DocumentType string

const (
	// DocumentTypeURL references a document (e.g. a PDF) by retrieval URL.
	DocumentTypeURL DocumentType = "document_url"
	// DocumentTypeImageURL references an image by URL or data URI.
	DocumentTypeImageURL DocumentType = "image_url"
)

// Document describes the input of an OCR call. Exactly one of DocumentURL or
// ImageURL is set, matching Type.
type Document struct {
	Type        DocumentType `json:"type"`
	DocumentURL string       `json:"document_url,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
}

// NewDocumentURL returns a document descriptor for a signed document URL.
func NewDocumentURL(url string) Document {
	return Document{Type: DocumentTypeURL, DocumentURL: url}
}

// NewImageURL returns a document descriptor for an image URL or data URI.
func NewImageURL(url string) Document {
	return Document{Type: DocumentTypeImageURL, ImageURL: url}
}

// OCRRequest is the body of an OCR call.
type OCRRequest struct {
	Model              string   `json:"model"`
	Document           Document `json:"document"`
	IncludeImageBase64 bool     `json:"include_image_base64"`
}

// OCRResponse is the OCR service response: an ordered list of pages.
type OCRResponse struct {
	Pages     []Page    `json:"pages"`
	Model     string    `json:"model"`
	UsageInfo UsageInfo `json:"usage_info"`
}

// UsageInfo reports how much of the document the OCR service processed.
type UsageInfo struct {
	PagesProcessed int  `json:"pages_processed"`
	DocSizeBytes   *int `json:"doc_size_bytes"`
}

// Page is a single recognized page.
type Page struct {
	Index      int        `json:"index"`
	Markdown   string     `json:"markdown"`
	Images     []Image    `json:"images"`
	Dimensions Dimensions `json:"dimensions"`
}

// Dimensions of a rendered page.
type Dimensions struct {
	DPI    int `json:"dpi"`
	Height int `json:"height"`
	Width  int `json:"width"`
}

// Image is an image extracted from a page. ImageBase64 is only populated when
// the request asked for embedded images.
type Image struct {
	ID           string `json:"id"`
	TopLeftX     int    `json:"top_left_x"`
	TopLeftY     int    `json:"top_left_y"`
	BottomRightX int    `json:"bottom_right_x"`
	BottomRightY int    `json:"bottom_right_y"`
	ImageBase64  string `json:"image_base64"`
}

// UploadedFile is the handle returned by the OCR service after a file upload.
type UploadedFile struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
}

// SignedURL is a time-limited retrieval URL for an uploaded file.
type SignedURL struct {
	URL string `json:"url"`
}
