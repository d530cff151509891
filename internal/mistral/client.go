// Package mistral is an HTTP client for the Mistral files and OCR APIs.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/ocrdown/internal/models"
)

const (
	// DefaultBaseURL is the public Mistral API endpoint.
	DefaultBaseURL = "https://api.mistral.ai"
	// DefaultModel is the OCR model used when none is configured.
	DefaultModel = "mistral-ocr-latest"
	// PurposeOCR tags uploaded files that are only used as OCR input.
	PurposeOCR = "ocr"

	maxErrorBody = 4096
)

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("mistral %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("mistral %s: HTTP %d", e.Op, e.StatusCode)
}

// Client talks to the Mistral API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithModel overrides the OCR model.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets a logger for request debugging.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client authenticating with apiKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the OCR model the client requests.
func (c *Client) Model() string {
	return c.model
}

// UploadFile uploads data under filename with the given purpose and returns the file handle.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte, purpose string) (*models.UploadedFile, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", purpose); err != nil {
		return nil, fmt.Errorf("write purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	var out models.UploadedFile
	if err := c.do(ctx, "upload file", http.MethodPost, "/v1/files", mw.FormDataContentType(), &body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("mistral upload file: response has no file id")
	}
	c.logger.Debug("uploaded file", zap.String("file_id", out.ID), zap.String("filename", filename), zap.Int("bytes", len(data)))
	return &out, nil
}

// GetSignedURL returns a time-limited retrieval URL for an uploaded file.
// expiry is passed to the API unchanged.
func (c *Client) GetSignedURL(ctx context.Context, fileID string, expiry int) (*models.SignedURL, error) {
	path := "/v1/files/" + url.PathEscape(fileID) + "/url"
	if expiry > 0 {
		path += "?expiry=" + strconv.Itoa(expiry)
	}
	var out models.SignedURL
	if err := c.do(ctx, "get signed url", http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, fmt.Errorf("mistral get signed url: response has no url")
	}
	return &out, nil
}

// DeleteFile deletes an uploaded file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.do(ctx, "delete file", http.MethodDelete, "/v1/files/"+url.PathEscape(fileID), "", nil, nil)
}

// OCR runs OCR on doc, asking for embedded images as base64.
func (c *Client) OCR(ctx context.Context, doc models.Document) (*models.OCRResponse, error) {
	payload, err := json.Marshal(models.OCRRequest{
		Model:              c.model,
		Document:           doc,
		IncludeImageBase64: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ocr request: %w", err)
	}
	var out models.OCRResponse
	if err := c.do(ctx, "ocr", http.MethodPost, "/v1/ocr", "application/json", bytes.NewReader(payload), &out); err != nil {
		return nil, err
	}
	c.logger.Debug("ocr completed",
		zap.String("document_type", string(doc.Type)),
		zap.Int("pages", len(out.Pages)),
		zap.Int("pages_processed", out.UsageInfo.PagesProcessed),
	)
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("mistral %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mistral %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mistral %s: decode response: %w", op, err)
	}
	return nil
}
