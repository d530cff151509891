// Package ocr turns uploaded images and PDFs into a single Markdown document
// using a remote OCR service.
package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/ocrdown/internal/imagefmt"
	"github.com/hyperjump/ocrdown/internal/markdown"
	"github.com/hyperjump/ocrdown/internal/mistral"
	"github.com/hyperjump/ocrdown/internal/models"
	"github.com/hyperjump/ocrdown/internal/storage"
	"github.com/hyperjump/ocrdown/pkg/utils"
)

const (
	defaultTimeout         = 120 * time.Second
	defaultSignedURLExpiry = 60
	defaultCleanupTimeout  = 10 * time.Second
)

// Service is the subset of the OCR provider API used by the Processor.
type Service interface {
	UploadFile(ctx context.Context, filename string, data []byte, purpose string) (*models.UploadedFile, error)
	GetSignedURL(ctx context.Context, fileID string, expiry int) (*models.SignedURL, error)
	DeleteFile(ctx context.Context, fileID string) error
	OCR(ctx context.Context, doc models.Document) (*models.OCRResponse, error)
}

// Processor runs the upload → OCR → assemble pipeline.
type Processor struct {
	service        Service
	classifier     *Classifier
	store          storage.ResultStore
	assembler      *markdown.Assembler
	timeout        time.Duration
	cleanupTimeout time.Duration
	expiry         int
	logger         *zap.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithStore sets the store used by Process.
func WithStore(store storage.ResultStore) ProcessorOption {
	return func(p *Processor) { p.store = store }
}

// WithTimeout bounds all external calls made for one file.
func WithTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithSignedURLExpiry sets the expiry requested for signed document URLs.
func WithSignedURLExpiry(expiry int) ProcessorOption {
	return func(p *Processor) {
		if expiry > 0 {
			p.expiry = expiry
		}
	}
}

// WithLogger sets the logger for the processor and its assembler.
func WithLogger(l *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = utils.OrNop(l) }
}

// NewProcessor returns a Processor that sends files accepted by classifier to service.
func NewProcessor(service Service, classifier *Classifier, opts ...ProcessorOption) *Processor {
	p := &Processor{
		service:        service,
		classifier:     classifier,
		timeout:        defaultTimeout,
		cleanupTimeout: defaultCleanupTimeout,
		expiry:         defaultSignedURLExpiry,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.assembler = markdown.NewAssembler(p.logger)
	return p
}

// Process converts the file and stores the combined Markdown under a new ID.
// Nothing is stored when any step fails.
func (p *Processor) Process(ctx context.Context, filename string, data []byte) (*models.Result, error) {
	if p.store == nil {
		return nil, errors.New("processor has no result store")
	}
	md, err := p.Convert(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	result := &models.Result{
		ID:        uuid.NewString(),
		Filename:  filename,
		Markdown:  md,
		CreatedAt: time.Now(),
	}
	if err := p.store.Put(ctx, result); err != nil {
		p.logger.Error("failed to store result", zap.String("filename", filename), zap.Error(err))
		return nil, fmt.Errorf("store result: %w", err)
	}
	p.logger.Info("stored ocr result",
		zap.String("id", result.ID),
		zap.String("filename", filename),
		zap.Int("length", len(md)),
	)
	return result, nil
}

// Convert runs OCR on the file and returns the combined Markdown.
func (p *Processor) Convert(ctx context.Context, filename string, data []byte) (string, error) {
	kind := p.classifier.Classify(filename)
	p.logger.Debug("processing file",
		zap.String("filename", filename),
		zap.String("kind", kind.String()),
		zap.Int("bytes", len(data)),
	)

	var (
		resp *models.OCRResponse
		err  error
	)
	switch kind {
	case KindDocument:
		resp, err = p.ocrDocument(ctx, filename, data)
	case KindImage:
		resp, err = p.ocrImage(ctx, filename, data)
	default:
		return "", NewError(TypeUnsupportedFileType,
			"File type not allowed. Allowed types: "+strings.Join(p.classifier.Extensions(), ", "), nil)
	}
	if err != nil {
		return "", err
	}
	if resp == nil {
		p.logger.Error("ocr returned no response", zap.String("filename", filename))
		return "", NewError(TypeEmptyOCRResult, "OCR processing failed or returned an empty result.", nil)
	}
	return p.assembler.Assemble(resp), nil
}

func (p *Processor) ocrDocument(ctx context.Context, filename string, data []byte) (*models.OCRResponse, error) {
	pages, countErr := PageCount(data)
	if countErr != nil {
		p.logger.Debug("could not read pdf page count", zap.String("filename", filename), zap.Error(countErr))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	file, err := p.service.UploadFile(ctx, filename, data, mistral.PurposeOCR)
	if err != nil {
		return nil, p.externalError("upload file", filename, err)
	}
	if file == nil || file.ID == "" {
		return nil, p.externalError("upload file", filename, errors.New("no file id returned"))
	}
	defer p.deleteFile(ctx, file.ID)

	signed, err := p.service.GetSignedURL(ctx, file.ID, p.expiry)
	if err != nil {
		return nil, p.externalError("get signed url", filename, err)
	}
	if signed == nil || signed.URL == "" {
		return nil, p.externalError("get signed url", filename, errors.New("empty signed url"))
	}

	resp, err := p.service.OCR(ctx, models.NewDocumentURL(signed.URL))
	if err != nil {
		return nil, p.externalError("ocr", filename, err)
	}
	if countErr == nil && resp != nil {
		p.checkPages(filename, pages, resp)
	}
	return resp, nil
}

// checkPages compares the document's page count with the pages OCR returned.
func (p *Processor) checkPages(filename string, pages int, resp *models.OCRResponse) {
	fields := []zap.Field{
		zap.String("filename", filename),
		zap.Int("pdf_pages", pages),
		zap.Int("ocr_pages", len(resp.Pages)),
		zap.Int("pages_processed", resp.UsageInfo.PagesProcessed),
	}
	if len(resp.Pages) != pages {
		p.logger.Warn("ocr returned a different number of pages than the pdf has", fields...)
		return
	}
	p.logger.Debug("ocr page count matches pdf", fields...)
}

func (p *Processor) ocrImage(ctx context.Context, filename string, data []byte) (*models.OCRResponse, error) {
	format, err := imagefmt.Detect(data)
	if err != nil {
		p.logger.Info("unreadable image upload", zap.String("filename", filename), zap.Error(err))
		return nil, NewError(TypeUnreadableImage,
			fmt.Sprintf("Cannot identify image file: %s. It might be corrupted or an unsupported format.", filename), err)
	}
	uri := imagefmt.DataURI(imagefmt.Normalize(format), base64.StdEncoding.EncodeToString(data))

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.service.OCR(ctx, models.NewImageURL(uri))
	if err != nil {
		return nil, p.externalError("ocr", filename, err)
	}
	return resp, nil
}

// deleteFile removes an uploaded file. It runs on its own deadline so that
// cleanup still happens after the request context is done.
func (p *Processor) deleteFile(parent context.Context, fileID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), p.cleanupTimeout)
	defer cancel()
	if err := p.service.DeleteFile(ctx, fileID); err != nil {
		p.logger.Warn("could not delete uploaded file", zap.String("file_id", fileID), zap.Error(err))
		return
	}
	p.logger.Debug("deleted uploaded file", zap.String("file_id", fileID))
}

func (p *Processor) externalError(op, filename string, err error) error {
	p.logger.Error("ocr service call failed",
		zap.String("op", op),
		zap.String("filename", filename),
		zap.Error(err),
	)
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(TypeServiceUnavailable, op+" timed out", err)
	}
	return NewError(TypeExternalService, op+" failed", err)
}
