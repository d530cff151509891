// Package storage defines the result store used to keep combined OCR documents
// between the upload and the results/download requests.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/ocrdown/internal/models"
)

// ErrNotFound is returned by Get when no result exists for the ID.
var ErrNotFound = errors.New("result not found")

// ResultStore persists results by ID. Implementations are safe for concurrent use.
type ResultStore interface {
	Put(ctx context.Context, result *models.Result) error
	Get(ctx context.Context, id string) (*models.Result, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
