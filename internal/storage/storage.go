// Package storage persists the embedding index and the review history.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kensa/internal/models"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("review run not found")

// HistoryStore records review runs.
type HistoryStore interface {
	RecordRun(ctx context.Context, run *models.ReviewRun) error
	GetRun(ctx context.Context, id string) (*models.ReviewRun, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*models.ReviewRun, error)
	CountRuns(ctx context.Context) (int64, error)
	Close() error
}
