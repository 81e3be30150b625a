// Package storage persists run history: one record per batch run with its
// per-file outcomes.
package storage

import (
	"context"

	"github.com/hyperjump/okikae/internal/models"
)

// Storage is the run-history store.
type Storage interface {
	// SaveRun persists the summary. A missing ID is assigned before insert.
	SaveRun(ctx context.Context, summary *models.BatchSummary) error
	// GetRun returns one run with its outcomes in input order.
	GetRun(ctx context.Context, id string) (*models.BatchSummary, error)
	// ListRuns returns the most recent runs, newest first, with outcomes.
	ListRuns(ctx context.Context, limit int) ([]*models.BatchSummary, error)
	// CountRuns returns the total number of stored runs.
	CountRuns(ctx context.Context) (int64, error)
	Close() error
}
