// Package batch runs a replacement request over a set of documents,
// isolating per-file failures so one bad file never aborts the run.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperjump/okikae/internal/models"
	"github.com/hyperjump/okikae/internal/replace"
	"go.uber.org/zap"
)

// Orchestrator dispatches each document to the handler selected by its
// declared extension and collects one outcome per input.
type Orchestrator struct {
	registry *replace.Registry
	workers  int
	logger   *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a logger for per-file debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithWorkers sets the number of files processed concurrently. Values below
// two keep the run sequential. Per-file work shares no mutable state, so
// parallelism does not change any outcome.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) { o.workers = n }
}

// New returns an orchestrator using the given handler registry.
func New(registry *replace.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{registry: registry, workers: 1}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the handler registry backing this orchestrator.
func (o *Orchestrator) Registry() *replace.Registry { return o.registry }

// Run processes every document and returns the summary, ordered by input
// order regardless of completion order. It returns an error only for
// batch-level configuration problems (no inputs, empty find term) or
// context cancellation; per-file failures are recorded in the summary.
func (o *Orchestrator) Run(ctx context.Context, req models.ReplacementRequest, docs []*models.SourceDocument) (*models.BatchSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no input files", models.ErrConfiguration)
	}

	outcomes := make([]*models.Outcome, len(docs))
	if o.workers > 1 {
		if err := o.runParallel(ctx, req, docs, outcomes); err != nil {
			return nil, err
		}
	} else {
		for i, doc := range docs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = o.processOne(req, doc)
		}
	}

	summary := &models.BatchSummary{
		Request:   req,
		Outcomes:  outcomes,
		CreatedAt: time.Now().UTC(),
	}
	if o.logger != nil {
		o.logger.Info("batch finished",
			zap.Int("files", len(docs)),
			zap.Int("succeeded", summary.Succeeded()),
			zap.Int("failed", summary.Failed()),
			zap.Int("skipped", summary.Skipped()),
			zap.Int("replacements", summary.TotalReplacements()),
		)
	}
	return summary, nil
}

// runParallel fans the inputs out to a fixed worker pool. Each worker
// writes only its own outcome slots, so the slice needs no locking; input
// order is preserved by position.
func (o *Orchestrator) runParallel(ctx context.Context, req models.ReplacementRequest, docs []*models.SourceDocument, outcomes []*models.Outcome) error {
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = o.processOne(req, docs[i])
			}
		}()
	}

	var cancelled error
	for i := range docs {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
		case jobs <- i:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()
	return cancelled
}

// processOne takes a document through its full state machine:
// pending, dispatched, then exactly one of succeeded, failed, or skipped.
func (o *Orchestrator) processOne(req models.ReplacementRequest, doc *models.SourceDocument) *models.Outcome {
	ext := filepath.Ext(doc.Name)
	handler, ok := o.registry.ForExtension(ext)
	if !ok {
		if o.logger != nil {
			o.logger.Debug("unsupported format", zap.String("file", doc.Name), zap.String("ext", ext))
		}
		return &models.Outcome{
			Filename: doc.Name,
			Status:   models.StatusSkipped,
			Error:    fmt.Sprintf("%v: %s", models.ErrUnsupportedFormat, ext),
		}
	}

	output, count, err := handler.Transform(doc.Content, req)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("transform failed", zap.String("file", doc.Name), zap.Error(err))
		}
		return &models.Outcome{
			Filename: doc.Name,
			Status:   models.StatusFailed,
			Error:    err.Error(),
		}
	}
	if o.logger != nil {
		o.logger.Debug("transform succeeded", zap.String("file", doc.Name), zap.Int("count", count))
	}
	return &models.Outcome{
		Filename: doc.Name,
		Status:   models.StatusSucceeded,
		Count:    count,
		Output:   output,
	}
}
