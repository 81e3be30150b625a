package models

import (
	"errors"
	"time"
)

// Error kinds for batch processing. Per-file errors wrap ErrParseFailure or
// ErrUnsupportedFormat; ErrConfiguration is batch-level and prevents any
// processing from starting.
var (
	ErrParseFailure      = errors.New("parse failure")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrConfiguration     = errors.New("configuration error")
)

// OutcomeStatus is the terminal state of one processed file.
type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusFailed    OutcomeStatus = "failed"
	StatusSkipped   OutcomeStatus = "skipped"
)

// Outcome is the result of processing a single file. Exactly one outcome
// exists per input file. Output holds the serialized modified document for
// successful files only; it is never set for failed or skipped files.
type Outcome struct {
	Filename string        `json:"filename"`
	Status   OutcomeStatus `json:"status"`
	Count    int           `json:"count"`
	Error    string        `json:"error,omitempty"`
	Output   []byte        `json:"-"`
}

// Succeeded reports whether the file was transformed and belongs in the archive.
func (o *Outcome) Succeeded() bool { return o.Status == StatusSucceeded }

// BatchSummary is the ordered per-file report for one run. Outcomes preserve
// input order regardless of completion order.
type BatchSummary struct {
	ID        string             `json:"id,omitempty"`
	Request   ReplacementRequest `json:"request"`
	Outcomes  []*Outcome         `json:"outcomes"`
	CreatedAt time.Time          `json:"created_at"`
}

// TotalReplacements returns the sum of counts over successful outcomes.
func (s *BatchSummary) TotalReplacements() int {
	total := 0
	for _, o := range s.Outcomes {
		if o.Succeeded() {
			total += o.Count
		}
	}
	return total
}

// Succeeded returns the number of successful outcomes.
func (s *BatchSummary) Succeeded() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == StatusSucceeded {
			n++
		}
	}
	return n
}

// Failed returns the number of failed outcomes.
func (s *BatchSummary) Failed() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Skipped returns the number of outcomes skipped for unsupported extensions.
func (s *BatchSummary) Skipped() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == StatusSkipped {
			n++
		}
	}
	return n
}
