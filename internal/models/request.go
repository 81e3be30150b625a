// Package models defines core data structures for replacement requests, documents, and batch outcomes.
package models

import "fmt"

// ReplacementRequest is the find/replace configuration for one batch run.
// It is immutable for the duration of the run.
type ReplacementRequest struct {
	Find          string `json:"find" yaml:"find"`
	Replace       string `json:"replace" yaml:"replace"`
	CaseSensitive bool   `json:"case_sensitive" yaml:"case_sensitive"`
}

// Validate checks the request preconditions. An empty find term is a
// configuration error; handlers are never invoked with one.
func (r *ReplacementRequest) Validate() error {
	if r.Find == "" {
		return fmt.Errorf("%w: find term must not be empty", ErrConfiguration)
	}
	return nil
}

// SourceDocument is one named input file with its raw bytes. The format is
// taken from the filename extension, never from the content.
type SourceDocument struct {
	Name    string `json:"name"`
	Content []byte `json:"-"`
}
