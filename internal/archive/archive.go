// Package archive packages successful batch outputs into a zip and renders
// the per-file report.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/okikae/internal/models"
)

// DefaultName is the filename offered for a download of the built archive.
const DefaultName = "modified_files.zip"

// Build returns a zip containing one entry per successful outcome, in
// summary order, under the original filenames. Failed and skipped files
// are absent: a failed file never contributes partial output.
func Build(summary *models.BatchSummary) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, summary); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the archive for summary to w.
func Write(w io.Writer, summary *models.BatchSummary) error {
	zw := zip.NewWriter(w)
	for _, outcome := range summary.Outcomes {
		if !outcome.Succeeded() {
			continue
		}
		fw, err := zw.Create(outcome.Filename)
		if err != nil {
			return fmt.Errorf("create archive entry %q: %w", outcome.Filename, err)
		}
		if _, err := fw.Write(outcome.Output); err != nil {
			return fmt.Errorf("write archive entry %q: %w", outcome.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// WriteFile writes the archive for summary to path.
func WriteFile(path string, summary *models.BatchSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	if err := Write(f, summary); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
