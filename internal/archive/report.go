package archive

import (
	"fmt"
	"io"

	"github.com/hyperjump/okikae/internal/models"
)

// WriteReport renders the human-readable replacement summary for one run:
// one line per input file in input order, then totals.
func WriteReport(w io.Writer, summary *models.BatchSummary) error {
	for _, o := range summary.Outcomes {
		var err error
		switch o.Status {
		case models.StatusSucceeded:
			_, err = fmt.Fprintf(w, "%s: %d replacement(s)\n", o.Filename, o.Count)
		case models.StatusSkipped:
			_, err = fmt.Fprintf(w, "%s: skipped (%s)\n", o.Filename, o.Error)
		case models.StatusFailed:
			_, err = fmt.Fprintf(w, "%s: error: %s\n", o.Filename, o.Error)
		}
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d file(s): %d archived, %d failed, %d skipped, %d replacement(s) total\n",
		len(summary.Outcomes), summary.Succeeded(), summary.Failed(), summary.Skipped(), summary.TotalReplacements())
	return err
}
