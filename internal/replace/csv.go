package replace

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/okikae/internal/models"
)

// CSVHandler rewrites matching text in textual cell values, column by
// column. Columns whose body cells are all numeric are passed through
// unmodified and never matched. The grid shape (row count, column order,
// headers) is preserved exactly.
type CSVHandler struct{}

// NewCSVHandler returns a CSV handler.
func NewCSVHandler() *CSVHandler { return &CSVHandler{} }

// Ext implements Handler.
func (h *CSVHandler) Ext() string { return ".csv" }

// Transform implements Handler. The first record is treated as the header
// row and is never rewritten.
func (h *CSVHandler) Transform(content []byte, req models.ReplacementRequest) ([]byte, int, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read CSV: %v", models.ErrParseFailure, err)
	}
	if len(records) == 0 {
		return nil, 0, fmt.Errorf("%w: empty CSV", models.ErrParseFailure)
	}

	header := records[0]
	body := records[1:]
	textual := classifyColumns(header, body)

	count := 0
	for _, row := range body {
		for col := range row {
			if col >= len(textual) || !textual[col] {
				continue
			}
			modified, n := Match(row[col], req)
			row[col] = modified
			count += n
		}
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(records); err != nil {
		return nil, 0, fmt.Errorf("write CSV: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, 0, fmt.Errorf("write CSV: %w", err)
	}
	return buf.Bytes(), count, nil
}

// classifyColumns tags each column as textual or non-textual once per run.
// A column is non-textual when it has at least one non-empty body cell and
// every non-empty body cell parses as a number.
func classifyColumns(header []string, body [][]string) []bool {
	textual := make([]bool, len(header))
	for col := range header {
		nonEmpty := 0
		numeric := 0
		for _, row := range body {
			if col >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}
			nonEmpty++
			if _, err := strconv.ParseFloat(cell, 64); err == nil {
				numeric++
			}
		}
		textual[col] = nonEmpty == 0 || numeric < nonEmpty
	}
	return textual
}
