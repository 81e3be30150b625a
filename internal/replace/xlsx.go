package replace

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/hyperjump/okikae/internal/models"
	"github.com/xuri/excelize/v2"
)

// XLSXHandler rewrites matching text in string-typed cells across all
// sheets of a workbook. Numeric, boolean, formula, and date cells are never
// matched; workbook structure, styles, and sheet order survive the
// excelize round trip.
type XLSXHandler struct{}

// NewXLSXHandler returns an XLSX handler.
func NewXLSXHandler() *XLSXHandler { return &XLSXHandler{} }

// Ext implements Handler.
func (h *XLSXHandler) Ext() string { return ".xlsx" }

// Transform implements Handler.
func (h *XLSXHandler) Transform(content []byte, req models.ReplacementRequest) ([]byte, int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open workbook: %v", models.ErrParseFailure, err)
	}
	defer f.Close()

	count := 0
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: read sheet %q: %v", models.ErrParseFailure, sheet, err)
		}
		for ri, row := range rows {
			for ci, value := range row {
				if value == "" {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(ci+1, ri+1)
				if err != nil {
					return nil, 0, fmt.Errorf("cell name (%d,%d): %w", ci+1, ri+1, err)
				}
				if !isStringCell(f, sheet, cell, value) {
					continue
				}
				modified, n := Match(value, req)
				if n == 0 {
					continue
				}
				if err := f.SetCellStr(sheet, cell, modified); err != nil {
					return nil, 0, fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
				}
				count += n
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, 0, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), count, nil
}

// isStringCell reports whether the cell holds string content (shared or
// inline). Writers commonly omit the type attribute for numbers, so an
// untyped cell counts as a string only when its value does not parse as one.
func isStringCell(f *excelize.File, sheet, cell, value string) bool {
	ct, err := f.GetCellType(sheet, cell)
	if err != nil {
		return false
	}
	switch ct {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return true
	case excelize.CellTypeUnset:
		_, err := strconv.ParseFloat(value, 64)
		return err != nil
	default:
		return false
	}
}
