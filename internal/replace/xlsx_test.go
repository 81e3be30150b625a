package replace

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hyperjump/okikae/internal/models"
	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.Bytes()
}

func TestXLSXHandler_replacesStringCells(t *testing.T) {
	in := workbookBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "project status")
		f.SetCellValue("Sheet1", "A2", "status unknown")
		f.SetCellValue("Sheet1", "B2", 42)
	})
	h := NewXLSXHandler()
	out, count, err := h.Transform(in, models.ReplacementRequest{Find: "status", Replace: "state", CaseSensitive: true})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()
	if got, _ := f.GetCellValue("Sheet1", "A1"); got != "project state" {
		t.Errorf("A1 = %q", got)
	}
	if got, _ := f.GetCellValue("Sheet1", "A2"); got != "state unknown" {
		t.Errorf("A2 = %q", got)
	}
	if got, _ := f.GetCellValue("Sheet1", "B2"); got != "42" {
		t.Errorf("B2 = %q, numeric cell must be preserved", got)
	}
}

func TestXLSXHandler_numericCellNeverMatched(t *testing.T) {
	in := workbookBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", 4242)
	})
	h := NewXLSXHandler()
	_, count, err := h.Transform(in, models.ReplacementRequest{Find: "42", Replace: "X", CaseSensitive: true})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 for numeric cell", count)
	}
}

func TestXLSXHandler_caseInsensitiveAcrossSheets(t *testing.T) {
	in := workbookBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "Apple")
		_, _ = f.NewSheet("Extra")
		f.SetCellValue("Extra", "C3", "apple pie")
	})
	h := NewXLSXHandler()
	out, count, err := h.Transform(in, models.ReplacementRequest{Find: "apple", Replace: "REPL"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) != 2 {
		t.Errorf("sheet set changed: %v", sheets)
	}
	if got, _ := f.GetCellValue("Extra", "C3"); got != "REPL pie" {
		t.Errorf("Extra!C3 = %q", got)
	}
}

func TestXLSXHandler_notAWorkbook(t *testing.T) {
	h := NewXLSXHandler()
	_, _, err := h.Transform([]byte("definitely not a zip"), models.ReplacementRequest{Find: "x", Replace: "y"})
	if !errors.Is(err, models.ErrParseFailure) {
		t.Errorf("err = %v, want ErrParseFailure", err)
	}
}
