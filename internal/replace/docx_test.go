package replace

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hyperjump/okikae/internal/models"
	"github.com/nguyenthenguyen/docx"
)

const emptyRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

func docxParagraphs(paragraphs []string) string {
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	return body.String()
}

func writeDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// minimalDocx returns minimal .docx zip bytes with word/document.xml
// containing the given paragraphs as <w:t> runs, plus the relationships
// part the format requires.
func minimalDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	return writeDocx(t, map[string]string{
		"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			docxParagraphs(paragraphs) + `</w:body></w:document>`,
		"word/_rels/document.xml.rels": emptyRels,
	})
}

// docxWithHeader is minimalDocx plus a one-run word/header1.xml part.
func docxWithHeader(t *testing.T, headerText string, paragraphs ...string) []byte {
	t.Helper()
	return writeDocx(t, map[string]string{
		"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			docxParagraphs(paragraphs) + `</w:body></w:document>`,
		"word/_rels/document.xml.rels": emptyRels,
		"word/header1.xml": `<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
			`<w:p><w:r><w:t>` + headerText + `</w:t></w:r></w:p></w:hdr>`,
	})
}

func docxPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open output zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(content)
	}
	t.Fatalf("part %s not found in output", name)
	return ""
}

func docxContent(t *testing.T, data []byte) string {
	t.Helper()
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reopen docx: %v", err)
	}
	defer r.Close()
	return r.Editable().GetContent()
}

func TestDOCXHandler_replacesBodyText(t *testing.T) {
	in := minimalDocx(t, "hello world", "more hello text")
	h := NewDOCXHandler()
	out, count, err := h.Transform(in, models.ReplacementRequest{Find: "hello", Replace: "hi", CaseSensitive: true})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	content := docxContent(t, out)
	if strings.Contains(content, "hello") {
		t.Errorf("find term still present: %s", content)
	}
	if !strings.Contains(content, "hi world") || !strings.Contains(content, "more hi text") {
		t.Errorf("replacement missing: %s", content)
	}
}

func TestDOCXHandler_caseInsensitiveVariants(t *testing.T) {
	in := minimalDocx(t, "Apple and apple and APPLE")
	h := NewDOCXHandler()
	out, count, err := h.Transform(in, models.ReplacementRequest{Find: "apple", Replace: "REPL"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	content := docxContent(t, out)
	for _, leftover := range []string{"Apple", "apple", "APPLE"} {
		if strings.Contains(content, leftover) {
			t.Errorf("variant %q still present: %s", leftover, content)
		}
	}
	if strings.Count(content, "REPL") != 3 {
		t.Errorf("replacements = %d, want 3: %s", strings.Count(content, "REPL"), content)
	}
}

func TestDOCXHandler_noMatchReturnsInputUnchanged(t *testing.T) {
	in := minimalDocx(t, "nothing to see")
	h := NewDOCXHandler()
	out, count, err := h.Transform(in, models.ReplacementRequest{Find: "absent", Replace: "x"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if !bytes.Equal(out, in) {
		t.Error("zero-match output should be byte-identical to input")
	}
}

func TestDOCXHandler_markupNeverMatched(t *testing.T) {
	// "w:t" appears in every tag; matching it must only hit run text.
	in := minimalDocx(t, "literal w:t text")
	h := NewDOCXHandler()
	_, count, err := h.Transform(in, models.ReplacementRequest{Find: "w:t", Replace: "X", CaseSensitive: true})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (run text only, not markup)", count)
	}
}

func TestDOCXHandler_headerMatchesCountedAndReplaced(t *testing.T) {
	in := docxWithHeader(t, "hello header", "plain body text")
	h := NewDOCXHandler()
	out, count, err := h.Transform(in, models.ReplacementRequest{Find: "hello", Replace: "hi", CaseSensitive: true})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (header occurrence counted)", count)
	}
	header := docxPart(t, out, "word/header1.xml")
	if strings.Contains(header, "hello") {
		t.Errorf("find term still present in header: %s", header)
	}
	if !strings.Contains(header, "hi header") {
		t.Errorf("replacement missing from header: %s", header)
	}
}

func TestDOCXHandler_notADocx(t *testing.T) {
	h := NewDOCXHandler()
	_, _, err := h.Transform([]byte("not a zip at all"), models.ReplacementRequest{Find: "x", Replace: "y"})
	if !errors.Is(err, models.ErrParseFailure) {
		t.Errorf("err = %v, want ErrParseFailure", err)
	}
}
