package replace

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hyperjump/okikae/internal/models"
	"github.com/nguyenthenguyen/docx"
)

// wtText captures the inner text of <w:t> runs (with or without attributes).
// Counting against run text rather than the raw XML keeps tag names and
// attributes out of the occurrence count.
var wtText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// DOCXHandler rewrites matching text in Word documents: body runs plus
// headers and footers, all of which contribute to the occurrence count.
// Word markup, styles, and tables are preserved by the underlying library.
// Matches split across formatting runs are not found.
type DOCXHandler struct{}

// NewDOCXHandler returns a DOCX handler.
func NewDOCXHandler() *DOCXHandler { return &DOCXHandler{} }

// Ext implements Handler.
func (h *DOCXHandler) Ext() string { return ".docx" }

// Transform implements Handler. Case-insensitive mode replaces every casing
// variant of the find term that actually occurs in the document.
func (h *DOCXHandler) Transform(content []byte, req models.ReplacementRequest) ([]byte, int, error) {
	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open DOCX: %v", models.ErrParseFailure, err)
	}
	defer reader.Close()
	editable := reader.Editable()

	count := 0
	variants := make(map[string]struct{})
	countPart := func(part string) {
		for _, m := range wtText.FindAllStringSubmatch(part, -1) {
			text := xmlUnescaper.Replace(m[1])
			_, n := Match(text, req)
			count += n
			for _, v := range matchedVariants(text, req) {
				variants[v] = struct{}{}
			}
		}
	}
	countPart(editable.GetContent())
	hfParts, err := headerFooterParts(content)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read DOCX parts: %v", models.ErrParseFailure, err)
	}
	for _, part := range hfParts {
		countPart(part)
	}
	if count == 0 {
		return content, 0, nil
	}

	for variant := range variants {
		if err := editable.Replace(variant, req.Replace, -1); err != nil {
			return nil, 0, fmt.Errorf("replace in body: %w", err)
		}
		// Headers and footers are optional parts; a missing part is not an error.
		_ = editable.ReplaceHeader(variant, req.Replace)
		_ = editable.ReplaceFooter(variant, req.Replace)
	}

	var buf bytes.Buffer
	if err := editable.Write(&buf); err != nil {
		return nil, 0, fmt.Errorf("write DOCX: %w", err)
	}
	return buf.Bytes(), count, nil
}

// headerFooterParts returns the raw XML of the header and footer parts, which
// live outside the main document part the library exposes as content.
func headerFooterParts(content []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}
	var parts []string
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		if !strings.HasPrefix(f.Name, "word/header") && !strings.HasPrefix(f.Name, "word/footer") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		parts = append(parts, string(data))
	}
	return parts, nil
}

// matchedVariants returns the distinct casings of the find term present in
// text. In case-sensitive mode that is at most the term itself.
func matchedVariants(text string, req models.ReplacementRequest) []string {
	if req.CaseSensitive {
		if strings.Contains(text, req.Find) {
			return []string{req.Find}
		}
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	rt := []rune(text)
	rf := []rune(req.Find)
	if len(rf) == 0 || len(rf) > len(rt) {
		return nil
	}
	folded := make([]rune, len(rt))
	for i, r := range rt {
		folded[i] = foldRune(r)
	}
	needle := make([]rune, len(rf))
	for i, r := range rf {
		needle[i] = foldRune(r)
	}
	for i := 0; i+len(needle) <= len(rt); {
		if runesEqual(folded[i:i+len(needle)], needle) {
			v := string(rt[i : i+len(needle)])
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
			i += len(needle)
			continue
		}
		i++
	}
	return out
}
