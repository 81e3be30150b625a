package replace

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hyperjump/okikae/internal/models"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pdfFontSize is the fixed size used when reinserting rewritten block text.
// The original font, size, and wrapping of a rewritten block are not
// recovered; this is a documented fidelity limit of the PDF rewrite.
const pdfFontSize = 11

// textBlock is one layout block: a maximal contiguous text run on a page
// with its bounding rectangle in PDF user-space points (origin bottom-left).
type textBlock struct {
	page                   int
	text                   string
	minX, minY, maxX, maxY float64
}

// PDFHandler rewrites matching text inside a PDF while keeping untouched
// blocks byte-identical. Pages are decomposed into layout blocks from the
// positioned text runs; a block with matches is whited out and its rewritten
// text stamped back at the block origin in Helvetica at a fixed size.
// Image-only content carries no text runs and is never matched.
type PDFHandler struct{}

// NewPDFHandler returns a PDF handler.
func NewPDFHandler() *PDFHandler { return &PDFHandler{} }

// Ext implements Handler.
func (h *PDFHandler) Ext() string { return ".pdf" }

// Transform implements Handler. When no block matches, the input bytes are
// returned unchanged so the whole document stays pixel-identical.
func (h *PDFHandler) Transform(content []byte, req models.ReplacementRequest) ([]byte, int, error) {
	blocks, err := pdfBlocks(content)
	if err != nil {
		return nil, 0, err
	}

	count := 0
	stamps := make(map[int][]*model.Watermark)
	for _, b := range blocks {
		modified, n := Match(b.text, req)
		if n == 0 {
			continue
		}
		count += n
		wm, err := blockStamp(modified, b)
		if err != nil {
			return nil, 0, fmt.Errorf("build stamp for page %d: %w", b.page, err)
		}
		stamps[b.page] = append(stamps[b.page], wm)
	}
	if count == 0 {
		return content, 0, nil
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	var buf bytes.Buffer
	if err := api.AddWatermarksSliceMap(bytes.NewReader(content), &buf, stamps, conf); err != nil {
		return nil, 0, fmt.Errorf("%w: rewrite PDF: %v", models.ErrParseFailure, err)
	}
	return buf.Bytes(), count, nil
}

// blockStamp builds the redact-and-reinsert stamp for one rewritten block:
// opaque white background over the block area, black Helvetica text anchored
// at the block's bottom-left corner.
func blockStamp(text string, b textBlock) (*model.Watermark, error) {
	desc := fmt.Sprintf(
		"font:Helvetica, points:%d, scale:1 abs, rot:0, pos:bl, off:%.2f %.2f, fillc:#000000, bgcol:#ffffff, margins:1, op:1",
		pdfFontSize, b.minX, b.minY,
	)
	return api.TextWatermark(text, desc, true, false, types.POINTS)
}

// pdfBlocks parses content and returns the layout blocks of every page.
// The underlying reader panics on some malformed inputs, so parsing is
// fenced and any panic surfaces as a parse failure.
func pdfBlocks(content []byte) (blocks []textBlock, err error) {
	defer func() {
		if r := recover(); r != nil {
			blocks = nil
			err = fmt.Errorf("%w: parse PDF: %v", models.ErrParseFailure, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse PDF: %v", models.ErrParseFailure, err)
	}
	for pageNr := 1; pageNr <= reader.NumPage(); pageNr++ {
		page := reader.Page(pageNr)
		if page.V.IsNull() {
			continue
		}
		blocks = append(blocks, pageBlocks(pageNr, page.Content().Text)...)
	}
	return blocks, nil
}

// pageBlocks groups the page's positioned text runs into lines by vertical
// proximity, then merges adjacent lines into blocks. Runs arrive in content
// order, which tracks reading order for the documents this tool targets.
func pageBlocks(pageNr int, texts []pdf.Text) []textBlock {
	if len(texts) == 0 {
		return nil
	}

	type line struct {
		y, size                float64
		minX, minY, maxX, maxY float64
		parts                  []string
		endX                   float64
	}

	var lines []*line
	var cur *line
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = pdfFontSize
		}
		if cur == nil || abs(t.Y-cur.y) > size/2 {
			cur = &line{
				y: t.Y, size: size,
				minX: t.X, minY: t.Y, maxX: t.X + t.W, maxY: t.Y + size,
				parts: []string{t.S}, endX: t.X + t.W,
			}
			lines = append(lines, cur)
			continue
		}
		// Same line: insert a space across visible horizontal gaps.
		if t.X-cur.endX > size/4 && !strings.HasSuffix(cur.parts[len(cur.parts)-1], " ") {
			cur.parts = append(cur.parts, " ")
		}
		cur.parts = append(cur.parts, t.S)
		cur.endX = t.X + t.W
		cur.minX = min(cur.minX, t.X)
		cur.minY = min(cur.minY, t.Y)
		cur.maxX = max(cur.maxX, t.X+t.W)
		cur.maxY = max(cur.maxY, t.Y+size)
	}

	var blocks []textBlock
	var b *textBlock
	var lastLine *line
	for _, l := range lines {
		text := strings.Join(l.parts, "")
		if b != nil && lastLine != nil && lastLine.y-l.y > 0 && lastLine.y-l.y < l.size*1.8 {
			b.text += "\n" + text
			b.minX = min(b.minX, l.minX)
			b.minY = min(b.minY, l.minY)
			b.maxX = max(b.maxX, l.maxX)
			b.maxY = max(b.maxY, l.maxY)
		} else {
			blocks = append(blocks, textBlock{})
			b = &blocks[len(blocks)-1]
			*b = textBlock{page: pageNr, text: text, minX: l.minX, minY: l.minY, maxX: l.maxX, maxY: l.maxY}
		}
		lastLine = l
	}
	return blocks
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
