package replace

import (
	"sort"
	"strings"

	"github.com/hyperjump/okikae/internal/models"
)

// Handler transforms one document of a specific format. Transform returns
// the serialized modified document, the number of substitutions performed,
// and an error wrapping models.ErrParseFailure when the content does not
// conform to the handler's format. The input slice is never mutated.
type Handler interface {
	// Ext returns the extension this handler serves, with leading dot.
	Ext() string
	Transform(content []byte, req models.ReplacementRequest) ([]byte, int, error)
}

// Registry maps declared file extensions to handlers. Selection is by
// extension only; content is never sniffed.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns a registry with the default format handlers
// registered: PDF, CSV, XML, XLSX, DOCX, and the opaque passthrough for
// SAS transport (.xpt) files.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.Register(NewPDFHandler())
	r.Register(NewCSVHandler())
	r.Register(NewXMLHandler())
	r.Register(NewXLSXHandler())
	r.Register(NewDOCXHandler())
	r.Register(NewOpaqueHandler(".xpt"))
	return r
}

// Register adds or replaces the handler for its extension.
func (r *Registry) Register(h Handler) {
	r.handlers[normalizeExt(h.Ext())] = h
}

// ForExtension returns the handler for ext (with or without leading dot,
// any case), or false when the extension is unsupported.
func (r *Registry) ForExtension(ext string) (Handler, bool) {
	h, ok := r.handlers[normalizeExt(ext)]
	return h, ok
}

// Supported returns the registered extensions, sorted, with leading dots.
func (r *Registry) Supported() []string {
	exts := make([]string, 0, len(r.handlers))
	for ext := range r.handlers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ext
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
