package replace

import "github.com/hyperjump/okikae/internal/models"

// OpaqueHandler is the passthrough for formats with no text-extraction
// strategy, e.g. SAS transport (.xpt) files. The output is byte-identical
// to the input and the occurrence count is always zero. This is a declared
// capability limit, not a failure: the file still lands in the archive.
type OpaqueHandler struct {
	ext string
}

// NewOpaqueHandler returns a passthrough handler for the given extension.
func NewOpaqueHandler(ext string) *OpaqueHandler { return &OpaqueHandler{ext: ext} }

// Ext implements Handler.
func (h *OpaqueHandler) Ext() string { return h.ext }

// Transform implements Handler.
func (h *OpaqueHandler) Transform(content []byte, _ models.ReplacementRequest) ([]byte, int, error) {
	return content, 0, nil
}
