package replace

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/hyperjump/okikae/internal/models"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// XMLHandler rewrites matching text within element text content,
// depth-first over the whole tree. Tag names, attribute values, comments,
// and processing instructions are never matched or modified.
type XMLHandler struct{}

// NewXMLHandler returns an XML handler.
func NewXMLHandler() *XMLHandler { return &XMLHandler{} }

// Ext implements Handler.
func (h *XMLHandler) Ext() string { return ".xml" }

// Transform implements Handler. Output always carries an XML declaration;
// one is prepended when the input had none.
func (h *XMLHandler) Transform(content []byte, req models.ReplacementRequest) ([]byte, int, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: parse XML: %v", models.ErrParseFailure, err)
	}

	count := rewriteElement(doc, req)

	out := doc.OutputXML(false)
	if !hasDeclaration(doc) {
		out = xmlDeclaration + "\n" + out
	}
	return []byte(out), count, nil
}

// rewriteElement rewrites the direct text children of n and recurses into
// element children. Every text node is matched, including whitespace-only
// nodes, so a literal whitespace find term behaves like any other.
// Recursion depth is bounded only by document depth; well-formed XML has
// no cycles.
func rewriteElement(n *xmlquery.Node, req models.ReplacementRequest) int {
	count := 0
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.TextNode:
			modified, c := Match(child.Data, req)
			child.Data = modified
			count += c
		case xmlquery.ElementNode:
			count += rewriteElement(child, req)
		}
	}
	return count
}

func hasDeclaration(doc *xmlquery.Node) bool {
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.DeclarationNode {
			return true
		}
	}
	return false
}
