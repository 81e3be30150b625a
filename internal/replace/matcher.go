// Package replace provides the pattern matcher and per-format document
// transformation handlers for batch find & replace.
package replace

import (
	"strings"
	"unicode"

	"github.com/hyperjump/okikae/internal/models"
)

// Match substitutes all non-overlapping, leftmost-first occurrences of the
// request's find term in text and returns the rewritten text together with
// the number of substitutions performed. The find term is literal text, not
// a pattern. An identity replacement (find == replace) still counts
// occurrences. An empty find term matches nothing.
func Match(text string, req models.ReplacementRequest) (string, int) {
	if req.Find == "" {
		return text, 0
	}
	if req.CaseSensitive {
		n := strings.Count(text, req.Find)
		if n == 0 {
			return text, 0
		}
		return strings.ReplaceAll(text, req.Find, req.Replace), n
	}
	return foldReplace(text, req.Find, req.Replace)
}

// foldRune maps a rune to its locale-naive simple case fold. The
// upper-then-lower round trip also folds runes like the Kelvin sign that a
// plain ToLower would miss.
func foldRune(r rune) rune {
	return unicode.ToLower(unicode.ToUpper(r))
}

// foldReplace is the case-insensitive variant of Match. It scans rune-wise
// so that folding never desynchronizes byte offsets between the haystack and
// the needle.
func foldReplace(text, find, repl string) (string, int) {
	rt := []rune(text)
	rf := []rune(find)
	if len(rf) == 0 || len(rf) > len(rt) {
		return text, 0
	}
	folded := make([]rune, len(rt))
	for i, r := range rt {
		folded[i] = foldRune(r)
	}
	needle := make([]rune, len(rf))
	for i, r := range rf {
		needle[i] = foldRune(r)
	}

	var b strings.Builder
	count := 0
	i := 0
	for i < len(rt) {
		if i+len(needle) <= len(rt) && runesEqual(folded[i:i+len(needle)], needle) {
			b.WriteString(repl)
			i += len(needle)
			count++
			continue
		}
		b.WriteRune(rt[i])
		i++
	}
	if count == 0 {
		return text, 0
	}
	return b.String(), count
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
