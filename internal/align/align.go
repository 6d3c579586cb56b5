// Package align normalizes the indentation of a code block payload.
package align

import (
	"strings"

	"github.com/sokinpui/mdalign/internal/semindent"
)

// DefaultIndent is the unit used for each nesting level.
const DefaultIndent = "   "

// Indent returns an indentation unit of width spaces, or DefaultIndent
// when width is not positive.
func Indent(width int) string {
	if width <= 0 {
		return DefaultIndent
	}
	return strings.Repeat(" ", width)
}

// Align re-prints payload with every line prefixed by prefix and each
// nesting level indented by unit.
//
// When the whole payload sits one level deeper than its first line would
// suggest (the parsed structure is a single Subtext), that level is
// dropped.
func Align(prefix, payload, unit string) string {
	tree := semindent.Parse(payload)
	if len(tree) == 1 {
		if sub, ok := tree[0].(semindent.Subtext); ok {
			return semindent.Render(sub, prefix, unit)
		}
	}
	return semindent.Render(tree, prefix, unit)
}
