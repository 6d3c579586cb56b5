// Package diff renders the changes a formatting run would make.
package diff

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ContextLines is the number of unchanged lines shown around each hunk.
const ContextLines = 3

// filePathRegex extracts the file path from a '+++ b/...' line.
var filePathRegex = regexp.MustCompile(`(?m)^\+\+\+ b/(?P<path>.*?)(\s|$)`)

// Unified returns a unified diff from original to modified, labelled with
// a/path and b/path. Identical inputs give "".
func Unified(path, original, modified string) (string, error) {
	if original == modified {
		return "", nil
	}
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(original),
		B:        lines(modified),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  ContextLines,
	})
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", path, err)
	}
	return out, nil
}

// ExtractPathFromDiff finds the file path in a unified diff produced by
// Unified.
func ExtractPathFromDiff(content string) string {
	match := filePathRegex.FindStringSubmatch(content)
	if len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	return ""
}

// lines splits s keeping terminators. A missing final newline is marked
// the way diff(1) does so it is not reported as a change of its own.
func lines(s string) []string {
	var out []string
	for line := range strings.Lines(s) {
		if !strings.HasSuffix(line, "\n") {
			line += "\n\\ No newline at end of file\n"
		}
		out = append(out, line)
	}
	return out
}
