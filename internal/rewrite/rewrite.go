// Package rewrite aligns marked code blocks inside markdown documents.
//
// A document is scanned once, an edit is planned for every fenced code
// block whose meta string carries the marker, and the edits are spliced
// into the original text in a single pass. Text outside the edited ranges
// is preserved byte for byte.
package rewrite

import (
	"cmp"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/sokinpui/mdalign/internal/align"
	"github.com/sokinpui/mdalign/internal/parser"
)

// DefaultMarker is the meta token that opts a code block into alignment.
const DefaultMarker = "align"

// Edit replaces original[Start:End] with Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Apply splices edits into original. Edits must be sorted by Start and
// must not overlap. An empty list returns original unchanged.
func Apply(original string, edits []Edit) string {
	if len(edits) == 0 {
		return original
	}
	var b strings.Builder
	b.Grow(len(original))
	cursor := 0
	for _, e := range edits {
		b.WriteString(original[cursor:e.Start])
		b.WriteString(e.Text)
		cursor = e.End
	}
	b.WriteString(original[cursor:])
	return b.String()
}

// Engine rewrites documents. The zero value is not usable; use New.
// An Engine holds no per-document state and may be shared between
// goroutines.
type Engine struct {
	Marker string
	Indent string
	Logger *log.Logger
}

// New returns an Engine. Empty marker or indent fall back to the defaults,
// and a nil logger discards output.
func New(marker, indent string, logger *log.Logger) *Engine {
	if marker == "" {
		marker = DefaultMarker
	}
	if indent == "" {
		indent = align.DefaultIndent
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{Marker: marker, Indent: indent, Logger: logger}
}

// Rewrite returns document with every marked block aligned.
func (e *Engine) Rewrite(document string) (string, error) {
	edits, err := e.Plan(document)
	if err != nil {
		return "", err
	}
	return Apply(document, edits), nil
}

// Plan returns the edits Rewrite would apply, sorted by start offset.
func (e *Engine) Plan(document string) ([]Edit, error) {
	src := []byte(document)
	if err := validate(src); err != nil {
		return nil, &ParseError{Err: err}
	}
	blocks, err := parser.ExtractCodeBlocks(src)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	var edits []Edit
	for _, block := range blocks {
		if !block.HasMarker(e.Marker) {
			continue
		}
		edits = append(edits, Edit{
			Start: block.Start,
			End:   block.End,
			Text:  e.replacement(block, lineEnding(document, block.Start), block.End < len(document)),
		})
		e.Logger.Debug("aligning code block", "offset", block.Start, "lang", block.Lang)
	}
	slices.SortStableFunc(edits, func(a, b Edit) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return edits, nil
}

// replacement rebuilds a fenced block around the aligned payload. Every
// generated line ends with eol.
func (e *Engine) replacement(block parser.CodeBlock, eol string, followed bool) string {
	prefix := ContinuationPrefix(block.Prefix)
	payload := align.Align(prefix, block.Content, e.Indent)
	if eol != "\n" {
		payload = strings.ReplaceAll(payload, "\n", eol)
	}

	var b strings.Builder
	b.WriteString(block.Fence)
	b.WriteString(block.Info())
	b.WriteString(eol)
	b.WriteString(payload)
	b.WriteString(prefix)
	b.WriteString(block.Fence)
	if !block.Closed && followed {
		b.WriteString(eol)
	}
	return b.String()
}

// lineEnding returns the terminator of the line containing offset, "\r\n"
// or "\n".
func lineEnding(document string, offset int) string {
	i := strings.IndexByte(document[offset:], '\n')
	if i > 0 && document[offset+i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// ContinuationPrefix returns the prefix to repeat on the lines following an
// opening fence. Block quote markers and whitespace are kept; anything
// else, such as a list marker, becomes a space.
func ContinuationPrefix(prefix string) string {
	return strings.Map(func(r rune) rune {
		if r == '>' || r == ' ' || r == '\t' {
			return r
		}
		return ' '
	}, prefix)
}
