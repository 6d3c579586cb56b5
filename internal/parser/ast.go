package parser

import (
	"bytes"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock represents a fenced code block located in markdown source.
type CodeBlock struct {
	// Start is the offset of the first fence character of the opening fence.
	Start int
	// End is the offset just past the closing fence, before its line
	// terminator. For an unclosed block it is the start of the first line
	// after the content.
	End int
	// Lang is the first word of the info string (e.g., "rust").
	Lang string
	// Meta is the rest of the info string, trimmed.
	Meta string
	// Content is the raw text inside the code block, container prefixes
	// such as "> " removed.
	Content string
	// Prefix is the text between the start of the opening fence line and
	// the fence itself (e.g., "> " inside a block quote).
	Prefix string
	// Fence is the opening fence run, e.g. "```" or "~~~~".
	Fence string
	// Closed is false when the block runs to the end of its container.
	Closed bool
}

// MalformedMeta reports whether the meta string cannot be split into tokens.
func (b CodeBlock) MalformedMeta() bool {
	return b.Meta != "" && !utf8.ValidString(b.Meta)
}

// HasMarker reports whether marker appears as a whitespace separated token
// of the meta string.
func (b CodeBlock) HasMarker(marker string) bool {
	if b.Meta == "" || b.MalformedMeta() {
		return false
	}
	return slices.Contains(strings.Fields(b.Meta), marker)
}

// Info returns the info string as lang and meta joined by one space.
func (b CodeBlock) Info() string {
	if b.Meta == "" {
		return b.Lang
	}
	return b.Lang + " " + b.Meta
}

// ExtractCodeBlocks uses a markdown AST to find all fenced code blocks
// that carry an info string, in document order.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fencedCodeBlock, ok := node.(*ast.FencedCodeBlock)
		if !ok || fencedCodeBlock.Info == nil {
			return ast.WalkContinue, nil
		}

		blocks = append(blocks, newCodeBlock(fencedCodeBlock, source))
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return blocks, nil
}

func newCodeBlock(node *ast.FencedCodeBlock, source []byte) CodeBlock {
	var block CodeBlock
	block.Lang, block.Meta = splitInfo(string(node.Info.Segment.Value(source)))

	infoStart := node.Info.Segment.Start
	lineStart := bytes.LastIndexByte(source[:infoStart], '\n') + 1
	fenceEnd := infoStart
	for fenceEnd > lineStart && isSpace(source[fenceEnd-1]) {
		fenceEnd--
	}
	fenceStart := fenceEnd
	if fenceEnd > lineStart {
		fenceChar := source[fenceEnd-1]
		for fenceStart > lineStart && source[fenceStart-1] == fenceChar {
			fenceStart--
		}
	}
	block.Start = fenceStart
	block.Prefix = string(source[lineStart:fenceStart])
	block.Fence = string(source[fenceStart:fenceEnd])

	var content bytes.Buffer
	next := nextLine(source, infoStart)
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		content.Write(line.Value(source))
	}
	if lines.Len() > 0 {
		next = nextLine(source, lines.At(lines.Len()-1).Start)
	}
	block.Content = content.String()

	block.End, block.Closed = closingFence(source, next, block.Fence, quoteDepth(block.Prefix))
	return block
}

// closingFence checks whether the line starting at pos closes a block
// opened with fence at the given block quote depth.
func closingFence(source []byte, pos int, fence string, depth int) (int, bool) {
	if pos >= len(source) || fence == "" {
		return pos, false
	}
	end := len(source)
	if i := bytes.IndexByte(source[pos:], '\n'); i >= 0 {
		end = pos + i
	}
	line := source[pos:end]

	i := 0
	for i < len(line) && (isSpace(line[i]) || line[i] == '>') {
		i++
	}
	if quoteDepth(string(line[:i])) != depth {
		return pos, false
	}
	run := 0
	for i+run < len(line) && line[i+run] == fence[0] {
		run++
	}
	if run < len(fence) || len(bytes.TrimRight(line[i+run:], " \t\r")) > 0 {
		return pos, false
	}
	return pos + len(bytes.TrimRight(line, " \t\r")), true
}

func splitInfo(info string) (lang, meta string) {
	info = strings.TrimSpace(info)
	i := strings.IndexAny(info, " \t")
	if i < 0 {
		return info, ""
	}
	return info[:i], strings.TrimSpace(info[i:])
}

// nextLine returns the offset of the line following the one containing pos.
func nextLine(source []byte, pos int) int {
	if pos >= len(source) {
		return len(source)
	}
	i := bytes.IndexByte(source[pos:], '\n')
	if i < 0 {
		return len(source)
	}
	return pos + i + 1
}

func quoteDepth(prefix string) int {
	return strings.Count(prefix, ">")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}
