// Package semindent recovers the block structure of text from its
// indentation and prints it back with a uniform indentation unit.
//
// Indentation is compared as literal whitespace prefixes, never as column
// widths, so a tab and four spaces are different levels. Lines whose
// indentation does not extend any open level fall back to the nearest
// level they do extend; parsing never fails.
package semindent

import (
	"iter"
	"strings"
	"unicode"
)

// TokenKind identifies a structural token.
type TokenKind uint8

const (
	// TokenIndent opens a deeper indentation level.
	TokenIndent TokenKind = iota
	// TokenLine carries one line with its leading whitespace removed.
	TokenLine
	// TokenDedent closes the innermost open level.
	TokenDedent
)

func (k TokenKind) String() string {
	switch k {
	case TokenIndent:
		return "Indent"
	case TokenLine:
		return "Line"
	case TokenDedent:
		return "Dedent"
	default:
		return "Unknown"
	}
}

// Token is one element of the stream produced by Tokenize.
// Text is only set for TokenLine.
type Token struct {
	Kind TokenKind
	Text string
}

// Element is either a Line or a Subtext.
type Element interface {
	isElement()
}

// Line is a single line of de-indented text.
type Line string

// Subtext is a run of lines one indentation level deeper than its parent.
type Subtext []Element

func (Line) isElement()    {}
func (Subtext) isElement() {}

// Text is the top level of a parsed structure.
type Text []Element

// Tokenize turns text into a stream of Indent, Line and Dedent tokens.
//
// Blank lines produce an empty Line and never open or close a level.
func Tokenize(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		indents := []string{""}
		for line := range lines(text) {
			content := strings.TrimLeftFunc(line, unicode.IsSpace)
			if content == "" {
				if !yield(Token{Kind: TokenLine}) {
					return
				}
				continue
			}
			indent := line[:len(line)-len(content)]
			top := indents[len(indents)-1]

			switch {
			case indent == top:
			case strings.HasPrefix(indent, top):
				indents = append(indents, indent)
				if !yield(Token{Kind: TokenIndent}) {
					return
				}
			default:
				// The stack is a chain of prefixes, so keeping the entries
				// that still prefix indent is the same as popping until one
				// does. "" always survives.
				kept := indents[:0]
				for _, prefix := range indents {
					if strings.HasPrefix(indent, prefix) {
						kept = append(kept, prefix)
					}
				}
				dedents := len(indents) - len(kept)
				indents = kept
				for range dedents {
					if !yield(Token{Kind: TokenDedent}) {
						return
					}
				}
				if indent != indents[len(indents)-1] {
					indents = append(indents, indent)
					if !yield(Token{Kind: TokenIndent}) {
						return
					}
				}
			}
			if !yield(Token{Kind: TokenLine, Text: content}) {
				return
			}
		}
	}
}

// Build consumes tokens and returns the structure they describe.
// An Indent left open at the end of the stream is closed implicitly.
func Build(tokens iter.Seq[Token]) Text {
	next, stop := iter.Pull(tokens)
	defer stop()
	return Text(build(next))
}

func build(next func() (Token, bool)) []Element {
	var elems []Element
	for {
		tok, ok := next()
		if !ok {
			return elems
		}
		switch tok.Kind {
		case TokenLine:
			elems = append(elems, Line(tok.Text))
		case TokenIndent:
			elems = append(elems, Subtext(build(next)))
		case TokenDedent:
			return elems
		}
	}
}

// Parse is Build(Tokenize(text)).
func Parse(text string) Text {
	return Build(Tokenize(text))
}

// Render prints elems, prefixing every line with prefix plus one inc per
// nesting level. Each line is terminated by "\n".
func Render(elems []Element, prefix, inc string) string {
	var b strings.Builder
	render(&b, elems, prefix, inc)
	return b.String()
}

func render(b *strings.Builder, elems []Element, prefix, inc string) {
	for _, e := range elems {
		switch e := e.(type) {
		case Line:
			b.WriteString(prefix)
			b.WriteString(string(e))
			b.WriteByte('\n')
		case Subtext:
			render(b, e, prefix+inc, inc)
		}
	}
}

// lines yields the lines of text without their terminators. A final
// terminator does not start an extra empty line, and a "\r" before "\n"
// is dropped.
func lines(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for line := range strings.Lines(text) {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			if !yield(line) {
				return
			}
		}
	}
}
