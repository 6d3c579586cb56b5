// Package mdalign aligns the indentation of marked code blocks in
// Markdown documents.
//
// A fenced code block opts in by carrying the marker token (by default
// "align") in its info string:
//
//	```rust,noplaypen align
//	    fn main() {
//	            println!("hi");
//	    }
//	```
//
// Its content is parsed into an indentation tree and printed back with a
// uniform indent unit. Everything outside marked blocks is left untouched.
package mdalign

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/sokinpui/mdalign/cli"
	"github.com/sokinpui/mdalign/internal/align"
	"github.com/sokinpui/mdalign/internal/rewrite"
)

// Config for using mdalign as a library.
type Config struct {
	// Meta token that opts a block in. Empty means "align".
	Marker string
	// Spaces per nesting level. Zero means 3.
	IndentWidth int
	// Debug output. Nil discards it.
	Logger *log.Logger
}

// ParseError is returned when a document cannot be parsed; nothing is
// rewritten.
type ParseError = rewrite.ParseError

// Rewrite returns content with every marked code block aligned.
func Rewrite(content string, config Config) (string, error) {
	return rewrite.New(config.Marker, align.Indent(config.IndentWidth), config.Logger).Rewrite(content)
}

// Format aligns the Markdown files and directories in paths in place and
// records the run so it can be reverted with `mdalign fmt --revert`.
// It returns the affected paths by outcome.
func Format(ctx context.Context, paths []string, config Config) (map[string][]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths to format")
	}
	app, err := New(&cli.Config{
		Paths:       paths,
		Marker:      config.Marker,
		IndentWidth: config.IndentWidth,
	}, config.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mdalign app: %w", err)
	}

	summary, err := app.Execute(ctx)
	if err != nil {
		return nil, err
	}

	result := map[string][]string{
		"Modified":  summary.Modified,
		"Unchanged": summary.Unchanged,
		"Failed":    summary.Failed,
	}
	return result, nil
}
