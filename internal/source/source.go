package source

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// SourceProvider determines where filter-mode content comes from and
// where the result goes.
type SourceProvider struct {
	stdin io.Reader
	piped bool

	readClipboard  func() (string, error)
	writeClipboard func(string) error
}

// New creates a SourceProvider reading from the process stdin.
func New() *SourceProvider {
	stat, err := os.Stdin.Stat()
	piped := err == nil && (stat.Mode()&os.ModeCharDevice) == 0
	return &SourceProvider{
		stdin:          os.Stdin,
		piped:          piped,
		readClipboard:  clipboard.ReadAll,
		writeClipboard: clipboard.WriteAll,
	}
}

// FromReader creates a SourceProvider that always reads r.
func FromReader(r io.Reader) *SourceProvider {
	sp := New()
	sp.stdin = r
	sp.piped = true
	return sp
}

// Origin names where GetContent reads from.
func (sp *SourceProvider) Origin() string {
	if sp.piped {
		return "stdin"
	}
	return "clipboard"
}

// GetContent retrieves content from stdin (if piped) or the clipboard.
func (sp *SourceProvider) GetContent() (string, error) {
	if sp.piped {
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	content, err := sp.readClipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return content, nil
}

// CopyToClipboard replaces the clipboard content.
func (sp *SourceProvider) CopyToClipboard(content string) error {
	if err := sp.writeClipboard(content); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}
	return nil
}
