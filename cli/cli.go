package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

// Config holds all the command-line flag values of the fmt command.
type Config struct {
	Buffer      bool
	Diff        bool
	Check       bool
	Clipboard   bool
	Revert      bool
	Redo        bool
	NoAnimation bool
	Verbose     bool
	Extensions  []string
	Book        string
	Marker      string
	IndentWidth int

	// Paths are the files and directories to format. Empty means the
	// content comes from stdin or the clipboard.
	Paths []string
}

// DefaultExtensions are the file extensions formatted when walking a
// directory without --extension.
var DefaultExtensions = []string{".md", ".markdown"}

// BindFlags defines the fmt flags on fs.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.Buffer, "buffer", "b", false, "Update buffers in Neovim without saving them to disk (changes are saved by default).")
	fs.BoolVarP(&c.Diff, "diff", "d", false, "Print a unified diff instead of writing files.")
	fs.BoolVar(&c.Check, "check", false, "Exit with an error if any file would be rewritten.")
	fs.BoolVarP(&c.Clipboard, "clipboard", "c", false, "Copy the result to the clipboard instead of printing it (stdin/clipboard input only).")
	fs.BoolVar(&c.NoAnimation, "no-animation", false, "Disable loading spinner and progress updates.")
	fs.StringSliceVarP(&c.Extensions, "extension", "e", []string{}, "File extensions to format when walking directories (default: md, markdown).")
	fs.StringVar(&c.Book, "book", "", "Path to book.toml (default: nearest book.toml above the working directory).")
	fs.StringVar(&c.Marker, "marker", "", "Meta token that opts a code block into alignment (default from book.toml, else 'align').")
	fs.IntVar(&c.IndentWidth, "indent-width", 0, "Spaces per nesting level (default from book.toml, else 3).")

	// Mutually exclusive history group
	fs.BoolVarP(&c.Revert, "revert", "r", false, "Revert the last formatting run.")
	fs.BoolVarP(&c.Redo, "redo", "R", false, "Redo the last reverted run.")
}

// Validate checks flag combinations and normalizes extensions.
func (c *Config) Validate() error {
	if c.Revert && c.Redo {
		return errors.New("--revert and --redo are mutually exclusive")
	}
	if (c.Revert || c.Redo) && (c.Diff || c.Check || c.Buffer) {
		return errors.New("--revert and --redo cannot be combined with --diff, --check or --buffer")
	}
	if c.Diff && c.Check {
		return errors.New("--diff and --check are mutually exclusive")
	}
	if c.Clipboard && len(c.Paths) > 0 {
		return errors.New("--clipboard only applies when reading from stdin or the clipboard")
	}
	if c.Buffer && len(c.Paths) == 0 {
		return errors.New("--buffer needs at least one path")
	}
	if c.IndentWidth < 0 {
		return fmt.Errorf("--indent-width must be positive, got %d", c.IndentWidth)
	}
	if strings.ContainsAny(c.Marker, " \t") {
		return fmt.Errorf("--marker %q must be a single word", c.Marker)
	}

	if len(c.Extensions) == 0 {
		c.Extensions = append([]string(nil), DefaultExtensions...)
	}
	for i, ext := range c.Extensions {
		if len(ext) > 0 && ext[0] != '.' {
			c.Extensions[i] = "." + ext
		}
	}
	return nil
}

// NewLogger returns the logger used on stderr. Timestamps are formatted
// as "HH:MM:SS.ms".
func NewLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}
