package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
)

// PreprocessorName is the key of the preprocessor table in book.toml.
const PreprocessorName = "align"

// DefaultIndentWidth is the number of spaces per nesting level.
const DefaultIndentWidth = 3

// Config is the [preprocessor.align] table.
type Config struct {
	Marker      string   `json:"marker" toml:"marker"`
	IndentWidth int      `json:"indent-width" toml:"indent-width"`
	Renderers   []string `json:"renderers" toml:"renderers"`
}

// DefaultConfig returns the configuration used when book.toml has no
// [preprocessor.align] table.
func DefaultConfig() Config {
	return Config{Marker: "align", IndentWidth: DefaultIndentWidth}
}

// Validate fills zero values with defaults and rejects invalid settings.
func (c *Config) Validate() error {
	def := DefaultConfig()
	c.Marker = strings.TrimSpace(c.Marker)
	if c.Marker == "" {
		c.Marker = def.Marker
	}
	if strings.ContainsFunc(c.Marker, unicode.IsSpace) {
		return fmt.Errorf("marker %q must be a single word", c.Marker)
	}
	switch {
	case c.IndentWidth == 0:
		c.IndentWidth = def.IndentWidth
	case c.IndentWidth < 0:
		return fmt.Errorf("indent-width must be positive, got %d", c.IndentWidth)
	}
	return nil
}

// SupportsRenderer reports whether the preprocessor should run for the
// named renderer. An empty renderer list supports every renderer.
func (c Config) SupportsRenderer(renderer string) bool {
	return len(c.Renderers) == 0 || slices.Contains(c.Renderers, renderer)
}

// ConfigFromContext extracts the preprocessor table from the book
// configuration mdBook passes in the context.
func ConfigFromContext(ctx *Context) (Config, error) {
	cfg := DefaultConfig()
	if len(ctx.Config) == 0 {
		return cfg, nil
	}
	var raw struct {
		Preprocessor map[string]json.RawMessage `json:"preprocessor"`
	}
	if err := json.Unmarshal(ctx.Config, &raw); err != nil {
		return cfg, fmt.Errorf("decode book config: %w", err)
	}
	if table, ok := raw.Preprocessor[PreprocessorName]; ok {
		if err := json.Unmarshal(table, &cfg); err != nil {
			return cfg, fmt.Errorf("decode [preprocessor.%s]: %w", PreprocessorName, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("[preprocessor.%s]: %w", PreprocessorName, err)
	}
	return cfg, nil
}

// FindConfig walks up from startDir looking for book.toml.
func FindConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "book.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadConfig reads the preprocessor table from a book.toml file.
func LoadConfig(path string) (Config, error) {
	var data struct {
		Preprocessor map[string]toml.Primitive `toml:"preprocessor"`
	}
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &data)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if meta.IsDefined("preprocessor", PreprocessorName) {
		if err := meta.PrimitiveDecode(data.Preprocessor[PreprocessorName], &cfg); err != nil {
			return cfg, fmt.Errorf("%s: [preprocessor.%s]: %w", path, PreprocessorName, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: [preprocessor.%s]: %w", path, PreprocessorName, err)
	}
	return cfg, nil
}

// LoadNearestConfig loads the book.toml closest to startDir, or the
// defaults when there is none.
func LoadNearestConfig(startDir string) (Config, string, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return DefaultConfig(), "", err
	}
	if !ok {
		return DefaultConfig(), "", nil
	}
	cfg, err := LoadConfig(path)
	return cfg, path, err
}
