package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// PathResolver turns command-line arguments into the Markdown files to
// format.
type PathResolver struct {
	extensions []string
}

// NewPathResolver creates a PathResolver that keeps files with one of the
// given extensions when walking directories. Extensions carry their dot.
func NewPathResolver(extensions []string) *PathResolver {
	return &PathResolver{extensions: extensions}
}

// Resolve returns the absolute, de-duplicated and sorted list of files
// named by paths. Directories are walked recursively, skipping hidden
// ones; files named explicitly are kept whatever their extension.
func (r *PathResolver) Resolve(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if _, ok := seen[path]; !ok {
			seen[path] = struct{}{}
			files = append(files, path)
		}
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path '%s': %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d iofs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != abs && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if r.matches(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk '%s': %w", p, err)
		}
	}
	slices.Sort(files)
	return files, nil
}

func (r *PathResolver) matches(path string) bool {
	return slices.Contains(r.extensions, strings.ToLower(filepath.Ext(path)))
}

// GetFileSHA256 returns the hex SHA-256 of the file at path.
func GetFileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashContent(string(data)), nil
}

// HashContent returns the hex SHA-256 of content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// WriteFile replaces the content of an existing file, keeping its mode.
// The new content is written to a temporary file in the same directory
// and renamed over the original.
func WriteFile(path, content string) error {
	mode := iofs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Relativize converts absolute paths to paths relative to the current
// working directory for cleaner display. Paths that cannot be made
// relative are returned unchanged.
func Relativize(absPaths []string) []string {
	wd, err := os.Getwd()
	if err != nil {
		return absPaths
	}
	relPaths := make([]string, len(absPaths))
	for i, p := range absPaths {
		rel, err := filepath.Rel(wd, p)
		if err != nil {
			relPaths[i] = p
		} else {
			relPaths[i] = rel
		}
	}
	return relPaths
}
