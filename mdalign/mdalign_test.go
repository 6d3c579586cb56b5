package mdalign_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sokinpui/mdalign/cli"
	"github.com/sokinpui/mdalign/internal/source"
	"github.com/sokinpui/mdalign/mdalign"
)

const (
	unaligned = "# Chapter\n\n```rust align\n    fn main() {\n        run();\n    }\n```\n"
	aligned   = "# Chapter\n\n```rust align\nfn main() {\n   run();\n}\n```\n"
)

// setupBook creates a book directory with one unaligned and one aligned
// chapter and returns its root.
func setupBook(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"book.toml":          "[book]\ntitle = \"T\"\n",
		"src/a.md":           unaligned,
		"src/b.md":           aligned,
		"src/notes.txt":      unaligned,
		"src/.drafts/c.md":   unaligned,
		"src/part/nested.md": strings.ReplaceAll(unaligned, "rust", "c"),
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func newApp(t *testing.T, root string, cfg *cli.Config) (*mdalign.App, *bytes.Buffer) {
	t.Helper()
	cfg.Book = filepath.Join(root, "book.toml")
	app, err := mdalign.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	app.SetOutput(&out)
	app.SetStateRoot(root)
	return app, &out
}

func TestFormatWritesAndReverts(t *testing.T) {
	root := setupBook(t)
	src := filepath.Join(root, "src")

	app, _ := newApp(t, root, &cli.Config{Paths: []string{src}})
	var mu sync.Mutex
	var lastTotal int
	app.SetProgressCallback(func(current, total int) {
		mu.Lock()
		lastTotal = total
		mu.Unlock()
	})
	summary, err := app.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Modified) != 2 || len(summary.Unchanged) != 1 || len(summary.Failed) != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if lastTotal != 3 {
		t.Errorf("progress total = %d, want 3", lastTotal)
	}
	if got := readFile(t, filepath.Join(src, "a.md")); got != aligned {
		t.Fatalf("a.md = %q", got)
	}
	if got := readFile(t, filepath.Join(src, "notes.txt")); got != unaligned {
		t.Fatalf("notes.txt must not be touched: %q", got)
	}
	if got := readFile(t, filepath.Join(src, ".drafts", "c.md")); got != unaligned {
		t.Fatalf("hidden directories must be skipped: %q", got)
	}

	revert, _ := newApp(t, root, &cli.Config{Revert: true})
	summary, err = revert.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Modified) != 2 {
		t.Fatalf("revert summary = %+v", summary)
	}
	if got := readFile(t, filepath.Join(src, "a.md")); got != unaligned {
		t.Fatalf("a.md after revert = %q", got)
	}

	redo, _ := newApp(t, root, &cli.Config{Redo: true})
	if _, err := redo.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, filepath.Join(src, "a.md")); got != aligned {
		t.Fatalf("a.md after redo = %q", got)
	}
}

func TestFormatCheck(t *testing.T) {
	root := setupBook(t)
	a := filepath.Join(root, "src", "a.md")
	b := filepath.Join(root, "src", "b.md")

	app, _ := newApp(t, root, &cli.Config{Check: true, Paths: []string{a}})
	if _, err := app.Execute(context.Background()); !errors.Is(err, mdalign.ErrUnaligned) {
		t.Fatalf("expected ErrUnaligned, got %v", err)
	}
	if got := readFile(t, a); got != unaligned {
		t.Fatal("--check must not write files")
	}

	app, _ = newApp(t, root, &cli.Config{Check: true, Paths: []string{b}})
	if _, err := app.Execute(context.Background()); err != nil {
		t.Fatalf("aligned file failed check: %v", err)
	}
}

func TestFormatDiff(t *testing.T) {
	root := setupBook(t)
	a := filepath.Join(root, "src", "a.md")

	app, out := newApp(t, root, &cli.Config{Diff: true, Paths: []string{a}})
	if _, err := app.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "-    fn main() {") || !strings.Contains(out.String(), "+fn main() {") {
		t.Fatalf("unexpected diff:\n%s", out.String())
	}
	if got := readFile(t, a); got != unaligned {
		t.Fatal("--diff must not write files")
	}
}

func TestFormatReportsUnparsableFiles(t *testing.T) {
	root := setupBook(t)
	bin := filepath.Join(root, "src", "bin.md")
	if err := os.WriteFile(bin, []byte("nul\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(root, "src", "bad.md")
	if err := os.WriteFile(bad, []byte("bad \xff"), 0o644); err != nil {
		t.Fatal(err)
	}

	app, _ := newApp(t, root, &cli.Config{Paths: []string{bad, bin, filepath.Join(root, "src", "a.md")}})
	summary, err := app.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Failed) != 2 || !strings.HasSuffix(summary.Failed[0], "bad.md") || !strings.HasSuffix(summary.Failed[1], "bin.md") {
		t.Fatalf("summary = %+v", summary)
	}
	if len(summary.Modified) != 1 {
		t.Fatalf("the valid file should still be aligned: %+v", summary)
	}
}

func TestFormatUsesBookConfig(t *testing.T) {
	root := setupBook(t)
	manifest := "[book]\ntitle = \"T\"\n\n[preprocessor.align]\nindent-width = 2\n"
	if err := os.WriteFile(filepath.Join(root, "book.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	a := filepath.Join(root, "src", "a.md")

	app, _ := newApp(t, root, &cli.Config{Paths: []string{a}})
	if _, err := app.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got, want := readFile(t, a), strings.Replace(aligned, "   run", "  run", 1); got != want {
		t.Fatalf("a.md = %q, want %q", got, want)
	}
}

func TestFilterMode(t *testing.T) {
	root := setupBook(t)
	app, out := newApp(t, root, &cli.Config{})
	app.SetSource(source.FromReader(strings.NewReader(unaligned)))

	if _, err := app.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if out.String() != aligned {
		t.Fatalf("stdout = %q", out.String())
	}
}

func TestFilterModeParseError(t *testing.T) {
	root := setupBook(t)
	app, out := newApp(t, root, &cli.Config{})
	app.SetSource(source.FromReader(strings.NewReader("bad \xff")))

	_, err := app.Execute(context.Background())
	var perr *mdalign.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("no output expected on error, got %q", out.String())
	}
}

func TestNewRejectsConflictingFlags(t *testing.T) {
	for _, cfg := range []*cli.Config{
		{Revert: true, Redo: true},
		{Diff: true, Check: true},
		{Revert: true, Diff: true},
		{Clipboard: true, Paths: []string{"x.md"}},
		{Buffer: true},
		{IndentWidth: -1},
	} {
		if _, err := mdalign.New(cfg, nil); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}
