package rewrite

import (
	"errors"
	"strings"
	"testing"
)

const hello = `fn main(){println!("Hello, World")}`

func TestRewrite(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "root block",
			in:   "# Ceci est le titre\n\nCeci est un paragraphe\n\n```rust align\n    " + hello + "\n```\n\nfin\n",
			want: "# Ceci est le titre\n\nCeci est un paragraphe\n\n```rust align\n" + hello + "\n```\n\nfin\n",
		},
		{
			name: "quoted block",
			in:   "# Ceci est le titre\n\nCeci est un paragraphe\n\n> Début de citation\n> \n> ```rust align\n>     " + hello + "\n> ```\n> fin de citation\n\nfin\n",
			want: "# Ceci est le titre\n\nCeci est un paragraphe\n\n> Début de citation\n> \n> ```rust align\n> " + hello + "\n> ```\n> fin de citation\n\nfin\n",
		},
		{
			name: "no marker",
			in:   "# Ceci est le titre\n\nCeci est un paragraphe\n\n```rust\n    " + hello + "\n```\n\nfin\n",
			want: "# Ceci est le titre\n\nCeci est un paragraphe\n\n```rust\n    " + hello + "\n```\n\nfin\n",
		},
		{
			name: "marker absent from noplaypen meta",
			in:   "```rust,noplaypen\n    x\n```\n",
			want: "```rust,noplaypen\n    x\n```\n",
		},
		{
			name: "meta retained with marker",
			in:   "```rust,noplaypen   title=\"T\"  align\n  a\n    b\n```\n",
			want: "```rust,noplaypen title=\"T\"  align\na\n   b\n```\n",
		},
		{
			name: "nested structure",
			in:   "```go align\n\tfunc f() {\n\t\treturn\n\t}\n```\n",
			want: "```go align\nfunc f() {\n   return\n}\n```\n",
		},
		{
			name: "tilde fence kept",
			in:   "~~~~py align\n  if x:\n      y\n~~~~\n",
			want: "~~~~py align\nif x:\n   y\n~~~~\n",
		},
		{
			name: "list item",
			in:   "- ```c align\n      int x;\n  ```\n",
			want: "- ```c align\n  int x;\n  ```\n",
		},
		{
			name: "empty block",
			in:   "```rust align\n```\n",
			want: "```rust align\n```\n",
		},
		{
			name: "unclosed block at end of document",
			in:   "```rust align\n    x\n",
			want: "```rust align\nx\n```",
		},
		{
			name: "empty document",
			in:   "",
			want: "",
		},
	}

	e := New("", "", nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := e.Rewrite(tc.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("Rewrite mismatch\ngot:\n%q\nwant:\n%q", got, tc.want)
			}
		})
	}
}

func TestRewriteIdempotent(t *testing.T) {
	t.Parallel()
	docs := []string{
		"```rust align\n    fn a() {\n        b();\n    }\n```\n",
		"> ```rust align\n>     x\n> ```\n",
		"text\n\n```go align\nif x {\n\ty()\n}\n```\n\nmore\n",
	}
	e := New("", "", nil)
	for _, doc := range docs {
		once, err := e.Rewrite(doc)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := e.Rewrite(once)
		if err != nil {
			t.Fatal(err)
		}
		if once != twice {
			t.Errorf("not idempotent\nonce:  %q\ntwice: %q", once, twice)
		}
	}
}

func TestRewritePreservesSurroundingText(t *testing.T) {
	t.Parallel()
	before := "intro  \n\n"
	between := "\n\nmiddle\twith tabs\n\n"
	after := "\n\n   outro\n"
	doc := before + "```a align\n    x\n```" + between + "```b align\n  y\n```" + after

	got, err := New("", "", nil).Rewrite(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := before + "```a align\nx\n```" + between + "```b align\ny\n```" + after
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	edits, err := New("", "", nil).Plan(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(edits) != 2 {
		t.Fatalf("expected 2 edits, got %d", len(edits))
	}
	if edits[0].End > edits[1].Start {
		t.Fatalf("edits overlap: %+v", edits)
	}
}

func TestRewritePrefixOnEveryGeneratedLine(t *testing.T) {
	t.Parallel()
	doc := "> ```rust align\n>     a\n>         b\n>     c\n> ```\n"
	got, err := New("", "", nil).Rewrite(doc)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimSuffix(got, "\n"), "\n") {
		if !strings.HasPrefix(line, "> ") {
			t.Fatalf("line %q lost the quote prefix in %q", line, got)
		}
	}
	if want := "> ```rust align\n> a\n>    b\n> c\n> ```\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRewriteCustomMarkerAndIndent(t *testing.T) {
	t.Parallel()
	e := New("fmt", "  ", nil)
	got, err := e.Rewrite("```js fmt\nif (x) {\n    y()\n}\n```\n\n```js align\n    z\n```\n")
	if err != nil {
		t.Fatal(err)
	}
	want := "```js fmt\nif (x) {\n  y()\n}\n```\n\n```js align\n    z\n```\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRewriteParseError(t *testing.T) {
	t.Parallel()
	_, err := New("", "", nil).Rewrite("bad \xff utf8")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestRewriteKeepsNulBytes(t *testing.T) {
	t.Parallel()
	e := New("", "", nil)
	doc := "# Title\n\nsome\x00text\n\n```rust\n    fn main() {}\n```\n"
	got, err := e.Rewrite(doc)
	if err != nil {
		t.Fatal(err)
	}
	if got != doc {
		t.Fatalf("unmarked document changed: %q", got)
	}

	got, err = e.Rewrite("a\x00b\n\n```c align\n    x\n```\n")
	if err != nil {
		t.Fatal(err)
	}
	if want := "a\x00b\n\n```c align\nx\n```\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRewriteCRLF(t *testing.T) {
	t.Parallel()
	e := New("", "", nil)
	tests := map[string]string{
		"```c align\r\n    a\r\n      b\r\n```\r\n":        "```c align\r\na\r\n   b\r\n```\r\n",
		"> ```c align\r\n>     a\r\n>       b\r\n> ```\r\n": "> ```c align\r\n> a\r\n>    b\r\n> ```\r\n",
		"```c align\r\n  a\r\n":                             "```c align\r\na\r\n```",
	}
	for in, want := range tests {
		got, err := e.Rewrite(in)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Rewrite(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApply(t *testing.T) {
	t.Parallel()
	if got := Apply("unchanged", nil); got != "unchanged" {
		t.Errorf("Apply with no edits = %q", got)
	}
	got := Apply("0123456789", []Edit{{Start: 1, End: 3, Text: "ab"}, {Start: 5, End: 5, Text: "+"}, {Start: 8, End: 10, Text: ""}})
	if want := "0ab34+567"; got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestContinuationPrefix(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"":      "",
		"> ":    "> ",
		"> > ":  "> > ",
		"- ":    "  ",
		"> 1. ": ">    ",
		"\t":    "\t",
	}
	for in, want := range tests {
		if got := ContinuationPrefix(in); got != want {
			t.Errorf("ContinuationPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
