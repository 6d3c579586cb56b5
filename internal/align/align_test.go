package align

import (
	"strings"
	"testing"
)

func TestAlign(t *testing.T) {
	t.Parallel()
	const hello = `fn main(){println!("Hello, World")}`
	tests := []struct {
		name    string
		prefix  string
		payload string
		want    string
	}{
		{
			name:    "single wrapped line",
			payload: "    " + hello + "\n",
			want:    hello + "\n",
		},
		{
			name:    "single wrapped line in a quote",
			prefix:  "> ",
			payload: "    " + hello + "\n",
			want:    "> " + hello + "\n",
		},
		{
			name:    "uniformly indented block",
			payload: "    fn main() {\n        body();\n    }\n",
			want:    "fn main() {\n   body();\n}\n",
		},
		{
			name:    "already aligned",
			payload: "fn main() {\n   body();\n}\n",
			want:    "fn main() {\n   body();\n}\n",
		},
		{
			name:    "two space source",
			payload: "a:\n  b:\n    c: 1\n  d: 2\n",
			want:    "a:\n   b:\n      c: 1\n   d: 2\n",
		},
		{
			name:    "trailing blank line stays inside the wrapper",
			payload: "  x\n\n",
			want:    "x\n\n",
		},
		{
			name:    "empty",
			payload: "",
			want:    "",
		},
		{
			name:    "two top level subtexts are not unwrapped",
			payload: "   a\n b\n",
			want:    "   a\n   b\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Align(tc.prefix, tc.payload, DefaultIndent); got != tc.want {
				t.Fatalf("Align(%q, %q)\ngot:  %q\nwant: %q", tc.prefix, tc.payload, got, tc.want)
			}
		})
	}
}

func TestAlignIdempotent(t *testing.T) {
	t.Parallel()
	payloads := []string{
		"if x {\n    y()\n}\n",
		"    a\n        b\n    c\n",
		"a\n\tb\n\t\tc\n",
		"one line\n",
	}
	for _, p := range payloads {
		once := Align("", p, DefaultIndent)
		twice := Align("", once, DefaultIndent)
		if once != twice {
			t.Errorf("not idempotent for %q\nonce:  %q\ntwice: %q", p, once, twice)
		}
	}
}

func TestAlignPrefixOnEveryLine(t *testing.T) {
	t.Parallel()
	out := Align("> > ", "a\n  b\n    c\nd\n", DefaultIndent)
	for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
		if !strings.HasPrefix(line, "> > ") {
			t.Fatalf("line %q lost its prefix", line)
		}
	}
}

func TestIndent(t *testing.T) {
	t.Parallel()
	if got := Indent(0); got != DefaultIndent {
		t.Errorf("Indent(0) = %q", got)
	}
	if got := Indent(2); got != "  " {
		t.Errorf("Indent(2) = %q", got)
	}
}
