package model

// FileChange is the planned rewrite of a single Markdown file.
type FileChange struct {
	Path     string
	Original string
	Content  string
	Blocks   int // number of aligned code blocks
}

// Changed reports whether the rewrite differs from the file on disk.
func (c FileChange) Changed() bool {
	return c.Original != c.Content
}

// Summary holds the results of an operation for display.
type Summary struct {
	Modified  []string
	Unchanged []string
	Failed    []string
	Message   string
}
