// Package book reads and writes the mdBook preprocessor protocol.
//
// mdBook runs a preprocessor with a JSON array [context, book] on stdin and
// expects the processed book as JSON on stdout. Only chapter contents are
// interpreted; every other field is carried through unchanged so newer
// mdBook versions keep working.
package book

import (
	"encoding/json"
	"fmt"
	"io"
)

// Context is the first element of the preprocessor input.
type Context struct {
	Root          string          `json:"root"`
	Config        json.RawMessage `json:"config"`
	Renderer      string          `json:"renderer"`
	MdbookVersion string          `json:"mdbook_version"`
}

// ItemKind identifies the variant held by a BookItem.
type ItemKind int

const (
	KindChapter ItemKind = iota
	KindSeparator
	KindPartTitle
)

// BookItem is one entry of a book's table of contents.
type BookItem struct {
	Kind      ItemKind
	Chapter   *Chapter
	PartTitle string
}

// Chapter is a book chapter. Fields other than content and sub_items are
// kept as raw JSON.
type Chapter struct {
	Content  string
	SubItems []BookItem

	fields map[string]json.RawMessage
}

// Book is the second element of the preprocessor input.
type Book struct {
	Sections []BookItem

	fields map[string]json.RawMessage
}

// Name returns the chapter name, or "" if it is missing.
func (c *Chapter) Name() string {
	var name string
	if raw, ok := c.fields["name"]; ok {
		// Labels are for display only; a malformed name is reported as "".
		if err := json.Unmarshal(raw, &name); err != nil {
			return ""
		}
	}
	return name
}

// Path returns the chapter source path, or "" for draft chapters.
func (c *Chapter) Path() string {
	var path *string
	if raw, ok := c.fields["path"]; ok {
		if err := json.Unmarshal(raw, &path); err != nil {
			return ""
		}
	}
	if path == nil {
		return ""
	}
	return *path
}

// Chapters returns every chapter of the book, depth first, a chapter
// before its sub-chapters.
func (b *Book) Chapters() []*Chapter {
	var chapters []*Chapter
	b.Walk(func(c *Chapter) {
		chapters = append(chapters, c)
	})
	return chapters
}

// Walk calls fn for every chapter of the book.
func (b *Book) Walk(fn func(*Chapter)) {
	walkItems(b.Sections, fn)
}

func walkItems(items []BookItem, fn func(*Chapter)) {
	for i := range items {
		switch items[i].Kind {
		case KindChapter:
			fn(items[i].Chapter)
			walkItems(items[i].Chapter.SubItems, fn)
		case KindSeparator, KindPartTitle:
		}
	}
}

// ParseInput decodes the [context, book] pair mdBook writes to stdin.
func ParseInput(r io.Reader) (*Context, *Book, error) {
	var pair []json.RawMessage
	if err := json.NewDecoder(r).Decode(&pair); err != nil {
		return nil, nil, fmt.Errorf("decode preprocessor input: %w", err)
	}
	if len(pair) != 2 {
		return nil, nil, fmt.Errorf("decode preprocessor input: expected [context, book], got %d elements", len(pair))
	}
	var ctx Context
	if err := json.Unmarshal(pair[0], &ctx); err != nil {
		return nil, nil, fmt.Errorf("decode context: %w", err)
	}
	var b Book
	if err := json.Unmarshal(pair[1], &b); err != nil {
		return nil, nil, fmt.Errorf("decode book: %w", err)
	}
	return &ctx, &b, nil
}

// Write encodes the book for mdBook.
func Write(w io.Writer, b *Book) error {
	return json.NewEncoder(w).Encode(b)
}

func (b *Book) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &b.fields); err != nil {
		return err
	}
	if raw, ok := b.fields["sections"]; ok {
		if err := json.Unmarshal(raw, &b.Sections); err != nil {
			return fmt.Errorf("sections: %w", err)
		}
	}
	return nil
}

func (b Book) MarshalJSON() ([]byte, error) {
	return marshalFields(b.fields, map[string]any{
		"sections": nonNil(b.Sections),
	})
}

func (c *Chapter) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &c.fields); err != nil {
		return err
	}
	if raw, ok := c.fields["content"]; ok {
		if err := json.Unmarshal(raw, &c.Content); err != nil {
			return fmt.Errorf("content: %w", err)
		}
	}
	if raw, ok := c.fields["sub_items"]; ok {
		if err := json.Unmarshal(raw, &c.SubItems); err != nil {
			return fmt.Errorf("sub_items: %w", err)
		}
	}
	return nil
}

func (c Chapter) MarshalJSON() ([]byte, error) {
	return marshalFields(c.fields, map[string]any{
		"content":   c.Content,
		"sub_items": nonNil(c.SubItems),
	})
}

func (it *BookItem) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		if unit != "Separator" {
			return fmt.Errorf("unknown book item %q", unit)
		}
		*it = BookItem{Kind: KindSeparator}
		return nil
	}

	var variant map[string]json.RawMessage
	if err := json.Unmarshal(data, &variant); err != nil {
		return err
	}
	if len(variant) != 1 {
		return fmt.Errorf("book item: expected one variant, got %d", len(variant))
	}
	for name, raw := range variant {
		switch name {
		case "Chapter":
			var c Chapter
			if err := json.Unmarshal(raw, &c); err != nil {
				return fmt.Errorf("chapter: %w", err)
			}
			*it = BookItem{Kind: KindChapter, Chapter: &c}
		case "PartTitle":
			var title string
			if err := json.Unmarshal(raw, &title); err != nil {
				return fmt.Errorf("part title: %w", err)
			}
			*it = BookItem{Kind: KindPartTitle, PartTitle: title}
		case "Separator":
			*it = BookItem{Kind: KindSeparator}
		default:
			return fmt.Errorf("unknown book item %q", name)
		}
	}
	return nil
}

func (it BookItem) MarshalJSON() ([]byte, error) {
	switch it.Kind {
	case KindChapter:
		return json.Marshal(map[string]*Chapter{"Chapter": it.Chapter})
	case KindPartTitle:
		return json.Marshal(map[string]string{"PartTitle": it.PartTitle})
	case KindSeparator:
		return json.Marshal("Separator")
	default:
		return nil, fmt.Errorf("unknown book item kind %d", it.Kind)
	}
}

// marshalFields encodes raw with the values in set replacing its entries.
func marshalFields(raw map[string]json.RawMessage, set map[string]any) ([]byte, error) {
	out := make(map[string]any, len(raw)+len(set))
	for k, v := range raw {
		out[k] = v
	}
	for k, v := range set {
		out[k] = v
	}
	return json.Marshal(out)
}

func nonNil(items []BookItem) []BookItem {
	if items == nil {
		return []BookItem{}
	}
	return items
}
