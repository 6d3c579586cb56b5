package rewrite

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidUTF8 reports a document that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid utf-8 input")

// ParseError reports a document that could not be parsed. Nothing is
// rewritten when it is returned.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse document: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// validate returns an error if src cannot be handled as markdown text.
func validate(src []byte) error {
	if !utf8.Valid(src) {
		return ErrInvalidUTF8
	}
	return nil
}
