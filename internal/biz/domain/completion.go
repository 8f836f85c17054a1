package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// CompletionErrorKind classifies failures of the completion backend
type CompletionErrorKind string

const (
	CompletionTimeout   CompletionErrorKind = "timeout"
	CompletionProvider  CompletionErrorKind = "provider"
	CompletionMalformed CompletionErrorKind = "malformed"
)

// CompletionError is returned when no usable reply could be produced
type CompletionError struct {
	Kind    CompletionErrorKind
	Attempt int // 1 for the first call, 2 for the truncation retry
	Err     error
}

func (e *CompletionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("completion %s (attempt %d)", e.Kind, e.Attempt)
	}
	return fmt.Sprintf("completion %s (attempt %d): %v", e.Kind, e.Attempt, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// truncationMinLength is the length above which a reply without terminal
// punctuation is treated as cut off.
const truncationMinLength = 100

// LooksTruncated reports whether a reply was probably cut off by the token limit
func LooksTruncated(text string) bool {
	if strings.HasSuffix(text, "...") || strings.HasSuffix(text, "…") {
		return true
	}
	if utf8.RuneCountInString(text) <= truncationMinLength {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	switch last {
	case '.', '!', '?', ':':
		return false
	}
	return true
}

// ErrEmptyCompletion is returned by backends whose reply carried no text
var ErrEmptyCompletion = errors.New("empty completion")
