package parser

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a fatal parse failure.
type ErrorKind string

const (
	KindMissingColumns     ErrorKind = "missing_columns"
	KindCorruptInput       ErrorKind = "corrupt_input"
	KindUnsupportedContent ErrorKind = "unsupported_content_type"
	KindEmptyInput         ErrorKind = "empty_input"
)

// ParseError is returned when a statement cannot be parsed at all.
// Row is 1-based and zero when the failure is not tied to a row.
type ParseError struct {
	Kind   ErrorKind
	Row    int
	Field  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Row > 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (%s)", e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingColumnsError reports the logical columns that could not be found in
// a tabular statement header.
type MissingColumnsError struct {
	ParseError
	Missing []string
}

func newMissingColumnsError(missing []string) *MissingColumnsError {
	return &MissingColumnsError{
		ParseError: ParseError{
			Kind:   KindMissingColumns,
			Reason: "required columns not found: " + strings.Join(missing, ", "),
		},
		Missing: missing,
	}
}

// Unwrap exposes the embedded ParseError so errors.As finds either type.
func (e *MissingColumnsError) Unwrap() error { return &e.ParseError }

func corrupt(reason string, err error) *ParseError {
	return &ParseError{Kind: KindCorruptInput, Reason: reason, Err: err}
}

// UnsupportedContentTypeError is returned for content types the parser does
// not handle.
func UnsupportedContentTypeError(contentType string) *ParseError {
	return &ParseError{Kind: KindUnsupportedContent, Reason: fmt.Sprintf("unsupported content type %q", contentType)}
}

// Warning kinds.
const (
	WarnRowSkipped  = "row_skipped"
	WarnEmptyResult = "empty_result"
)

// Warning is a non-fatal problem found while parsing.
type Warning struct {
	Kind   string `json:"kind"`
	Row    int    `json:"row,omitempty"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	if w.Row > 0 {
		return fmt.Sprintf("%s: row %d %s %q: %s", w.Kind, w.Row, w.Field, w.Value, w.Reason)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Reason)
}
