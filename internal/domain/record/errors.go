package record

import "fmt"

// InputError reports an unusable input: a missing directory, a directory with
// no clinical documents, or invalid arguments. Always fatal.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// NewInputError builds an InputError from a format string.
func NewInputError(format string, args ...any) *InputError {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// ParseError reports a document that could not be parsed. Fatal for the
// summary document under fail-fast; otherwise the document is skipped.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractionError reports a failure to extract a required value from a valid
// document. The field extractors substitute defaults instead of raising, so
// this is reserved for stricter validation modes.
type ExtractionError struct {
	Section string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("[%s] %v", e.Section, e.Err)
	}
	return e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// OutputError reports that the output destination could not be written.
// Always fatal.
type OutputError struct {
	Err error
}

func (e *OutputError) Error() string { return e.Err.Error() }

func (e *OutputError) Unwrap() error { return e.Err }
