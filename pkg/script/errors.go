package script

import (
	"errors"
	"fmt"
)

var (
	ErrFormat = errors.New("malformed script")
)

// FormatError points at the script line that could not be decoded.
type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("script line %d: %s", e.Line, e.Msg)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}

func formatErr(line int, format string, args ...any) error {
	return &FormatError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
