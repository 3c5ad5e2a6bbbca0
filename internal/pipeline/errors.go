package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrHeaderNotFound    = errors.New("header row not found")
	ErrMissingColumns    = errors.New("required columns missing")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// SourceError marks a file that must be skipped. The run continues with the next file.
type SourceError struct {
	File string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func IsSourceDefect(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
