package privilege

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat is returned when a string does not follow the privilege grammar.
var ErrInvalidFormat = errors.New("invalid privilege format")

// FormatError carries the rejected input and the reason it was rejected.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %q", ErrInvalidFormat, e.Input)
	}
	return fmt.Sprintf("%v: %q: %s", ErrInvalidFormat, e.Input, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrInvalidFormat }
