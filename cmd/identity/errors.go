package identity

import (
	"errors"
	"fmt"
)

// OpError is a typed operation error with a stable Op + Kind contract for callers/tests.
// Msg may include human-readable context; it never includes secrets.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// FieldError reports a policy failure on one identifier field.
// Kind is ErrDuplicateEntry or ErrMissingRequiredField; Field is one of the Field* names.
type FieldError struct {
	Op    string
	Field string
	Kind  error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Field)
}

func (e FieldError) Unwrap() error { return e.Kind }

// NotFoundError reports a missing row.
type NotFoundError struct {
	Op       string
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %v", e.Op, ErrNotFound)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrNotFound, e.Resource)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

// Duplicate builds a FieldError of kind ErrDuplicateEntry.
func Duplicate(op, field string) error {
	return FieldError{Op: op, Field: field, Kind: ErrDuplicateEntry}
}

// Missing builds a FieldError of kind ErrMissingRequiredField.
func Missing(op, field string) error {
	return FieldError{Op: op, Field: field, Kind: ErrMissingRequiredField}
}

// IsDuplicate reports whether err represents ErrDuplicateEntry.
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicateEntry) }

// IsMissingField reports whether err represents ErrMissingRequiredField.
func IsMissingField(err error) bool { return errors.Is(err, ErrMissingRequiredField) }

// IsNotFound reports whether err represents ErrNotFound (including NotFoundError).
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err represents ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// FieldOf returns the field named by a FieldError in err's chain.
func FieldOf(err error) (string, bool) {
	var fe FieldError
	if errors.As(err, &fe) {
		return fe.Field, true
	}
	return "", false
}
