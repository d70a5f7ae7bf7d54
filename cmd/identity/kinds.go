package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput         = errors.New("invalid_input")
	ErrNotFound             = errors.New("not_found")
	ErrDuplicateEntry       = errors.New("duplicate_entry")
	ErrMissingRequiredField = errors.New("missing_required_field")
)

// Logical identifier field names used in FieldError.
const (
	FieldEmail       = "email"
	FieldUsername    = "username"
	FieldPhoneNumber = "phone_number"
)
