// Package identity holds the account model shared by the session lifecycle and its stores.
//
// It defines the canonical User shape, identifier normalization and the stable error kinds
// callers match with errors.Is: ErrNotFound, ErrDuplicateEntry, ErrMissingRequiredField and
// ErrInvalidInput.
package identity
