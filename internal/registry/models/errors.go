package models

import "errors"

// Rejection reasons. The registration engine returns these wrapped in a coded
// domain error, so errors.Is identifies the exact rule a call violated.
var (
	ErrUnauthorized       = errors.New("origin may not create records")
	ErrNoSigner           = errors.New("call carries no signer")
	ErrIDMissing          = errors.New("id is required")
	ErrIDTooLong          = errors.New("id is too long")
	ErrInvalidText        = errors.New("field must be UTF-8 text without NUL bytes")
	ErrVersionMissing     = errors.New("version is required")
	ErrVersionTooLong     = errors.New("version is too long")
	ErrTooManyProperties  = errors.New("too many properties")
	ErrInvalidSubject     = errors.New("property subject is too long")
	ErrInvalidName        = errors.New("property name is too long")
	ErrInvalidDescription = errors.New("property description is too long")
	ErrOwnerMissing       = errors.New("owner is required")
	ErrIDAlreadyExists    = errors.New("id is already registered")
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrNoSigner, "no_signer"},
	{ErrIDMissing, "id_missing"},
	{ErrIDTooLong, "id_too_long"},
	{ErrInvalidText, "invalid_text"},
	{ErrVersionMissing, "version_missing"},
	{ErrVersionTooLong, "version_too_long"},
	{ErrTooManyProperties, "too_many_properties"},
	{ErrInvalidSubject, "invalid_subject"},
	{ErrInvalidName, "invalid_name"},
	{ErrInvalidDescription, "invalid_description"},
	{ErrOwnerMissing, "owner_missing"},
	{ErrIDAlreadyExists, "id_already_exists"},
}

// ReasonOf returns the short label of the rejection reason found in err's chain,
// or "internal" when err carries none. Used as a metrics label and in responses.
func ReasonOf(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "internal"
}
