package errors

import "errors"

var (
	ErrNotFound = errors.New("doctor record not found")

	// ErrMalformed marks a doctor record that exists but does not decode,
	// e.g. a slots_available field that is not an array.
	ErrMalformed = errors.New("doctor record is malformed")
)
