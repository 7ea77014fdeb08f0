package errors

import "errors"

var (
	ErrNotFound = errors.New("user record not found")

	ErrEmailTaken = errors.New("email already registered")

	ErrMalformed = errors.New("user record is malformed")
)
