package errors

import "errors"

var ErrNotFound = errors.New("chat session not found")
