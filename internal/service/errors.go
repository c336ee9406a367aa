package service

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned by Login when the email or password does not match.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationError reports a missing or malformed field in a request payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func missingField(name string) error {
	return &ValidationError{Field: name, Message: fmt.Sprintf("missing required field: %s", name)}
}

func invalidField(name string) error {
	return &ValidationError{Field: name, Message: fmt.Sprintf("invalid value for field: %s", name)}
}

// ConflictError reports an operation that would violate a uniqueness rule, such as a
// second administrator or a duplicate email address.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
