package service

import "errors"

var (
	ErrMissingCredential = errors.New("missing api key")
	ErrInvalidCredential = errors.New("invalid api key")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("chat not found")
	ErrUpstream          = errors.New("upstream request failed")
)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(message string) error {
	return &ValidationError{Message: message}
}
