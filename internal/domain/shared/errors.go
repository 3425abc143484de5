package shared

import "errors"

// DomainError is a business rule violation with a stable machine-readable code.
// The HTTP layer maps codes to status codes.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is compares codes, so errors.Is(WrapDomainError("NOT_FOUND", ...), ErrNotFound) holds
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	return errors.As(target, &de) && de.Code == e.Code
}

// NewDomainError creates a domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WrapDomainError creates a domain error with an underlying cause
func WrapDomainError(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)
