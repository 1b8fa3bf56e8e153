package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors forming the error taxonomy of the core. The HTTP
// boundary maps them to status codes; existence checks are always
// performed before ownership checks, so ErrNotFound wins over
// ErrForbidden when both would apply.
var (
	// ErrNotFound signals that a referenced resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized signals a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden signals an authenticated requester without entitlement.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError carries a field-to-message mapping for input that
// failed validation, such as a duplicate username or a blank password.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Error implements the error interface, rendering fields in stable order.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, message := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", field, message))
	}
	sort.Strings(parts)

	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var validationErr *ValidationError
	ok := errors.As(err, &validationErr)

	return validationErr, ok
}
