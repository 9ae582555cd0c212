package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by stores, services and handlers.  The HTTP layer
// translates them to status codes in one place (handler.ErrorHandler).
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateSlug      = errors.New("slug already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")

	// ErrInvalidRefreshToken is the only refresh failure callers see.  The
	// finer-grained values below wrap it so errors.Is matches all of them.
	ErrInvalidRefreshToken  = errors.New("invalid or expired refresh token")
	ErrRefreshTokenNotFound = fmt.Errorf("%w: not found", ErrInvalidRefreshToken)
	ErrRefreshTokenExpired  = fmt.Errorf("%w: expired", ErrInvalidRefreshToken)
)

// FieldError is a single field-level complaint rendered in the response
// envelope's errors array.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input.  Message is the envelope
// message; Fields lists the individual problems (may be empty).
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(message, field, detail string) *ValidationError {
	ve := &ValidationError{Message: message}
	if field != "" {
		ve.Fields = []FieldError{{Field: field, Message: detail}}
	}
	return ve
}
