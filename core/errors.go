package core

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors (client input)
var (
	ErrValidation         = errors.New("validation failed")    // 400
	ErrInvalidRequestBody = errors.New("invalid request body") // 400
	ErrInvalidID          = errors.New("invalid id")           // 400
)

// Authentication errors
var (
	ErrMissingAuthHeader  = errors.New("missing authorization header") // 401
	ErrInvalidToken       = errors.New("invalid or expired token")     // 401
	ErrInvalidCredentials = errors.New("invalid email or password")    // 401
)

// Authorization errors
var (
	ErrForbidden = errors.New("insufficient permissions") // 403
)

// Resource errors
var (
	ErrUserNotFound    = errors.New("user not found")    // 404
	ErrProductNotFound = errors.New("product not found") // 404
	ErrOrderNotFound   = errors.New("order not found")   // 404

	ErrUserExists   = errors.New("user already exists")     // 409
	ErrReviewExists = errors.New("product already reviewed") // 409
)

// Infrastructure errors
var (
	ErrStorage = errors.New("storage failure") // 500
)

// Config errors (server-side configuration)
var (
	ErrDBAdapterRequired   = errors.New("database adapter is required") // 500
	ErrHTTPAdapterRequired = errors.New("adapter is required")          // 500
	ErrSecretRequired      = errors.New("secret is required")           // 500
	ErrSecretTooShort      = errors.New("secret too short")             // 500
)

// FieldViolation describes one failed rule on one input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in a payload.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError wraps a store fault so callers can match ErrStorage while the
// cause stays available for logging.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
