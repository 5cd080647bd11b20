// Package apperror defines the error taxonomy shared by the registry, the model
// layer and both transports, together with the policy deciding what a caller
// is allowed to see.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUnauthorized         = errors.New("you need to sign in to perform this operation")
	ErrForbidden            = errors.New("unauthorized user")
	ErrExchangeNotAvailable = errors.New("exchange not available")
	ErrMaxUsersReached      = errors.New("maximum number of users reached")
)

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid value for %q", e.Field)
	}
	return fmt.Sprintf("invalid value for %q: %s", e.Field, e.Reason)
}

// DecryptionError means a stored ciphertext could not be opened with the
// current secret.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return "decryption failed: " + e.Err.Error()
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// UnrecognizedCommandError is returned for method names outside the known set.
type UnrecognizedCommandError struct {
	Command string
}

func (e *UnrecognizedCommandError) Error() string {
	return fmt.Sprintf("unrecognized command %q", e.Command)
}

// UpstreamExchangeError wraps any failure raised by a vendor exchange call.
type UpstreamExchangeError struct {
	Method     string
	ExchangeID string
	Err        error
}

func (e *UpstreamExchangeError) Error() string {
	return fmt.Sprintf("%s.%s failed: %v", e.ExchangeID, e.Method, e.Err)
}

func (e *UpstreamExchangeError) Unwrap() error {
	return e.Err
}

// UserMessage renders err for an end user. Internal failures never leak detail.
func UserMessage(err error) string {
	var (
		validationErr   *ValidationError
		unrecognizedErr *UnrecognizedCommandError
		upstreamErr     *UpstreamExchangeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return fmt.Sprintf("Invalid %s. %s", validationErr.Field, capitalize(validationErr.Reason))
	case errors.As(err, &unrecognizedErr):
		return fmt.Sprintf("Unrecognized command %q. Use /help to list the available commands.", unrecognizedErr.Command)
	case errors.As(err, &upstreamErr):
		return fmt.Sprintf("The operation failed: %v", upstreamErr.Err)
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrUnauthorized):
		return "You need to sign in to perform this operation."
	case errors.Is(err, ErrForbidden):
		return "Unauthorized user."
	case errors.Is(err, ErrNotFound):
		return "The requested item was not found."
	case errors.Is(err, ErrExchangeNotAvailable):
		return "The requested exchange is not available."
	case errors.Is(err, ErrMaxUsersReached):
		return "Maximum number of users reached! Please try again later."
	default:
		return "An unexpected error has occurred. Please try again later."
	}
}

// HTTPStatus maps err onto the status code used by the HTTP façade.
func HTTPStatus(err error) int {
	var (
		validationErr   *ValidationError
		unrecognizedErr *UnrecognizedCommandError
		upstreamErr     *UpstreamExchangeError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &unrecognizedErr):
		return http.StatusNotFound
	case errors.As(err, &upstreamErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrExchangeNotAvailable):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrMaxUsersReached):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
