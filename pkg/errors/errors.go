package errors

import (
	"errors"
	"fmt"
)

// Kind is the machine-checkable category of an application error.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindCapacityExceeded  Kind = "CAPACITY_EXCEEDED"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindConflict          Kind = "CONFLICT"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindForbidden         Kind = "FORBIDDEN"
	KindInternal          Kind = "INTERNAL"
)

var (
	// JWT
	ErrInvalidSigningMethod = fmt.Errorf("invalid token signing method")
	ErrInvalidToken         = fmt.Errorf("invalid token")
	ErrTokenExpired         = fmt.Errorf("token expired")
	ErrTokenNotYetValid     = fmt.Errorf("token is not valid yet")
	ErrTokenIsNotAccess     = fmt.Errorf("token is not an access token")

	// Auth
	ErrEmptyAuthHeader   = fmt.Errorf("authorization header is missing")
	ErrInvalidAuthHeader = fmt.Errorf("invalid authorization header format")
	ErrUnauthorized      = fmt.Errorf("unauthorized")
	ErrForbidden         = fmt.Errorf("access denied")

	ErrNotFound = fmt.Errorf("record not found")
	ErrConflict = fmt.Errorf("record was modified concurrently")
)

// InvalidTransitionError reports a status change the state machine forbids.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot go from %s to %s", e.From, e.To)
}

// CapacityExceededError is returned when a job already holds the maximum
// number of photos of a type.
type CapacityExceededError struct {
	Type  string
	Limit int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("maximum %d %s photos allowed", e.Limit, e.Type)
}

type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func NewInvalidInputError(field, format string, args ...interface{}) error {
	return &InvalidInputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// HttpError carries an explicit status code and a user-facing message.
// Err and Context are only logged.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Context map[string]interface{}
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, context map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Context: context}
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	var (
		transitionErr *InvalidTransitionError
		capacityErr   *CapacityExceededError
		inputErr      *InvalidInputError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &transitionErr):
		return KindInvalidTransition
	case errors.As(err, &capacityErr):
		return KindCapacityExceeded
	case errors.As(err, &inputErr):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenNotYetValid),
		errors.Is(err, ErrTokenIsNotAccess),
		errors.Is(err, ErrInvalidSigningMethod),
		errors.Is(err, ErrEmptyAuthHeader),
		errors.Is(err, ErrInvalidAuthHeader):
		return KindUnauthorized
	}
	return KindInternal
}
