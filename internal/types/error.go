package types

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error kinds. Services wrap these so handlers can map them with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrDependency      = errors.New("dependency failure")
)

// CustomError is the error shape returned to API clients
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Client-facing messages for failures whose cause stays in the logs
const (
	dependencyMessage = "service temporarily unavailable"
	internalMessage   = "internal server error"
)

// kindError carries a client-facing message and the kind it belongs to. cause, when set,
// is the underlying failure and is never sent to clients.
type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *kindError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

func newKind(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Unauthenticated reports a missing, invalid or expired identity
func Unauthenticated(format string, args ...any) error {
	return newKind(ErrUnauthenticated, format, args...)
}

// Forbidden reports an authenticated user acting outside their rights
func Forbidden(format string, args ...any) error {
	return newKind(ErrForbidden, format, args...)
}

// NotFound reports that the named resource does not exist
func NotFound(resource string) error {
	return newKind(ErrNotFound, "%s not found", resource)
}

// Conflict reports a duplicate, such as an email already in use
func Conflict(format string, args ...any) error {
	return newKind(ErrConflict, format, args...)
}

// Validation reports malformed input
func Validation(format string, args ...any) error {
	return newKind(ErrValidation, format, args...)
}

// Dependency wraps a store or transport failure
func Dependency(err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: ErrDependency, msg: dependencyMessage, cause: err}
}

// ToCustomError maps any error onto the wire shape. Unknown errors become a 500.
// Dependency and unknown failures get a generic message; the caller logs err.
func ToCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return &CustomError{Code: fe.Code, Message: fe.Message, Type: typeForStatus(fe.Code)}
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return &CustomError{Code: fiber.StatusUnauthorized, Message: err.Error(), Type: "unauthenticated"}
	case errors.Is(err, ErrForbidden):
		return &CustomError{Code: fiber.StatusForbidden, Message: err.Error(), Type: "forbidden"}
	case errors.Is(err, ErrNotFound):
		return &CustomError{Code: fiber.StatusNotFound, Message: err.Error(), Type: "not_found"}
	case errors.Is(err, ErrConflict):
		return &CustomError{Code: fiber.StatusConflict, Message: err.Error(), Type: "conflict"}
	case errors.Is(err, ErrValidation):
		return &CustomError{Code: fiber.StatusBadRequest, Message: err.Error(), Type: "validation"}
	case errors.Is(err, ErrDependency):
		return &CustomError{Code: fiber.StatusServiceUnavailable, Message: dependencyMessage, Type: "dependency"}
	}
	return &CustomError{Code: fiber.StatusInternalServerError, Message: internalMessage, Type: "unknown"}
}

func typeForStatus(code int) string {
	switch code {
	case fiber.StatusUnauthorized:
		return "unauthenticated"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusConflict:
		return "conflict"
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return "validation"
	}
	return "unknown"
}
