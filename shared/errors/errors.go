package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType classifies an Error for status mapping and assertions.
type ErrorType string

const (
	// Caller faults.
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeValidation   ErrorType = "VALIDATION"

	// Service faults.
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"

	// Broker convention faults.
	ErrorTypeUnknownPattern ErrorType = "UNKNOWN_PATTERN"
)

// Error is the typed error every service layer produces. StatusCode,
// Details and the captured stack never cross the wire.
type Error struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Stack      []string               `json:"-"`
	Cause      error                  `json:"-"`
	StatusCode int                    `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetails attaches a contextual key/value pair.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error for logs and errors.Is chains.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func captureStack() []string {
	var stack []string
	for i := 2; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn != nil && !strings.Contains(fn.Name(), "runtime.") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		}
	}
	return stack
}

// New builds a typed error and captures the call stack.
func New(errorType ErrorType, code, message string) *Error {
	return &Error{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Stack:      captureStack(),
		StatusCode: statusCodeFor(errorType),
	}
}

func statusCodeFor(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Constructors, one per taxonomy entry.

func NotFound(resource string, id interface{}) *Error {
	return New(ErrorTypeNotFound, "RESOURCE_NOT_FOUND",
		fmt.Sprintf("%s not found", resource)).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

func Unauthorized(reason string) *Error {
	return New(ErrorTypeUnauthorized, "UNAUTHORIZED", reason)
}

func Forbidden(resource string, action string) *Error {
	return New(ErrorTypeForbidden, "FORBIDDEN",
		fmt.Sprintf("Forbidden: cannot %s %s", action, resource)).
		WithDetails("resource", resource).
		WithDetails("action", action)
}

func Conflict(resource string, reason string) *Error {
	return New(ErrorTypeConflict, "CONFLICT",
		fmt.Sprintf("Conflict with %s: %s", resource, reason)).
		WithDetails("resource", resource)
}

func Internal(message string) *Error {
	return New(ErrorTypeInternal, "INTERNAL_ERROR", message)
}

func Timeout(operation string) *Error {
	return New(ErrorTypeTimeout, "TIMEOUT",
		fmt.Sprintf("Operation '%s' timed out", operation)).
		WithDetails("operation", operation)
}

func Unavailable(resource string) *Error {
	return New(ErrorTypeUnavailable, "UNAVAILABLE",
		fmt.Sprintf("%s is unavailable", resource)).
		WithDetails("resource", resource)
}

func Validation(field string, constraint string) *Error {
	return New(ErrorTypeValidation, "VALIDATION_ERROR",
		fmt.Sprintf("Validation failed for '%s': %s", field, constraint)).
		WithDetails("field", field).
		WithDetails("constraint", constraint)
}

func UnknownPattern(pattern string) *Error {
	return New(ErrorTypeUnknownPattern, "UNKNOWN_PATTERN",
		fmt.Sprintf("no handler registered for pattern '%s'", pattern)).
		WithDetails("pattern", pattern)
}

// WireError is the serializable form carried inside a messaging reply.
// Details and stack stay on the producing side; only the typed identity
// crosses the wire.
type WireError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// ToWire converts any error into its wire form. Untyped errors are
// reduced to a generic internal error so internals never leak to callers.
func ToWire(err error) *WireError {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &WireError{Type: e.Type, Code: e.Code, Message: e.Message}
	}
	return &WireError{
		Type:    ErrorTypeInternal,
		Code:    "INTERNAL_ERROR",
		Message: "internal error",
	}
}

// FromWire rehydrates a wire error into a typed *Error on the caller side.
func FromWire(w *WireError) *Error {
	if w == nil {
		return nil
	}
	return &Error{
		Type:       w.Type,
		Code:       w.Code,
		Message:    w.Message,
		StatusCode: statusCodeFor(w.Type),
	}
}

// IsType reports whether err carries the given taxonomy type.
func IsType(err error, errorType ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errorType
	}
	return false
}

// GetType extracts the taxonomy type, or INTERNAL for untyped errors.
func GetType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// GetCode extracts the stable code, or UNKNOWN for untyped errors.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN"
}

// HTTPStatus returns the HTTP status an error maps to at the gateway
// boundary. Untyped errors map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
