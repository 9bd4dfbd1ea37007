package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind is the stable, machine readable error category returned to clients.
type Kind string

const (
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindForbidden         Kind = "FORBIDDEN"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindDependencyFailure Kind = "DEPENDENCY_FAILURE"
)

// Error is the error type shared by services and repositories.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so that errors.Is(err, ErrNotFound) holds for every
// NotFound error regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t == e || (t.Message == "" && t.Kind == e.Kind)
}

// APIError is the JSON body of every failure response.
type APIError struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Code    Kind     `json:"code"`
	Fields  []string `json:"fields,omitempty"`
}

// Kind sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrDependencyFailure = &Error{Kind: KindDependencyFailure}
)

func Unauthenticated(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "Access denied"
	}
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound is also used for rows that exist but fall outside the caller's scope.
func NotFound(resource string) *Error {
	if resource == "" {
		return &Error{Kind: KindNotFound, Message: "Resource not found"}
	}
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func Conflict(message string) *Error {
	if message == "" {
		message = "Resource conflict"
	}
	return &Error{Kind: KindConflict, Message: message}
}

// Validation builds a validation error. Fields lists the offending inputs.
func Validation(message string, fields ...string) *Error {
	if message == "" {
		message = "Invalid request"
	}
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// MissingFields reports required fields that were not supplied.
func MissingFields(fields ...string) *Error {
	return Validation("Missing required fields: "+strings.Join(fields, ", "), fields...)
}

// Dependency wraps a backing store failure. The cause is kept for logs only.
func Dependency(op string, err error) *Error {
	return &Error{Kind: KindDependencyFailure, Message: op, Err: err}
}

// KindOf returns the kind of err, treating unknown errors as dependency failures.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindDependencyFailure
}

// StatusCode maps an error kind to its HTTP status
func StatusCode(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error response. Dependency failures are logged
// with their cause and answered with a generic message.
func Respond(c *gin.Context, log *zap.Logger, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Dependency("unexpected failure", err)
	}

	body := APIError{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Kind,
		Fields:  appErr.Fields,
	}

	if appErr.Kind == KindDependencyFailure {
		if log != nil {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.String("operation", appErr.Message),
				zap.Error(appErr.Err),
			)
		}
		body.Error = "Internal server error, please retry"
	}

	c.AbortWithStatusJSON(StatusCode(appErr.Kind), body)
}

// BadRequest sends a 400 response for malformed request bodies
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request body"
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, APIError{
		Success: false,
		Error:   message,
		Code:    KindValidation,
	})
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, APIError{
		Success: false,
		Error:   message,
		Code:    KindDependencyFailure,
	})
}
