package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the edit workflow and surrounding plumbing.
var (
	ErrUnauthenticated   = New("UNAUTHENTICATED", http.StatusUnauthorized, "authentication required")
	ErrForbidden         = New("FORBIDDEN", http.StatusForbidden, "moderator access required")
	ErrInvalidCSRF       = New("INVALID_CSRF", http.StatusForbidden, "missing or invalid CSRF token")
	ErrUnsupportedEntity = New("UNSUPPORTED_ENTITY", http.StatusBadRequest, "unsupported entity type")
	ErrFieldNotEditable  = New("FIELD_NOT_EDITABLE", http.StatusBadRequest, "field is not open for community edits")
	ErrMissingRationale  = New("MISSING_RATIONALE", http.StatusBadRequest, "a rationale for the edit is required")
	ErrRateLimited       = New("RATE_LIMITED", http.StatusTooManyRequests, "pending edit limit reached")
	ErrDuplicatePending  = New("DUPLICATE_PENDING", http.StatusConflict, "you already have a pending edit for this field")
	ErrNoChange          = New("NO_CHANGE", http.StatusBadRequest, "new value matches the current value")
	ErrNotFound          = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict          = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation        = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal          = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss         = New("CACHE_MISS", http.StatusInternalServerError, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithMeta returns a copy of the error carrying structured metadata.
func WithMeta(err *Error, meta map[string]interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Meta = meta
	return &clone
}
