package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/screwyprof/atlas/flp"
)

// Error represents a structured API error response
type Error struct {
	cause    error  // The original error (for logging/debugging)
	message  string // Safe user-facing message
	httpCode int    // HTTP status code (also used as API error code)
}

// HTTPCode returns the HTTP status code for this error
func (e *Error) HTTPCode() int {
	return e.httpCode
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.message
}

// Unwrap returns the underlying cause for error unwrapping
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause returns the original error for logging purposes
func (e *Error) Cause() error {
	return e.cause
}

// MarshalJSON implements json.Marshaler interface
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"code":    e.httpCode,
		"message": e.message,
	})
}

// 4xx errors are safe to expose, 5xx errors only carry the status text

func BadRequest(cause error) *Error {
	return clientError(cause, http.StatusBadRequest)
}

func NotFound(cause error) *Error {
	return clientError(cause, http.StatusNotFound)
}

func BadGateway(cause error) *Error {
	return serverError(cause, http.StatusBadGateway)
}

func InternalServerError(cause error) *Error {
	return serverError(cause, http.StatusInternalServerError)
}

func clientError(cause error, code int) *Error {
	return &Error{cause: cause, message: cause.Error(), httpCode: code}
}

func serverError(cause error, code int) *Error {
	return &Error{cause: cause, message: http.StatusText(code), httpCode: code}
}

// Wrap transforms any error into a safe API error.
// API errors pass through unchanged; domain error kinds map onto their status:
// validation is 400, not found is 404, and transport, schema or inconsistent
// ledger state is 502 because the upstream ledger is at fault.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, flp.ErrValidation):
		return BadRequest(err)
	case errors.Is(err, flp.ErrNotFound):
		return NotFound(err)
	case errors.Is(err, flp.ErrTransport),
		errors.Is(err, flp.ErrSchema),
		errors.Is(err, flp.ErrInconsistentState):
		return BadGateway(err)
	default:
		return InternalServerError(err)
	}
}
