// Package httpkit adapts handlers that pick their response into net/http.
package httpkit

import (
	"context"
	"encoding/json"
	"net/http"
)

// HTTPError is an error that knows its status code and keeps its cause for logging
type HTTPError interface {
	HTTPCode() int
	Cause() error
	error
}

// Header constants
const (
	contentTypeHeader  = "Content-Type"
	contentTypeOptions = "X-Content-Type-Options"
)

var (
	jsonContentType           = []string{"application/json; charset=utf-8"}
	nosniffContentTypeOptions = []string{"nosniff"}
)

func addHeaderIfNotSet(w http.ResponseWriter, key string, value []string) {
	header := w.Header()
	if val := header[key]; len(val) == 0 {
		header[key] = value
	}
}

// Request-scoped error tracking. The holder is a pointer so that handlers
// deeper in the chain can record an error the middleware reads afterwards.
type ctxKeyError struct{}

type errorHolder struct {
	err error
}

// WithErrorTracking returns ctx with a slot for the request error, reusing an existing slot
func WithErrorTracking(ctx context.Context) context.Context {
	if _, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		return ctx // already tracked by an outer middleware
	}
	return context.WithValue(ctx, ctxKeyError{}, &errorHolder{})
}

// SetError records err for the request; a no-op without tracking
func SetError(ctx context.Context, err error) {
	if holder, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		holder.err = err
	}
}

// Error returns the recorded request error
func Error(ctx context.Context) error {
	if holder, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		return holder.err
	}
	return nil
}

// HandlerFunc inspects the request and returns the handler that writes the response
type HandlerFunc func(http.ResponseWriter, *http.Request) http.HandlerFunc

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(WithErrorTracking(r.Context()))

	// A nil handler means h already wrote the response itself
	if handler := h(w, r); handler != nil {
		handler(w, r)
	}
}

// JSON writes data with 200 OK
func JSON(data any) http.HandlerFunc {
	return JSONStatus(http.StatusOK, data)
}

// JSONStatus writes data with the given status code
func JSONStatus(code int, data any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, code, data)
	}
}

// JSONError records err for the middleware and writes it with its own status code
func JSONError(err HTTPError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Set error in context for the logging middleware (if tracking is on)
		SetError(r.Context(), err)
		writeJSON(w, err.HTTPCode(), err)
	}
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	// Handlers may have chosen their own content type already
	addHeaderIfNotSet(w, contentTypeHeader, jsonContentType)
	addHeaderIfNotSet(w, contentTypeOptions, nosniffContentTypeOptions)

	// Headers are frozen once the status is written
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
