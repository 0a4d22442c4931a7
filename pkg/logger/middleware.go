package logger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/screwyprof/atlas/pkg/httpkit"
	"github.com/screwyprof/atlas/pkg/metrics"
)

// unmatchedRoute labels requests that no mux pattern matched
const unmatchedRoute = "unmatched"

// responseWriter wraps http.ResponseWriter to capture status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytesOut   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.bytesOut += size
	return size, err
}

// NewMiddleware creates HTTP request logging middleware.
// Each request is also counted in the HTTP metrics, labelled by the matched mux pattern.
func NewMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Ensure error tracking context exists (in case httpkit.HandlerFunc wasn't used)
			r = r.WithContext(httpkit.WithErrorTracking(r.Context()))

			// ContentLength is -1 when unknown; clamp it for the log field
			bytesIn := max(0, int(r.ContentLength))

			// Capture status and response size for metrics and the log line
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK, // Default to 200 if WriteHeader is never called
			}

			// Serve the request
			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			// ServeMux records the matched pattern on the request it was given
			route := r.Pattern
			if route == "" {
				route = unmatchedRoute
			}
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

			// Only server-side failures are logged at error level
			level := slog.LevelInfo
			if rw.statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.String("route", route),
				slog.Int("status", rw.statusCode),
				slog.Duration("duration", duration),
				slog.Int("bytes_in", bytesIn),
				slog.Int("bytes_out", rw.bytesOut),
			}

			// Handlers that failed through httpkit.JSONError left their error in the context
			if err := httpkit.Error(r.Context()); err != nil {
				attrs = append(attrs, slog.String("error", errorMessage(err)))
			}

			// Constant message; the structured fields carry the details
			logger.LogAttrs(r.Context(), level, "HTTP", attrs...)
		})
	}
}

// errorMessage prefers the detailed cause of an HTTP error
func errorMessage(err error) string {
	if httpErr, ok := err.(httpkit.HTTPError); ok {
		return httpErr.Cause().Error() // clients only see the sanitized message
	}
	return err.Error() // plain errors recorded outside httpkit
}
