package httpkit_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/pkg/httpkit"
)

type testError struct {
	code  int
	cause error
}

func (e testError) Error() string { return "public message" }
func (e testError) HTTPCode() int { return e.code }
func (e testError) Cause() error  { return e.cause }
func (e testError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"code": e.code, "message": e.Error()})
}

func TestHandlerFunc(t *testing.T) {
	t.Parallel()

	t.Run("it writes JSON with safe headers", func(t *testing.T) {
		t.Parallel()

		// Arrange
		h := httpkit.HandlerFunc(func(http.ResponseWriter, *http.Request) http.HandlerFunc {
			return httpkit.JSON(map[string]string{"status": "ok"})
		})
		w := httptest.NewRecorder()

		// Act
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		// Assert
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("it keeps a content type set by the handler", func(t *testing.T) {
		t.Parallel()

		// Arrange
		h := httpkit.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) http.HandlerFunc {
			w.Header().Set("Content-Type", "application/problem+json")
			return httpkit.JSONStatus(http.StatusAccepted, struct{}{})
		})
		w := httptest.NewRecorder()

		// Act
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		// Assert
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	})

	t.Run("it records the error for outer middleware", func(t *testing.T) {
		t.Parallel()

		// Arrange
		cause := errors.New("upstream timeout")
		herr := testError{code: http.StatusBadGateway, cause: cause}
		h := httpkit.HandlerFunc(func(http.ResponseWriter, *http.Request) http.HandlerFunc {
			return httpkit.JSONError(herr)
		})

		var recorded error
		outer := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(httpkit.WithErrorTracking(r.Context()))
			h.ServeHTTP(w, r)
			recorded = httpkit.Error(r.Context())
		})
		w := httptest.NewRecorder()

		// Act
		outer.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		// Assert
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.JSONEq(t, `{"code":502,"message":"public message"}`, w.Body.String())
		require.Error(t, recorded)
		assert.Equal(t, herr, recorded)
	})

	t.Run("it ignores errors without tracking", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		// Act
		httpkit.SetError(r.Context(), errors.New("dropped"))

		// Assert
		assert.NoError(t, httpkit.Error(r.Context()))
	})
}
