package api_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/web/api"
)

func TestAPIErrorHandling(t *testing.T) {
	t.Parallel()

	t.Run("it exposes client error details", func(t *testing.T) {
		t.Parallel()

		// Arrange
		cause := fmt.Errorf("%w: malformed wallet address %q", flp.ErrValidation, "abc")

		// Act
		apiErr := api.BadRequest(cause)

		// Assert
		assert.Equal(t, http.StatusBadRequest, apiErr.HTTPCode())
		assert.Equal(t, cause.Error(), apiErr.Error())
		assert.Equal(t, cause, apiErr.Cause())
	})

	t.Run("it hides server error details", func(t *testing.T) {
		t.Parallel()

		// Arrange
		cause := errors.New("dial tcp 10.0.0.7:443: connection refused")

		// Act
		apiErr := api.BadGateway(cause)

		// Assert
		assert.Equal(t, http.StatusBadGateway, apiErr.HTTPCode())
		assert.Equal(t, "Bad Gateway", apiErr.Error())
		assert.Equal(t, cause, apiErr.Cause())
	})

	t.Run("it maps domain error kinds to statuses", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			kind error
			code int
		}{
			{flp.ErrValidation, http.StatusBadRequest},
			{flp.ErrNotFound, http.StatusNotFound},
			{flp.ErrTransport, http.StatusBadGateway},
			{flp.ErrSchema, http.StatusBadGateway},
			{flp.ErrInconsistentState, http.StatusBadGateway},
			{errors.New("boom"), http.StatusInternalServerError},
		}
		for _, tt := range tests {
			apiErr := api.Wrap(fmt.Errorf("lookup: %w", tt.kind))

			require.NotNil(t, apiErr)
			assert.Equal(t, tt.code, apiErr.HTTPCode(), tt.kind.Error())
			assert.ErrorIs(t, apiErr, tt.kind)
		}
	})

	t.Run("it renders code and message as JSON", func(t *testing.T) {
		t.Parallel()

		// Arrange
		apiErr := api.NotFound(errors.New("no snapshot indexed for project"))

		// Act
		data, err := json.Marshal(apiErr)

		// Assert
		require.NoError(t, err)
		assert.JSONEq(t, `{"code":404,"message":"no snapshot indexed for project"}`, string(data))
	})

	t.Run("it does not wrap API errors twice", func(t *testing.T) {
		t.Parallel()

		original := api.BadRequest(errors.New("bad ticker"))

		assert.Same(t, original, api.Wrap(fmt.Errorf("handler: %w", original)))
	})

	t.Run("it returns nil for a nil error", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, api.Wrap(nil))
	})
}
