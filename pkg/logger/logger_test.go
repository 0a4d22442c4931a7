package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/pkg/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run("it parses "+tt.in, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, logger.ParseLevel(tt.in))
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("it writes JSON with a british timestamp", func(t *testing.T) {
		t.Parallel()

		// Arrange
		var buf bytes.Buffer
		log := logger.New(&buf, logger.Config{LogLevel: "info"})

		// Act
		log.Info("cycle completed", slog.Int("indexed", 2))

		// Assert
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "cycle completed", entry["msg"])
		assert.InDelta(t, 2, entry["indexed"], 0)
		_, err := time.Parse(logger.BritishTimeFormat, entry["time"].(string))
		assert.NoError(t, err)
	})

	t.Run("it drops records below the configured level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(&buf, logger.Config{LogLevel: "warn"})

		log.Info("ignored")

		assert.Zero(t, buf.Len())
	})

	t.Run("it writes human friendly text when asked", func(t *testing.T) {
		t.Parallel()

		// Arrange
		var buf bytes.Buffer
		log := logger.New(&buf, logger.Config{LogLevel: "debug", LogHumanFriendly: true})

		// Act
		log.Debug("page fetched", slog.String("after", ""), slog.Int("count", 3))

		// Assert
		out := buf.String()
		assert.Contains(t, out, "page fetched")
		assert.Contains(t, out, "count")
		assert.NotContains(t, out, "after")
		assert.False(t, json.Valid(buf.Bytes()))
	})
}
