package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunID(t *testing.T) {
	t.Run("is stable across calls", func(t *testing.T) {
		assert.Equal(t, RunID(), RunID())
	})

	t.Run("is non-empty", func(t *testing.T) {
		assert.NotEmpty(t, RunID())
	})
}

func TestFor(t *testing.T) {
	t.Run("tags lines with the component", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Options{Level: slog.LevelDebug, Writer: &buf, NoColor: true})

		For("queue").Info("listing jobs", "count", 3)

		out := buf.String()
		assert.Contains(t, out, "component=queue")
		assert.Contains(t, out, "listing jobs")
	})

	t.Run("respects the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Options{Level: slog.LevelWarn, Writer: &buf, NoColor: true})

		For("poster").Debug("hidden")
		For("poster").Warn("shown")

		out := buf.String()
		assert.False(t, strings.Contains(out, "hidden"))
		assert.Contains(t, out, "shown")
	})
}
