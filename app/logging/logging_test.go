package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	original := log.Logger
	t.Cleanup(func() {
		log.Logger = original
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	t.Run("json output at warn", func(t *testing.T) {
		var buf bytes.Buffer
		Setup("warn", false, &buf)

		log.Info().Msg("hidden")
		log.Warn().Str("category", "blog/1").Msg("path traversal attempt")

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 1)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(lines[0], &entry))
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, "blog/1", entry["category"])
		assert.Contains(t, entry, "time")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		Setup("chatty", false, &buf)

		log.Debug().Msg("hidden")
		log.Info().Msg("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("pretty output", func(t *testing.T) {
		var buf bytes.Buffer
		Setup("info", true, &buf)

		log.Info().Str("postId", "3").Msg("created post")
		assert.Contains(t, buf.String(), "created post")
		assert.Contains(t, buf.String(), "postId=")
	})
}
