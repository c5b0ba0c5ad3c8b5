package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", FormatJSON)
	require.NoError(t, err)

	logger.Debug().Uint32("server_id", 3).Msg("server added")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "debug", event["level"])
	assert.Equal(t, "server added", event["message"])
	assert.EqualValues(t, 3, event["server_id"])
	assert.Contains(t, event, "time")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", FormatJSON)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_ConsoleDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "", "")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger.Info().Str("key", "doc1").Msg("executed request")
	out := buf.String()
	assert.Contains(t, out, "executed request")
	assert.Contains(t, out, "key=doc1")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", FormatJSON)
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
