package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rodeo-indexer/internal/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Uint64("block", 7).Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "warn", line["level"])
	assert.EqualValues(t, 7, line["block"])
	assert.Contains(t, line, "time")
}

func TestNewWithWriter_Pretty(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: "debug", Pretty: true}, &buf)
	require.NoError(t, err)

	logger.Debug().Str("token", "0xaa").Msg("applied")
	assert.Contains(t, buf.String(), "applied")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNewWithWriter_BadLevel(t *testing.T) {
	_, err := NewWithWriter(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}
