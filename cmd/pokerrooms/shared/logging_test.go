package shared

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		want  log.Level
	}{
		{"info", false, log.InfoLevel},
		{"warn", false, log.WarnLevel},
		{"bogus", false, log.InfoLevel},
		{"error", true, log.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(&bytes.Buffer{}, tt.level, "text", tt.debug, true)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json", false, true)
	logger.WithPrefix("rooms").Info("Room created", "room", "r1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Room created", line["msg"])
	assert.Equal(t, "r1", line["room"])
	assert.Equal(t, "rooms", line["prefix"])
}
