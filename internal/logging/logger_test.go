package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		info  bool
		warn  bool
	}{
		{level: "trace", debug: true, info: true, warn: true},
		{level: "debug", debug: true, info: true, warn: true},
		{level: "info", info: true, warn: true},
		{level: "warn", warn: true},
		{level: "error"},
		{level: "", warn: true},
		{level: "loud", warn: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: tt.level, Output: &buf})

			logger.Debug().Msg("debug message")
			logger.Info().Msg("info message")
			logger.Warn().Msg("warn message")

			out := buf.String()
			assert.Equal(t, tt.debug, strings.Contains(out, "debug message"))
			assert.Equal(t, tt.info, strings.Contains(out, "info message"))
			assert.Equal(t, tt.warn, strings.Contains(out, "warn message"))
		})
	}
}

func TestNewWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithComponent(Config{Level: "info", Output: &buf}, "builder")
	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"builder"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, NoColor: true, Output: &buf})
	logger.Info().Str("module", "a.obj").Msg("collected")

	assert.Contains(t, buf.String(), "collected")
	assert.Contains(t, buf.String(), "module=a.obj")
	assert.NotContains(t, buf.String(), "\x1b[")
}
