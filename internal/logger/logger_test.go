package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledLoggerIsInert(t *testing.T) {
	// Empty path disables the file sink; the logger is a singleton, so
	// this package's tests all run against the disabled instance.
	require.NoError(t, Init(""))

	assert.Equal(t, "", GetLogPath())
	assert.False(t, Report([]string{"a verdict line"}))

	// No-ops must not panic.
	Debug("debug %d", 1)
	Info("info")
	Warn("warn")
	Error("error")
	Section("section")
	Close()
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}
