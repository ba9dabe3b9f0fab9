package debug

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogSuppressedByDefault(t *testing.T) {
	os.Unsetenv("DEBUG")
	EnableDebug = "false"
	var buf bytes.Buffer
	SetDebugOutput(&buf)
	defer SetDebugOutput(nil)

	LogIndex("built %d entries", 5)
	require.Empty(t, buf.String())
}

func TestLogEnabledViaEnv(t *testing.T) {
	os.Setenv("DEBUG", "1")
	defer os.Unsetenv("DEBUG")
	var buf bytes.Buffer
	SetDebugOutput(&buf)
	defer SetDebugOutput(nil)

	LogFilter("processed %d lines", 100)
	require.Contains(t, buf.String(), "[DEBUG:FILTER]")
	require.Contains(t, buf.String(), "processed 100 lines")
}

func TestInitAndCloseDebugLogFile(t *testing.T) {
	os.Setenv("DEBUG", "1")
	defer os.Unsetenv("DEBUG")

	path, err := InitDebugLogFile()
	require.NoError(t, err)
	defer os.Remove(path)

	LogWatch("file modified: %s", "app.log")
	require.NoError(t, CloseDebugLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "file modified: app.log")
}
