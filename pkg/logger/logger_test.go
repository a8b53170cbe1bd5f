package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitAndLevelString(t *testing.T) {
	Init("debug")
	require.Equal(t, "debug", LevelString())
	Init("WARN")
	require.Equal(t, "warn", LevelString())
	Init("Error")
	require.Equal(t, "error", LevelString())
	Init("nonsense")
	require.Equal(t, "info", LevelString(), "unknown input falls back to info")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Init("warn")
	defer Init("info")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg")

	out := buf.String()
	require.NotContains(t, out, "debug-msg")
	require.NotContains(t, out, "info-msg")
	require.Contains(t, out, "[WARN] warn-msg")
	require.Contains(t, out, "[ERROR] error-msg")
}

func TestKeyValueVariants(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	Init("info")

	Infow("request", "method", "GET", "status", 200, "ua", "curl 8.0")
	line := strings.TrimSpace(buf.String())
	require.Contains(t, line, "[INFO] request method=GET status=200")
	require.Contains(t, line, `ua="curl 8.0"`)

	buf.Reset()
	Warnw("odd", "dangling")
	require.Contains(t, buf.String(), "dangling=(MISSING)")

	buf.Reset()
	Init("error")
	Warnw("suppressed", "k", "v")
	require.Empty(t, buf.String())
	Init("info")
}
