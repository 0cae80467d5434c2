package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithSink("warn", "json", &buf)

	logger.Info("dropped")
	logger.Warn("kept", zap.String("employee_id", "emp-1"))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	require.Equal(t, "kept", entry["msg"])
	require.Equal(t, "emp-1", entry["employee_id"])
	require.Contains(t, entry, "timestamp")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithSink("loud", "json", &buf)

	logger.Debug("dropped")
	logger.Info("kept")
	require.NoError(t, logger.Sync())

	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
}
